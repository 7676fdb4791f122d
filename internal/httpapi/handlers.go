package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rit1708/waitingroom/internal/admission"
	"github.com/rit1708/waitingroom/internal/apperr"
)

type joinRequestBody struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
	Domain  string `json:"domain,omitempty"`
	Token   string `json:"token"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var body joinRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.New(apperr.Validation, "malformed request body"))
		return
	}
	if body.EventID == "" || body.UserID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId and userId are required"))
		return
	}

	result, err := s.admission.Join(requestContext(r), admission.JoinRequest{
		EventID: body.EventID,
		UserID:  body.UserID,
		Domain:  body.Domain,
		Token:   body.Token,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.SetQueueDepth(body.EventID, result.ActiveUsers, result.WaitingUsers)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	userID := r.URL.Query().Get("userId")
	if eventID == "" || userID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId and userId are required"))
		return
	}

	st, err := s.admission.Status(requestContext(r), eventID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.SetQueueDepth(eventID, st.ActiveUsers, st.WaitingUsers)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId is required"))
		return
	}
	active, waiting, err := s.admission.ListUsers(requestContext(r), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":    active,
		"waiting":   waiting,
		"remaining": len(waiting),
	})
}

type eventIDBody struct {
	EventID string `json:"eventId"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body eventIDBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EventID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId is required"))
		return
	}
	if err := s.admission.Start(requestContext(r), body.EventID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var body eventIDBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EventID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId is required"))
		return
	}
	if err := s.admission.Stop(requestContext(r), body.EventID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAdvanceNow(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		writeError(w, apperr.New(apperr.Validation, "event id is required"))
		return
	}
	moved, active, waiting, err := s.admission.AdvanceNow(requestContext(r), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"moved":   moved,
		"active":  active,
		"waiting": waiting,
	})
}

type enqueueBody struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var body enqueueBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EventID == "" || body.UserID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId and userId are required"))
		return
	}
	if err := s.admission.Enqueue(requestContext(r), body.EventID, body.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type enqueueBatchBody struct {
	EventID string `json:"eventId"`
	Count   int    `json:"count"`
}

func (s *Server) handleEnqueueBatch(w http.ResponseWriter, r *http.Request) {
	var body enqueueBatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EventID == "" || body.Count <= 0 {
		writeError(w, apperr.New(apperr.Validation, "eventId and a positive count are required"))
		return
	}
	ids, err := s.admission.EnqueueBatch(requestContext(r), body.EventID, body.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "userIds": ids})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var body eventIDBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EventID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId is required"))
		return
	}
	if err := s.admission.Reset(requestContext(r), body.EventID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		writeError(w, apperr.New(apperr.Validation, "eventId is required"))
		return
	}
	entries, err := s.admission.RecentEntries(requestContext(r), eventID, queryLimit(r, 200))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
