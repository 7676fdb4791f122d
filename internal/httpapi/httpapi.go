// Package httpapi is the HTTP surface consumed by the core (C8): the
// thin JSON front door the specification describes as an external
// collaborator. It exists here because a runnable binary needs one;
// request validation stays minimal and delegates every decision to the
// admission controller. Grounded on bd's internal/rpc/http_server.go:
// a net/http.ServeMux, a bearer-auth check ahead of admin routes, and
// JSON encode/decode helpers around every handler.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rit1708/waitingroom/internal/admission"
	"github.com/rit1708/waitingroom/internal/apperr"
	"github.com/rit1708/waitingroom/internal/metrics"
)

// Server wires the admission controller to HTTP. Admin routes require a
// static bearer token (adminToken) supplied at construction; the join
// token itself is validated downstream by the token registry.
type Server struct {
	admission  *admission.Controller
	metrics    *metrics.Metrics
	adminToken string
	logger     *slog.Logger
	mux        *http.ServeMux
}

// New builds a Server with all routes registered.
func New(ctrl *admission.Controller, m *metrics.Metrics, adminToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{admission: ctrl, metrics: m, adminToken: adminToken, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the root http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.HandleFunc("POST /queue/join", s.instrument("join", s.handleJoin))
	s.mux.HandleFunc("GET /queue/status", s.instrument("status", s.handleStatus))

	s.mux.HandleFunc("GET /admin/event/users", s.adminOnly(s.instrument("list-users", s.handleListUsers)))
	s.mux.HandleFunc("POST /admin/event/start", s.adminOnly(s.instrument("start", s.handleStart)))
	s.mux.HandleFunc("POST /admin/event/stop", s.adminOnly(s.instrument("stop", s.handleStop)))
	s.mux.HandleFunc("POST /admin/event/{id}/advance", s.adminOnly(s.instrument("advance-now", s.handleAdvanceNow)))
	s.mux.HandleFunc("POST /admin/event/enqueue", s.adminOnly(s.instrument("enqueue", s.handleEnqueue)))
	s.mux.HandleFunc("POST /admin/event/enqueue-batch", s.adminOnly(s.instrument("enqueue-batch", s.handleEnqueueBatch)))
	s.mux.HandleFunc("POST /admin/event/reset", s.adminOnly(s.instrument("reset", s.handleReset)))
	s.mux.HandleFunc("GET /admin/event/entries", s.adminOnly(s.instrument("entries", s.handleEntries)))
}

func (s *Server) instrument(op string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.Observe(op, time.Since(start), errForStatus(rec.status))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func errForStatus(status int) error {
	if status >= 400 {
		return errors.New(http.StatusText(status))
	}
	return nil
}

func (s *Server) adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || bearerToken(r) != s.adminToken {
			writeError(w, apperr.New(apperr.Unauthorized, "invalid or missing admin token"))
			return
		}
		h(w, r)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.admission.Ready(requestContext(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an apperr.Kind to its HTTP status, per the error
// handling design: this is the one place in the module that knows about
// status codes.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.Unauthorized:
		status = http.StatusUnauthorized
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.RateLimited:
		status = http.StatusTooManyRequests
	case apperr.EphemeralUnavailable, apperr.MetadataUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// requestContext returns the request's context, bounded by the caller's
// cancellation so an aborted client stops outstanding store I/O.
func requestContext(r *http.Request) context.Context {
	return r.Context()
}
