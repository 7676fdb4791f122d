package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rit1708/waitingroom/internal/admission"
	"github.com/rit1708/waitingroom/internal/engine"
	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/metrics"
	"github.com/rit1708/waitingroom/internal/queuestore"
	"github.com/rit1708/waitingroom/internal/tokenauth"
	"github.com/rit1708/waitingroom/internal/types"
)

type fakeMDS struct {
	metadata.Store
	events map[string]*types.Event
	tokens map[string]*types.Token
}

func (f *fakeMDS) GetEvent(_ context.Context, id string) (*types.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, metadata.ErrNotFound
	}
	return ev, nil
}

func (f *fakeMDS) SetEventActive(_ context.Context, id string, active bool) error {
	if ev, ok := f.events[id]; ok {
		ev.IsActive = active
	}
	return nil
}

func (f *fakeMDS) InsertEntry(context.Context, string, string, time.Time) error { return nil }

func (f *fakeMDS) ListRecentEntries(context.Context, string, int) ([]*types.Entry, error) {
	return nil, nil
}

func (f *fakeMDS) GetTokenBySecret(_ context.Context, secret string) (*types.Token, error) {
	t, ok := f.tokens[secret]
	if !ok {
		return nil, metadata.ErrNotFound
	}
	return t, nil
}

func (f *fakeMDS) SetTokenActive(context.Context, string, bool) error    { return nil }
func (f *fakeMDS) TouchTokenLastUsed(context.Context, string, time.Time) error { return nil }

func newTestServer() *Server {
	mds := &fakeMDS{
		events: map[string]*types.Event{"evt": {ID: "evt", Domain: "acme", QueueLimit: 2, IntervalSec: 30}},
		tokens: map[string]*types.Token{"good-token": {ID: "tok", Secret: "good-token", IsActive: true}},
	}
	eng := engine.New(queuestore.NewMemoryStore(), mds, slog.Default())
	tokens := tokenauth.New(mds)
	ctrl := admission.New(eng, mds, tokens, slog.Default())
	return New(ctrl, metrics.New(), "admin-secret", slog.Default())
}

func TestHandleJoin_AdmitsIntoEmptyEvent(t *testing.T) {
	srv := newTestServer()
	body, _ := json.Marshal(map[string]string{"eventId": "evt", "userId": "alice", "token": "good-token"})
	req := httptest.NewRequest(http.MethodPost, "/queue/join", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.JoinResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, types.StateActive, result.State)
}

func TestHandleJoin_RejectsBadToken(t *testing.T) {
	srv := newTestServer()
	body, _ := json.Marshal(map[string]string{"eventId": "evt", "userId": "alice", "token": "bad"})
	req := httptest.NewRequest(http.MethodPost, "/queue/join", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleStatus_UnknownEventNotFound(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/queue/status?eventId=missing&userId=alice", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutes_RequireBearerToken(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/admin/event/users?eventId=evt", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutes_StartAndListUsers(t *testing.T) {
	srv := newTestServer()

	body, _ := json.Marshal(map[string]string{"eventId": "evt"})
	req := httptest.NewRequest(http.MethodPost, "/admin/event/start", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/event/users?eventId=evt", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics_NeedNoAuth(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
