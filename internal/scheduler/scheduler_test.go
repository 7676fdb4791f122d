package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rit1708/waitingroom/internal/engine"
	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/queuestore"
	"github.com/rit1708/waitingroom/internal/types"
)

type stubMDS struct {
	metadata.Store
	activeEvents []*types.Event
	listErr      error
	entryCount   int
}

func (s *stubMDS) ListActiveEvents(context.Context) ([]*types.Event, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.activeEvents, nil
}

func (s *stubMDS) InsertEntry(context.Context, string, string, time.Time) error {
	s.entryCount++
	return nil
}

func TestScheduler_AdvancesEachActiveEvent(t *testing.T) {
	ctx := context.Background()
	store := queuestore.NewMemoryStore()
	mds := &stubMDS{activeEvents: []*types.Event{
		{ID: "evt-1", QueueLimit: 1, IntervalSec: 30},
	}}
	eng := engine.New(store, mds, slog.Default())

	require.NoError(t, store.SetTimer(ctx, "evt-1", -time.Second))
	require.NoError(t, store.PushActive(ctx, "evt-1", "a"))
	require.NoError(t, store.PushWaiting(ctx, "evt-1", "b"))

	sched := New(eng, mds, store, slog.Default())
	sched.tick(ctx)

	active, err := store.ActiveUsers(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, active, "expired window with a full batch turns over")
}

func TestScheduler_SuspendsOnMetadataOutage(t *testing.T) {
	ctx := context.Background()
	store := queuestore.NewMemoryStore()
	mds := &stubMDS{listErr: errors.New("connection refused")}
	eng := engine.New(store, mds, slog.Default())

	sched := New(eng, mds, store, slog.Default())
	sched.tick(ctx)

	sched.mu.Lock()
	backoffSet := sched.mdsBackoffUntil.After(time.Now())
	sched.mu.Unlock()
	assert.True(t, backoffSet)
}

func TestScheduler_SkipsTickDuringCooldown(t *testing.T) {
	ctx := context.Background()
	store := queuestore.NewMemoryStore()
	mds := &stubMDS{activeEvents: []*types.Event{{ID: "evt-1", QueueLimit: 1, IntervalSec: 30}}}
	eng := engine.New(store, mds, slog.Default())

	sched := New(eng, mds, store, slog.Default())
	sched.mu.Lock()
	sched.mdsBackoffUntil = time.Now().Add(time.Minute)
	sched.mu.Unlock()

	sched.tick(ctx)

	active, err := store.ActiveUsers(ctx, "evt-1")
	require.NoError(t, err)
	assert.Empty(t, active, "cooldown must skip the tick entirely")
}
