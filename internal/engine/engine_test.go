package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/queuestore"
	"github.com/rit1708/waitingroom/internal/types"
)

// fakeMDS is a minimal metadata.Store stub exercising only what the
// engine touches: event-active flag and the entry journal.
type fakeMDS struct {
	metadata.Store
	entries []types.Entry
	active  map[string]bool
}

func newFakeMDS() *fakeMDS {
	return &fakeMDS{active: make(map[string]bool)}
}

func (f *fakeMDS) InsertEntry(_ context.Context, eventID, userID string, enteredAt time.Time) error {
	f.entries = append(f.entries, types.Entry{EventID: eventID, UserID: userID, EnteredAt: enteredAt})
	return nil
}

func (f *fakeMDS) SetEventActive(_ context.Context, id string, active bool) error {
	f.active[id] = active
	return nil
}

func (f *fakeMDS) ListRecentEntries(_ context.Context, eventID string, limit int) ([]*types.Entry, error) {
	var out []*types.Entry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].EventID == eventID {
			e := f.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

func newTestEngine() (*Engine, *fakeMDS) {
	mds := newFakeMDS()
	eng := New(queuestore.NewMemoryStore(), mds, slog.Default())
	return eng, mds
}

func TestScenario1_DirectEntryIntoEmptyEvent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 2, IntervalSec: 30}

	snap, err := eng.Snapshot(ctx, "evt", "alice")
	require.NoError(t, err)
	require.True(t, CanEnterDirectly(snap, cfg))

	require.NoError(t, eng.AdmitDirect(ctx, "evt", "alice", cfg))

	st := eng.Status(ctx, "evt", "alice")
	assert.Equal(t, types.StateActive, st.State)
	assert.Equal(t, 0, st.Position)
	assert.Equal(t, 1, st.ActiveUsers)
	assert.Equal(t, 0, st.WaitingUsers)
	assert.LessOrEqual(t, st.TimeRemaining, 30)
}

func TestScenario2_FillAndQueue(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 2, IntervalSec: 30}

	require.NoError(t, eng.AdmitDirect(ctx, "evt", "alice", cfg))
	require.NoError(t, eng.AdmitDirect(ctx, "evt", "bob", cfg))

	bobStatus := eng.Status(ctx, "evt", "bob")
	assert.Equal(t, types.StateActive, bobStatus.State)
	assert.Equal(t, 2, bobStatus.ActiveUsers)

	snap, err := eng.Snapshot(ctx, "evt", "carol")
	require.NoError(t, err)
	assert.False(t, CanEnterDirectly(snap, cfg), "batch is full and window is open")

	require.NoError(t, eng.Enqueue(ctx, "evt", "carol"))
	carolStatus := eng.Status(ctx, "evt", "carol")
	assert.Equal(t, types.StateWaiting, carolStatus.State)
	assert.Equal(t, 1, carolStatus.Position)
	assert.Equal(t, 1, carolStatus.WaitingUsers)
}

func TestScenario3_RotationOnExpiry(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 2, IntervalSec: 2}

	require.NoError(t, eng.AdmitDirect(ctx, "evt", "alice", cfg))
	require.NoError(t, eng.AdmitDirect(ctx, "evt", "bob", cfg))
	require.NoError(t, eng.Enqueue(ctx, "evt", "carol"))

	// Force the timer into the past to simulate expiry without sleeping.
	require.NoError(t, eng.eqs.SetTimer(ctx, "evt", -time.Second))

	moved, err := eng.Advance(ctx, "evt", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, moved)

	active, waiting := eng.ListUsers(ctx, "evt")
	assert.Equal(t, []string{"carol"}, active)
	assert.Empty(t, waiting)

	snap, err := eng.Snapshot(ctx, "evt", "")
	require.NoError(t, err)
	assert.Greater(t, snap.TTL, time.Duration(0))
	assert.LessOrEqual(t, snap.TTL, 2*time.Second)

	aliceStatus := eng.Status(ctx, "evt", "alice")
	assert.Equal(t, types.StateWaiting, aliceStatus.State, "evicted users report as waiting, per the wire contract's state∈{active,waiting}")
	assert.Equal(t, 1, aliceStatus.Position, "informational position: waiting line is empty after carol's promotion")
}

func TestScenario4_PartialTopUpDuringOpenWindow(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 3, IntervalSec: 30}

	require.NoError(t, eng.AdmitDirect(ctx, "evt", "a", cfg))
	require.NoError(t, eng.eqs.SetTimer(ctx, "evt", 15*time.Second))
	require.NoError(t, eng.Enqueue(ctx, "evt", "b"))
	require.NoError(t, eng.Enqueue(ctx, "evt", "c"))

	moved, err := eng.Advance(ctx, "evt", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, moved, "relative order preserved")

	active, waiting := eng.ListUsers(ctx, "evt")
	assert.Equal(t, []string{"a", "b", "c"}, active)
	assert.Empty(t, waiting)
}

func TestScenario5_IdempotentEnqueue(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()

	require.NoError(t, eng.Enqueue(ctx, "evt", "d"))
	require.NoError(t, eng.Enqueue(ctx, "evt", "d"))

	waiting, err := eng.eqs.WaitingUsers(ctx, "evt")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, waiting)

	first := eng.Status(ctx, "evt", "d")
	second := eng.Status(ctx, "evt", "d")
	assert.Equal(t, first.Position, second.Position)
}

func TestScenario6_StopPreservesWaiting(t *testing.T) {
	ctx := context.Background()
	eng, mds := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 2, IntervalSec: 30}

	require.NoError(t, eng.AdmitDirect(ctx, "evt", "a", cfg))
	require.NoError(t, eng.AdmitDirect(ctx, "evt", "b", cfg))
	require.NoError(t, eng.Enqueue(ctx, "evt", "c"))
	require.NoError(t, eng.Enqueue(ctx, "evt", "d"))

	require.NoError(t, eng.Stop(ctx, "evt"))
	assert.False(t, mds.active["evt"])

	active, waiting := eng.ListUsers(ctx, "evt")
	assert.Empty(t, active)
	assert.Equal(t, []string{"c", "d"}, waiting)

	ttl, err := eng.eqs.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	require.NoError(t, eng.Start(ctx, "evt", cfg))
	assert.True(t, mds.active["evt"])

	active, waiting = eng.ListUsers(ctx, "evt")
	assert.Equal(t, []string{"c"}, active)
	assert.Equal(t, []string{"d"}, waiting)

	ttl, err = eng.eqs.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestAdvance_NoOpWhenEmptyAndBelowCapacity(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 5, IntervalSec: 30}

	require.NoError(t, eng.AdmitDirect(ctx, "evt", "a", cfg))
	moved, err := eng.Advance(ctx, "evt", cfg)
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestAdvanceNow_ClearsTimerWhenNobodyPromoted(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 1, IntervalSec: 30}

	require.NoError(t, eng.AdmitDirect(ctx, "evt", "a", cfg))
	moved, err := eng.AdvanceNow(ctx, "evt", cfg)
	require.NoError(t, err)
	assert.Empty(t, moved)

	ttl, err := eng.eqs.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestEnqueueBatch_GeneratesDistinctIDsAndAdvances(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine()
	cfg := types.EventConfig{QueueLimit: 3, IntervalSec: 30}

	ids, err := eng.EnqueueBatch(ctx, "evt", 5, cfg)
	require.NoError(t, err)
	require.Len(t, ids, 5)

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "synthetic ids must be distinct")
		seen[id] = true
	}

	active, waiting := eng.ListUsers(ctx, "evt")
	assert.Len(t, active, 3)
	assert.Len(t, waiting, 2)
}
