package queuestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_MembershipIdempotence(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	added, err := s.AddMember(ctx, "evt", "alice")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddMember(ctx, "evt", "alice")
	require.NoError(t, err)
	assert.False(t, added, "re-adding an existing member must be a no-op")

	ok, err := s.IsMember(ctx, "evt", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_WaitingFIFOOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, s.PushWaiting(ctx, "evt", u))
	}

	pos, err := s.WaitingPosition(ctx, "evt", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	popped, err := s.PopWaitingFront(ctx, "evt", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, popped)

	remaining, err := s.WaitingUsers(ctx, "evt")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, remaining)
}

func TestMemoryStore_PopWaitingFrontBoundedByLength(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PushWaiting(ctx, "evt", "a"))

	popped, err := s.PopWaitingFront(ctx, "evt", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, popped)

	popped, err = s.PopWaitingFront(ctx, "evt", 5)
	require.NoError(t, err)
	assert.Empty(t, popped)
}

func TestMemoryStore_TimerTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ttl, err := s.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)

	require.NoError(t, s.SetTimer(ctx, "evt", 30*time.Second))
	ttl, err = s.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Greater(t, ttl, 29*time.Second)
	assert.LessOrEqual(t, ttl, 30*time.Second)

	require.NoError(t, s.ClearTimer(ctx, "evt"))
	ttl, err = s.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)
}

func TestMemoryStore_ExpiredTimerReadsZero(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SetTimer(ctx, "evt", -1*time.Second))
	ttl, err := s.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)
}

func TestMemoryStore_ResetDropsAllKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.PushActive(ctx, "evt", "a"))
	require.NoError(t, s.PushWaiting(ctx, "evt", "b"))
	_, err := s.AddMember(ctx, "evt", "a")
	require.NoError(t, err)
	require.NoError(t, s.SetTimer(ctx, "evt", time.Minute))

	require.NoError(t, s.Reset(ctx, "evt"))

	activeLen, err := s.ActiveLen(ctx, "evt")
	require.NoError(t, err)
	assert.Zero(t, activeLen)

	waitingLen, err := s.WaitingLen(ctx, "evt")
	require.NoError(t, err)
	assert.Zero(t, waitingLen)

	ttl, err := s.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	ok, err := s.IsMember(ctx, "evt", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
