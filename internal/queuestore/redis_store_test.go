package queuestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// newTestRedisStore wires a redisStore to an in-process miniredis instance,
// following the same "exercise the real client against a fake server"
// pattern as the bd daemon's Redis-backed wisp store integration tests,
// minus the external BD_TEST_REDIS_URL dependency.
func newTestRedisStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_RoundTripsThroughTheSameContract(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	added, err := s.AddMember(ctx, "evt", "alice")
	require.NoError(t, err)
	require.True(t, added)

	require.NoError(t, s.PushWaiting(ctx, "evt", "bob"))
	require.NoError(t, s.PushWaiting(ctx, "evt", "carol"))

	popped, err := s.PopWaitingFront(ctx, "evt", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, popped)

	require.NoError(t, s.PushActive(ctx, "evt", "bob"))
	require.NoError(t, s.SetTimer(ctx, "evt", 10*time.Second))

	ttl, err := s.TimerTTL(ctx, "evt")
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	activeLen, err := s.ActiveLen(ctx, "evt")
	require.NoError(t, err)
	require.Equal(t, 1, activeLen)

	waitingUsers, err := s.WaitingUsers(ctx, "evt")
	require.NoError(t, err)
	require.Equal(t, []string{"carol"}, waitingUsers)
}

func TestRedisStore_Ping(t *testing.T) {
	s := newTestRedisStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
