package queuestore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore is the production Store backed by Redis, using the bit-exact
// key layout from the spec: "q:{eventId}:active", "q:{eventId}:waiting",
// "q:{eventId}:users" (the members set), and "q:{eventId}:timer" (a scalar
// with TTL). Modeled on the bd daemon's Redis-backed wisp store: a thin
// client wrapper, pipelined writes where more than one key changes
// together, and redis.Nil treated as "not found" rather than an error.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed EQS. redisURL must be a valid Redis
// URL (e.g. "redis://localhost:6379/0"). Connectivity is verified eagerly.
func NewRedisStore(redisURL string) (Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisStore{client: client}, nil
}

func activeKey(eventID string) string  { return "q:" + eventID + ":active" }
func waitingKey(eventID string) string { return "q:" + eventID + ":waiting" }
func usersKey(eventID string) string   { return "q:" + eventID + ":users" }
func timerKey(eventID string) string   { return "q:" + eventID + ":timer" }

func (s *redisStore) AddMember(ctx context.Context, eventID, userID string) (bool, error) {
	added, err := s.client.SAdd(ctx, usersKey(eventID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return added > 0, nil
}

func (s *redisStore) IsMember(ctx context.Context, eventID, userID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, usersKey(eventID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return ok, nil
}

func (s *redisStore) RemoveMembers(ctx context.Context, eventID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	args := make([]interface{}, len(userIDs))
	for i, u := range userIDs {
		args[i] = u
	}
	if err := s.client.SRem(ctx, usersKey(eventID), args...).Err(); err != nil {
		return fmt.Errorf("remove members: %w", err)
	}
	return nil
}

func (s *redisStore) PushWaiting(ctx context.Context, eventID, userID string) error {
	if err := s.client.RPush(ctx, waitingKey(eventID), userID).Err(); err != nil {
		return fmt.Errorf("push waiting: %w", err)
	}
	return nil
}

func (s *redisStore) PopWaitingFront(ctx context.Context, eventID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	popped, err := s.client.LPopCount(ctx, waitingKey(eventID), n).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop waiting: %w", err)
	}
	return popped, nil
}

func (s *redisStore) WaitingUsers(ctx context.Context, eventID string) ([]string, error) {
	users, err := s.client.LRange(ctx, waitingKey(eventID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range waiting: %w", err)
	}
	return users, nil
}

func (s *redisStore) WaitingLen(ctx context.Context, eventID string) (int, error) {
	n, err := s.client.LLen(ctx, waitingKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("len waiting: %w", err)
	}
	return int(n), nil
}

func (s *redisStore) WaitingPosition(ctx context.Context, eventID, userID string) (int, error) {
	pos, err := s.client.LPos(ctx, waitingKey(eventID), userID, redis.LPosArgs{}).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find waiting position: %w", err)
	}
	return int(pos) + 1, nil
}

func (s *redisStore) PushActive(ctx context.Context, eventID, userID string) error {
	if err := s.client.RPush(ctx, activeKey(eventID), userID).Err(); err != nil {
		return fmt.Errorf("push active: %w", err)
	}
	return nil
}

func (s *redisStore) ActiveUsers(ctx context.Context, eventID string) ([]string, error) {
	users, err := s.client.LRange(ctx, activeKey(eventID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range active: %w", err)
	}
	return users, nil
}

func (s *redisStore) ActiveLen(ctx context.Context, eventID string) (int, error) {
	n, err := s.client.LLen(ctx, activeKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("len active: %w", err)
	}
	return int(n), nil
}

func (s *redisStore) IsActiveMember(ctx context.Context, eventID, userID string) (bool, error) {
	pos, err := s.client.LPos(ctx, activeKey(eventID), userID, redis.LPosArgs{}).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find active position: %w", err)
	}
	return pos >= 0, nil
}

func (s *redisStore) ClearActive(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, activeKey(eventID)).Err(); err != nil {
		return fmt.Errorf("clear active: %w", err)
	}
	return nil
}

func (s *redisStore) SetTimer(ctx context.Context, eventID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, timerKey(eventID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("set timer: %w", err)
	}
	return nil
}

func (s *redisStore) TimerTTL(ctx context.Context, eventID string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, timerKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("read timer ttl: %w", err)
	}
	// go-redis reports -2 (key absent) and -1 (no expiry) as negative
	// durations; both collapse to "no timer running" for our purposes.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *redisStore) ClearTimer(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, timerKey(eventID)).Err(); err != nil {
		return fmt.Errorf("clear timer: %w", err)
	}
	return nil
}

func (s *redisStore) Reset(ctx context.Context, eventID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, activeKey(eventID), waitingKey(eventID), usersKey(eventID), timerKey(eventID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reset event: %w", err)
	}
	return nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
