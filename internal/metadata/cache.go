package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/rit1708/waitingroom/internal/types"
)

const defaultEventCacheTTL = 2 * time.Second

// CachedEventReader wraps a Store with a short-lived read-through cache
// over GetEvent, so the admission path doesn't round-trip to the
// database on every Join/Status call. A cache miss or expiry always
// falls through to the inner store; SetEventActive invalidates the
// entry synchronously so a Start/Stop is visible on the very next read.
type CachedEventReader struct {
	Store

	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cachedEvent
}

type cachedEvent struct {
	event   *types.Event
	expires time.Time
}

// NewCachedEventReader wraps inner with the default 2s TTL.
func NewCachedEventReader(inner Store) *CachedEventReader {
	return &CachedEventReader{Store: inner, ttl: defaultEventCacheTTL, entries: make(map[string]cachedEvent)}
}

func (c *CachedEventReader) GetEvent(ctx context.Context, id string) (*types.Event, error) {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return e.event, nil
	}
	c.mu.Unlock()

	ev, err := c.Store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[id] = cachedEvent{event: ev, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return ev, nil
}

func (c *CachedEventReader) SetEventActive(ctx context.Context, id string, active bool) error {
	if err := c.Store.SetEventActive(ctx, id, active); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
	return nil
}

// Invalidate drops the cached entry for id, if any.
func (c *CachedEventReader) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}
