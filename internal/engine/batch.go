package engine

import (
	"context"
	"time"

	"github.com/rit1708/waitingroom/internal/idgen"
	"github.com/rit1708/waitingroom/internal/types"
)

// EnqueueBatch is the test/load helper: it generates n synthetic user ids,
// enqueues each, then runs one Advance so the resulting state is
// immediately observable. Synthetic ids reuse the hash-based id scheme
// the rest of the module uses for short, collision-resistant identifiers.
func (e *Engine) EnqueueBatch(ctx context.Context, eventID string, n int, cfg types.EventConfig) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	now := time.Now()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := idgen.GenerateHashID("load", eventID, now, 8, i)
		if err := e.Enqueue(ctx, eventID, id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	if _, err := e.Advance(ctx, eventID, cfg); err != nil {
		return ids, err
	}
	return ids, nil
}
