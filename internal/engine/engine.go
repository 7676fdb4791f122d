// Package engine implements the queue admission and rotation protocol:
// the pure contract over the ephemeral queue store (EQS) and metadata
// store (MDS) that the admission controller and scheduler both drive.
// Grounded on bd's daemon event-loop composition style: a struct holding
// its store handles and a logger, one method per protocol operation, no
// hidden global state.
package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rit1708/waitingroom/internal/apperr"
	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/queuestore"
	"github.com/rit1708/waitingroom/internal/types"
)

// Engine is the queue admission and rotation engine (C3). A single
// instance is shared across all request handlers and the scheduler.
type Engine struct {
	eqs    queuestore.Store
	mds    metadata.Store
	logger *slog.Logger

	// sf coalesces concurrent opportunistic Advance calls for the same
	// event so a burst of status probes during a rotation performs one
	// turnover instead of racing redundant ones.
	sf singleflight.Group
}

// New builds an Engine over the given stores.
func New(eqs queuestore.Store, mds metadata.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{eqs: eqs, mds: mds, logger: logger}
}

// Snapshot is the raw per-event state read at the start of any
// protocol operation. Exported so the admission controller's
// classification table can apply the entry-window policy without
// re-reading the store itself.
type Snapshot struct {
	TTL        time.Duration
	ActiveLen  int
	WaitingLen int
	InActive   bool
	InWaiting  bool
}

// Snapshot reads the raw state relevant to a single user's relationship
// to an event: timer TTL, active/waiting lengths, and membership.
func (e *Engine) Snapshot(ctx context.Context, eventID, userID string) (Snapshot, error) {
	ttl, err := e.eqs.TimerTTL(ctx, eventID)
	if err != nil {
		return Snapshot{}, apperr.Wrap(apperr.EphemeralUnavailable, "read timer", err)
	}
	activeLen, err := e.eqs.ActiveLen(ctx, eventID)
	if err != nil {
		return Snapshot{}, apperr.Wrap(apperr.EphemeralUnavailable, "read active length", err)
	}
	waitingLen, err := e.eqs.WaitingLen(ctx, eventID)
	if err != nil {
		return Snapshot{}, apperr.Wrap(apperr.EphemeralUnavailable, "read waiting length", err)
	}
	var inActive, inWaiting bool
	if userID != "" {
		inActive, err = e.eqs.IsActiveMember(ctx, eventID, userID)
		if err != nil {
			return Snapshot{}, apperr.Wrap(apperr.EphemeralUnavailable, "read active membership", err)
		}
		if !inActive {
			pos, err := e.eqs.WaitingPosition(ctx, eventID, userID)
			if err != nil {
				return Snapshot{}, apperr.Wrap(apperr.EphemeralUnavailable, "read waiting position", err)
			}
			inWaiting = pos > 0
		}
	}
	return Snapshot{
		TTL:        ttl,
		ActiveLen:  activeLen,
		WaitingLen: waitingLen,
		InActive:   inActive,
		InWaiting:  inWaiting,
	}, nil
}

// CanEnterDirectly implements the entry-window policy: a user may skip
// the waiting line either into an open window with spare capacity, or
// when the queue is entirely idle (no window, no backlog).
func CanEnterDirectly(snap Snapshot, cfg types.EventConfig) bool {
	windowActive := snap.TTL > 0
	hasSlot := snap.ActiveLen < cfg.QueueLimit
	return (!windowActive && snap.WaitingLen == 0) || hasSlot
}

// DegradedSnapshot reports on an EQS outage: Status and list-users must
// degrade to a zeroed read rather than fail the caller.
func DegradedSnapshot() Snapshot {
	return Snapshot{}
}

// Ready probes both backing stores for liveness, for the HTTP surface's
// readiness endpoint.
func (e *Engine) Ready(ctx context.Context) error {
	if err := e.eqs.Ping(ctx); err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "ping ephemeral store", err)
	}
	if err := e.mds.Ping(ctx); err != nil {
		return apperr.Wrap(apperr.MetadataUnavailable, "ping metadata store", err)
	}
	return nil
}

func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int(ttl.Round(time.Second) / time.Second)
}
