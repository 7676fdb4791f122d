package engine

import (
	"context"
	"time"

	"github.com/rit1708/waitingroom/internal/apperr"
	"github.com/rit1708/waitingroom/internal/types"
)

// Enqueue adds u to the waiting line unless it is already a member.
// Idempotent: re-submitting a present user is a no-op.
func (e *Engine) Enqueue(ctx context.Context, eventID, userID string) error {
	added, err := e.eqs.AddMember(ctx, eventID, userID)
	if err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "enqueue", err)
	}
	if !added {
		return nil
	}
	if err := e.eqs.PushWaiting(ctx, eventID, userID); err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "enqueue", err)
	}
	return nil
}

// AdmitDirect admits u straight into the active batch, bypassing the
// waiting line. Callers must have already established the precondition
// (u is not a member and the entry window is open); AdmitDirect itself
// only guards against a racing duplicate membership.
func (e *Engine) AdmitDirect(ctx context.Context, eventID, userID string, cfg types.EventConfig) error {
	added, err := e.eqs.AddMember(ctx, eventID, userID)
	if err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "admit", err)
	}
	if !added {
		return nil
	}
	if err := e.eqs.PushActive(ctx, eventID, userID); err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "admit", err)
	}

	// Best-effort journal write: never fails the admission.
	if err := e.mds.InsertEntry(ctx, eventID, userID, time.Now().UTC()); err != nil {
		e.logger.Warn("entry journal write failed", "event", eventID, "user", userID, "error", err)
	}

	activeLen, err := e.eqs.ActiveLen(ctx, eventID)
	if err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "admit", err)
	}
	ttl, err := e.eqs.TimerTTL(ctx, eventID)
	if err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "admit", err)
	}
	if activeLen >= cfg.QueueLimit || ttl <= 0 {
		if err := e.eqs.SetTimer(ctx, eventID, time.Duration(cfg.IntervalSec)*time.Second); err != nil {
			return apperr.Wrap(apperr.EphemeralUnavailable, "admit", err)
		}
	}
	return nil
}

// Advance runs the rotation algorithm once for eventID, coalescing
// concurrent callers (the scheduler tick and opportunistic request-path
// calls) into a single execution via singleflight.
func (e *Engine) Advance(ctx context.Context, eventID string, cfg types.EventConfig) ([]string, error) {
	v, err, _ := e.sf.Do(eventID, func() (interface{}, error) {
		return e.advance(ctx, eventID, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (e *Engine) advance(ctx context.Context, eventID string, cfg types.EventConfig) ([]string, error) {
	L, I := cfg.QueueLimit, cfg.IntervalSec

	ttl, err := e.eqs.TimerTTL(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
	}
	activeLen, err := e.eqs.ActiveLen(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
	}
	waitingLen, err := e.eqs.WaitingLen(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
	}

	var slots int
	freshWindow := false

	switch {
	case activeLen >= L && ttl <= 0:
		// Batch turnover: the window expired with a full (or formerly
		// full) batch. Evict everyone, prune their membership, and open
		// a fresh window immediately.
		evicted, err := e.eqs.ActiveUsers(ctx, eventID)
		if err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
		}
		if err := e.eqs.ClearActive(ctx, eventID); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
		}
		if len(evicted) > 0 {
			if err := e.eqs.RemoveMembers(ctx, eventID, evicted); err != nil {
				return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
			}
		}
		if err := e.eqs.SetTimer(ctx, eventID, time.Duration(I)*time.Second); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
		}
		freshWindow = true
		slots = L
		activeLen = 0
	case ttl > 0:
		slots = L - activeLen
		if slots < 0 {
			slots = 0
		}
	default:
		slots = L
	}

	if slots == 0 || waitingLen == 0 {
		return []string{}, nil
	}

	popped, err := e.eqs.PopWaitingFront(ctx, eventID, slots)
	if err != nil {
		return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
	}
	for _, u := range popped {
		if err := e.eqs.PushActive(ctx, eventID, u); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
		}
		if err := e.mds.InsertEntry(ctx, eventID, u, time.Now().UTC()); err != nil {
			e.logger.Warn("entry journal write failed", "event", eventID, "user", u, "error", err)
		}
	}

	if activeLen+len(popped) >= L || freshWindow {
		if err := e.eqs.SetTimer(ctx, eventID, time.Duration(I)*time.Second); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance", err)
		}
	}
	return popped, nil
}

// AdvanceNow is the privileged manual rotation: unconditionally turns
// over the active batch regardless of timer state.
func (e *Engine) AdvanceNow(ctx context.Context, eventID string, cfg types.EventConfig) ([]string, error) {
	evicted, err := e.eqs.ActiveUsers(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance-now", err)
	}
	if err := e.eqs.ClearActive(ctx, eventID); err != nil {
		return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance-now", err)
	}
	if len(evicted) > 0 {
		if err := e.eqs.RemoveMembers(ctx, eventID, evicted); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance-now", err)
		}
	}

	popped, err := e.eqs.PopWaitingFront(ctx, eventID, cfg.QueueLimit)
	if err != nil {
		return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance-now", err)
	}
	for _, u := range popped {
		if err := e.eqs.PushActive(ctx, eventID, u); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance-now", err)
		}
		if err := e.mds.InsertEntry(ctx, eventID, u, time.Now().UTC()); err != nil {
			e.logger.Warn("entry journal write failed", "event", eventID, "user", u, "error", err)
		}
	}

	if len(popped) > 0 {
		if err := e.eqs.SetTimer(ctx, eventID, time.Duration(cfg.IntervalSec)*time.Second); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance-now", err)
		}
	} else {
		if err := e.eqs.ClearTimer(ctx, eventID); err != nil {
			return nil, apperr.Wrap(apperr.EphemeralUnavailable, "advance-now", err)
		}
	}
	return popped, nil
}

// Status returns the point-in-time view of u's relationship to eventID.
// On an EQS outage it degrades to a zeroed response rather than failing
// the caller, per the read-path degraded-mode contract.
func (e *Engine) Status(ctx context.Context, eventID, userID string) types.Status {
	snap, err := e.Snapshot(ctx, eventID, userID)
	if err != nil {
		e.logger.Warn("status degraded: ephemeral store unavailable", "event", eventID, "error", err)
		snap = DegradedSnapshot()
	}

	st := types.Status{
		ActiveUsers:   snap.ActiveLen,
		WaitingUsers:  snap.WaitingLen,
		Total:         snap.ActiveLen + snap.WaitingLen,
		TimeRemaining: ttlSeconds(snap.TTL),
	}
	switch {
	case snap.InActive:
		st.State = types.StateActive
		st.Position = 0
	case snap.InWaiting:
		st.State = types.StateWaiting
		pos, err := e.eqs.WaitingPosition(ctx, eventID, userID)
		if err != nil {
			pos = 0
		}
		st.Position = pos
	default:
		// A user with no membership is reported as waiting, per the
		// wire contract's state∈{active,waiting}: position is the
		// informational "if you joined right now" slot, not a claim
		// of membership.
		st.State = types.StateWaiting
		st.Position = snap.WaitingLen + 1
	}
	return st
}

// Start backfills the active batch from the waiting line if it is
// currently empty, then marks the event active in MDS.
func (e *Engine) Start(ctx context.Context, eventID string, cfg types.EventConfig) error {
	activeLen, err := e.eqs.ActiveLen(ctx, eventID)
	if err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "start", err)
	}
	if activeLen == 0 {
		popped, err := e.eqs.PopWaitingFront(ctx, eventID, 1)
		if err != nil {
			return apperr.Wrap(apperr.EphemeralUnavailable, "start", err)
		}
		if len(popped) > 0 {
			if err := e.eqs.PushActive(ctx, eventID, popped[0]); err != nil {
				return apperr.Wrap(apperr.EphemeralUnavailable, "start", err)
			}
			if err := e.mds.InsertEntry(ctx, eventID, popped[0], time.Now().UTC()); err != nil {
				e.logger.Warn("entry journal write failed", "event", eventID, "user", popped[0], "error", err)
			}
			if err := e.eqs.SetTimer(ctx, eventID, time.Duration(cfg.IntervalSec)*time.Second); err != nil {
				return apperr.Wrap(apperr.EphemeralUnavailable, "start", err)
			}
		}
	}
	if err := e.mds.SetEventActive(ctx, eventID, true); err != nil {
		return apperr.Wrap(apperr.MetadataUnavailable, "start", err)
	}
	return nil
}

// Stop clears the active batch and timer but preserves the waiting
// line, then marks the event inactive in MDS.
func (e *Engine) Stop(ctx context.Context, eventID string) error {
	if err := e.eqs.ClearActive(ctx, eventID); err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "stop", err)
	}
	if err := e.eqs.ClearTimer(ctx, eventID); err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "stop", err)
	}
	if err := e.mds.SetEventActive(ctx, eventID, false); err != nil {
		return apperr.Wrap(apperr.MetadataUnavailable, "stop", err)
	}
	return nil
}

// Reset hard-deletes every ephemeral key for eventID: the supplemented
// administrative operation used to return an event to a never-used
// state without touching its durable record.
func (e *Engine) Reset(ctx context.Context, eventID string) error {
	if err := e.eqs.Reset(ctx, eventID); err != nil {
		return apperr.Wrap(apperr.EphemeralUnavailable, "reset", err)
	}
	return nil
}

// ListUsers returns the active batch and waiting line in order. On an
// EQS outage it degrades to empty slices, matching Status.
func (e *Engine) ListUsers(ctx context.Context, eventID string) (active, waiting []string) {
	active, err := e.eqs.ActiveUsers(ctx, eventID)
	if err != nil {
		e.logger.Warn("list-users degraded: ephemeral store unavailable", "event", eventID, "error", err)
		active = nil
	}
	waiting, err = e.eqs.WaitingUsers(ctx, eventID)
	if err != nil {
		e.logger.Warn("list-users degraded: ephemeral store unavailable", "event", eventID, "error", err)
		waiting = nil
	}
	return active, waiting
}

// RecentEntries returns the most recent Entry records for eventID,
// newest first, capped at limit.
func (e *Engine) RecentEntries(ctx context.Context, eventID string, limit int) ([]*types.Entry, error) {
	entries, err := e.mds.ListRecentEntries(ctx, eventID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.MetadataUnavailable, "list entries", err)
	}
	return entries, nil
}
