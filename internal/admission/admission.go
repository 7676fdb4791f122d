// Package admission is the request-handler logic between the external
// front door and the queue engine (C5): validates (domain, event) and
// the bearer token, classifies the caller's current state, and shapes
// the response — including the waiting-timer hints a front end renders.
package admission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rit1708/waitingroom/internal/apperr"
	"github.com/rit1708/waitingroom/internal/engine"
	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/tokenauth"
	"github.com/rit1708/waitingroom/internal/types"
)

// Controller is the admission controller (C5).
type Controller struct {
	eng    *engine.Engine
	mds    metadata.Store
	tokens *tokenauth.Registry
	logger *slog.Logger
}

// New builds a Controller.
func New(eng *engine.Engine, mds metadata.Store, tokens *tokenauth.Registry, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{eng: eng, mds: mds, tokens: tokens, logger: logger}
}

// JoinRequest is the validated input to Join.
type JoinRequest struct {
	EventID string
	UserID  string
	Domain  string // optional; if set, must match the event's domain
	Token   string
}

func (c *Controller) resolveEvent(ctx context.Context, eventID, domain string) (*types.Event, error) {
	ev, err := c.mds.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "event not found")
		}
		return nil, apperr.Wrap(apperr.MetadataUnavailable, "resolve event", err)
	}
	if domain != "" && domain != ev.Domain {
		return nil, apperr.New(apperr.Validation, "domain does not match event")
	}
	return ev, nil
}

// Join validates the request, applies the entry-window policy, and
// returns a JoinResult shaped per the branch taken.
func (c *Controller) Join(ctx context.Context, req JoinRequest) (types.JoinResult, error) {
	valid, err := c.tokens.Validate(ctx, req.Token)
	if err != nil {
		return types.JoinResult{}, err
	}
	if !valid {
		return types.JoinResult{}, apperr.New(apperr.Unauthorized, "invalid or missing token")
	}

	ev, err := c.resolveEvent(ctx, req.EventID, req.Domain)
	if err != nil {
		return types.JoinResult{}, err
	}
	cfg := types.EventConfig{QueueLimit: ev.QueueLimit, IntervalSec: ev.IntervalSec}

	snap, err := c.eng.Snapshot(ctx, ev.ID, req.UserID)
	if err != nil {
		return types.JoinResult{}, err
	}

	switch {
	case snap.InActive:
		return types.JoinResult{
			Success: true,
			Status: types.Status{
				State:         types.StateActive,
				Position:      0,
				Total:         snap.ActiveLen + snap.WaitingLen,
				TimeRemaining: ttlSeconds(snap.TTL),
				ActiveUsers:   snap.ActiveLen,
				WaitingUsers:  snap.WaitingLen,
			},
		}, nil

	case snap.InWaiting:
		if _, err := c.eng.Advance(ctx, ev.ID, cfg); err != nil {
			return types.JoinResult{}, err
		}
		st := c.eng.Status(ctx, ev.ID, req.UserID)
		st.ShowWaitingTimer = st.State == types.StateWaiting && st.TimeRemaining > 0 && st.ActiveUsers >= cfg.QueueLimit
		if st.ShowWaitingTimer {
			st.WaitingTimerDuration = cfg.IntervalSec
		}
		return types.JoinResult{Success: true, Status: st}, nil

	case engine.CanEnterDirectly(snap, cfg):
		windowWasOpen := snap.TTL > 0
		if err := c.eng.AdmitDirect(ctx, ev.ID, req.UserID, cfg); err != nil {
			return types.JoinResult{}, err
		}
		post, err := c.eng.Snapshot(ctx, ev.ID, req.UserID)
		if err != nil {
			return types.JoinResult{}, err
		}
		timeRemaining := 0
		if !windowWasOpen {
			timeRemaining = ttlSeconds(post.TTL)
		}
		return types.JoinResult{
			Success: true,
			Status: types.Status{
				State:         types.StateActive,
				Position:      0,
				Total:         post.ActiveLen + post.WaitingLen,
				TimeRemaining: timeRemaining,
				ActiveUsers:   post.ActiveLen,
				WaitingUsers:  post.WaitingLen,
			},
		}, nil

	default:
		if err := c.eng.Enqueue(ctx, ev.ID, req.UserID); err != nil {
			return types.JoinResult{}, err
		}
		st := c.eng.Status(ctx, ev.ID, req.UserID)
		st.ShowWaitingTimer = true
		st.WaitingTimerDuration = cfg.IntervalSec
		return types.JoinResult{Success: true, Status: st}, nil
	}
}

// Status is the idempotent status probe: one opportunistic Advance,
// then the augmented Status view.
func (c *Controller) Status(ctx context.Context, eventID, userID string) (types.Status, error) {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return types.Status{}, err
	}
	cfg := types.EventConfig{QueueLimit: ev.QueueLimit, IntervalSec: ev.IntervalSec}

	// Opportunistic: tolerate an EQS outage here rather than failing the
	// read, matching the degraded-read contract.
	_, _ = c.eng.Advance(ctx, ev.ID, cfg)

	st := c.eng.Status(ctx, ev.ID, userID)
	st.ShowWaitingTimer = st.State == types.StateWaiting && st.TimeRemaining > 0 && st.ActiveUsers >= cfg.QueueLimit
	if st.ShowWaitingTimer {
		st.WaitingTimerDuration = cfg.IntervalSec
	}
	return st, nil
}

// Start, Stop, AdvanceNow, ListUsers, Enqueue, EnqueueBatch, Reset, and
// RecentEntries are the admin operations specified at the engine
// surface, each resolving the event first.

func (c *Controller) Start(ctx context.Context, eventID string) error {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return err
	}
	return c.eng.Start(ctx, ev.ID, types.EventConfig{QueueLimit: ev.QueueLimit, IntervalSec: ev.IntervalSec})
}

func (c *Controller) Stop(ctx context.Context, eventID string) error {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return err
	}
	return c.eng.Stop(ctx, ev.ID)
}

func (c *Controller) AdvanceNow(ctx context.Context, eventID string) ([]string, []string, []string, error) {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := types.EventConfig{QueueLimit: ev.QueueLimit, IntervalSec: ev.IntervalSec}
	moved, err := c.eng.AdvanceNow(ctx, ev.ID, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	active, waiting := c.eng.ListUsers(ctx, ev.ID)
	return moved, active, waiting, nil
}

func (c *Controller) ListUsers(ctx context.Context, eventID string) (active, waiting []string, err error) {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return nil, nil, err
	}
	active, waiting = c.eng.ListUsers(ctx, ev.ID)
	return active, waiting, nil
}

func (c *Controller) Enqueue(ctx context.Context, eventID, userID string) error {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return err
	}
	return c.eng.Enqueue(ctx, ev.ID, userID)
}

func (c *Controller) EnqueueBatch(ctx context.Context, eventID string, n int) ([]string, error) {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return nil, err
	}
	cfg := types.EventConfig{QueueLimit: ev.QueueLimit, IntervalSec: ev.IntervalSec}
	return c.eng.EnqueueBatch(ctx, ev.ID, n, cfg)
}

func (c *Controller) Reset(ctx context.Context, eventID string) error {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return err
	}
	return c.eng.Reset(ctx, ev.ID)
}

// RecentEntries returns the last limit Entry records, newest first,
// capped at 200 regardless of the requested limit.
func (c *Controller) RecentEntries(ctx context.Context, eventID string, limit int) ([]*types.Entry, error) {
	ev, err := c.resolveEvent(ctx, eventID, "")
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	return c.eng.RecentEntries(ctx, ev.ID, limit)
}

// Ready reports whether both backing stores are reachable.
func (c *Controller) Ready(ctx context.Context) error {
	return c.eng.Ready(ctx)
}

func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int(ttl.Round(time.Second) / time.Second)
}
