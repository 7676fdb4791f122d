// Package scheduler is the background rotation driver (C4): a single
// cooperative task that ticks every second, enumerates active events
// from the metadata store, and calls Advance on each. Grounded on bd's
// daemon event loop: a ticker-driven goroutine threaded with a
// structured logger, each tick isolated so one bad iteration never kills
// the loop.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rit1708/waitingroom/internal/engine"
	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/queuestore"
	"github.com/rit1708/waitingroom/internal/types"
)

const (
	tickInterval = time.Second
	outageCooldown = 30 * time.Second
)

// Scheduler is the authoritative driver of batch rotation. Request-path
// Advance calls are opportunistic and must be safe to race against it.
type Scheduler struct {
	eng    *engine.Engine
	mds    metadata.Store
	eqs    queuestore.Store
	logger *slog.Logger

	mu             sync.Mutex
	eqsBackoffUntil time.Time
	mdsBackoffUntil time.Time

	stop chan struct{}
	done chan struct{}
}

// New builds a Scheduler. eqs is probed directly each tick for liveness,
// independent of any individual event's operations.
func New(eng *engine.Engine, mds metadata.Store, eqs queuestore.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		eng:    eng,
		mds:    mds,
		eqs:    eqs,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop halts the tick loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick implements the per-tick algorithm: skip while either store is in
// its outage cooldown, otherwise load active events and advance each in
// isolation.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	skip := now.Before(s.eqsBackoffUntil) || now.Before(s.mdsBackoffUntil)
	s.mu.Unlock()
	if skip {
		return
	}

	events, err := s.mds.ListActiveEvents(ctx)
	if err != nil {
		s.logger.Error("scheduler: metadata store unavailable, suspending rotation", "error", err, "cooldown", outageCooldown)
		s.mu.Lock()
		s.mdsBackoffUntil = now.Add(outageCooldown)
		s.mu.Unlock()
		return
	}

	if err := s.eqs.Ping(ctx); err != nil {
		s.logger.Error("scheduler: ephemeral store unavailable, suspending rotation", "error", err, "cooldown", outageCooldown)
		s.mu.Lock()
		s.eqsBackoffUntil = now.Add(outageCooldown)
		s.mu.Unlock()
		return
	}

	for _, e := range events {
		cfg := types.EventConfig{QueueLimit: e.QueueLimit, IntervalSec: e.IntervalSec}
		if _, err := s.eng.Advance(ctx, e.ID, cfg); err != nil {
			s.logger.Warn("scheduler: advance failed for event", "event", e.ID, "error", err)
			continue
		}
	}
}
