// Package backoffconn is the reconnect policy shared by the ephemeral
// and metadata store constructors: exponential backoff capped at 1s per
// step, at most 3 attempts, after which the caller is expected to fail
// startup rather than retry forever.
package backoffconn

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Dial retries fn with exponential backoff (100ms initial, 1s cap, 3
// attempts in total) and logs each failed attempt that is followed by a
// retry.
func Dial(ctx context.Context, name string, logger *slog.Logger, fn func() error) error {
	if logger == nil {
		logger = slog.Default()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries instead

	bounded := backoff.WithMaxRetries(b, 2) // first attempt + 2 retries
	withCtx := backoff.WithContext(bounded, ctx)

	attempt := 0
	return backoff.RetryNotify(fn, withCtx, func(err error, wait time.Duration) {
		attempt++
		logger.Warn("connection attempt failed, retrying", "target", name, "attempt", attempt, "wait", wait, "error", err)
	})
}
