package async

import (
	"context"
	"time"

	"github.com/vantage6/console/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` for fire-and-forget work so a panic
// in a background task never takes the daemon down.
//
// Example:
//
//	async.SafeGo(ctx, logger, 5*time.Second, "audit write", func(ctx context.Context) error {
//	    return auditor.Log(ctx, event)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()
		defer observability.RecoverPanic(logger.WithField("task", taskName), taskName)

		if err := fn(ctx); err != nil {
			logger.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
}

// Go runs a long-lived loop in a goroutine with panic recovery and no
// timeout. The function is expected to return when ctx is cancelled.
//
// Example:
//
//	async.Go(ctx, logger, "event subscriber", subscriber.Run)
func Go(ctx context.Context, logger *observability.Logger, taskName string, fn func(context.Context) error) {
	go func() {
		defer observability.RecoverPanic(logger.WithField("task", taskName), taskName)

		if err := fn(ctx); err != nil && err != context.Canceled {
			logger.WithField("task", taskName).WithError(err).Error("background loop exited")
		}
	}()
}
