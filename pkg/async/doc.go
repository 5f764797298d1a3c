// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery,
// timeout enforcement and context cancellation.
//
// # Key Functions
//
// SafeGo: fire-and-forget work with a deadline
//
//	async.SafeGo(ctx, logger, 30*time.Second, "audit write", func(ctx context.Context) error {
//		return auditor.Log(ctx, event)
//	})
//
// Go: long-lived loops that exit on context cancellation
//
//	async.Go(ctx, logger, "event subscriber", subscriber.Run)
package async
