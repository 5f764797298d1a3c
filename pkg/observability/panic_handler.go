package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers a panic and logs it with the full stack. Deferred at
// the top of goroutines that must never take the daemon down. The panic is
// swallowed, not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
	}
}

// RecoverPanicWithCallback recovers and logs like RecoverPanic, then runs
// callback. The callback unblocks whatever the panicking code left hanging:
// an HTTP response, a channel close, a released lock.
func RecoverPanicWithCallback(logger *Logger, where string, callback func()) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
		if callback != nil {
			callback()
		}
	}
}

func logPanic(logger *Logger, where string, r interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic": r,
		"stack": string(debug.Stack()),
		"where": where,
	}).Error("panic recovered")
}
