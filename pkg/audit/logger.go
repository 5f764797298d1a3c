package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/vantage6/console/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// LogAuthentication logs a login, logout or login failure
	LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error

	// LogAuthorization logs a denied or otherwise notable permission decision
	LogAuthorization(ctx context.Context, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error

	// LogDataMutation logs a write performed through the console
	LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, message string) error

	// LogHTTPRequest logs a completed HTTP request (for middleware)
	LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextkeys.AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context, or a no-op logger
// when none is set.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards every event. Used when auditing is disabled.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }

func (NopLogger) LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error {
	return nil
}

func (NopLogger) LogAuthorization(ctx context.Context, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return nil
}

func (NopLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, message string) error {
	return nil
}

func (NopLogger) LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration) error {
	return nil
}

func (NopLogger) Close() error { return nil }

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// buildBaseEvent creates a base audit event with common fields populated
func buildBaseEvent(ctx context.Context, r *http.Request, eventType EventType, status EventStatus) *Event {
	event := &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
		Metadata:  make(map[string]interface{}),
	}

	if r != nil {
		event.IPAddress = getClientIP(r)
		event.UserAgent = r.UserAgent()
		event.Method = r.Method
		event.Path = r.URL.Path
	}

	return event
}
