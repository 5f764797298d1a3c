package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// MultiLogger fans audit events out to multiple sinks. Writes are
// synchronous so a request's audit record exists before the response is
// sent; a failing sink does not stop the others.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to every given sink
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log logs an audit event to all configured loggers
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogAuthentication logs an authentication event
func (m *MultiLogger) LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, nil, eventType, status)
	event.UserID = userID
	event.Username = username
	event.Message = message
	event.ResourceType = ResourceTypeSession

	return m.Log(ctx, event)
}

// LogAuthorization logs an authorization event
func (m *MultiLogger) LogAuthorization(ctx context.Context, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, nil, EventTypeAuthzDenied, status)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message

	return m.Log(ctx, event)
}

// LogDataMutation logs a data mutation event
func (m *MultiLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, message string) error {
	event := buildBaseEvent(ctx, nil, eventType, EventStatusSuccess)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message

	return m.Log(ctx, event)
}

// LogHTTPRequest logs an HTTP request
func (m *MultiLogger) LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration) error {
	status := EventStatusSuccess
	if statusCode >= 400 {
		status = EventStatusFailure
	}
	if statusCode == http.StatusForbidden {
		status = EventStatusDenied
	}

	event := buildBaseEvent(ctx, r, eventTypeForRequest(r), status)
	event.StatusCode = statusCode
	event.Metadata["duration_ms"] = duration.Milliseconds()

	return m.Log(ctx, event)
}

// Close closes all loggers
func (m *MultiLogger) Close() error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close logger: %w", err)
		}
	}
	return firstErr
}
