package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger keeps events in memory for assertions
type recordingLogger struct {
	NopLogger
	mu     sync.Mutex
	events []*Event
}

func (l *recordingLogger) LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, &Event{
		EventType:  eventTypeForRequest(r),
		Method:     r.Method,
		Path:       r.URL.Path,
		StatusCode: statusCode,
	})
	return nil
}

func TestMiddlewareLogsMutations(t *testing.T) {
	logger := &recordingLogger{}
	mw := NewMiddleware(logger, nil, false)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/node", nil))

	require.Len(t, logger.events, 1)
	assert.Equal(t, http.StatusCreated, logger.events[0].StatusCode)
}

func TestMiddlewareSkipsPlainReads(t *testing.T) {
	logger := &recordingLogger{}
	mw := NewMiddleware(logger, nil, false)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/node", nil))
	assert.Empty(t, logger.events)
}

func TestMiddlewareLogsDeniedReads(t *testing.T) {
	logger := &recordingLogger{}
	mw := NewMiddleware(logger, nil, false)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/task/3/runs", nil))

	require.Len(t, logger.events, 1)
	assert.Equal(t, http.StatusForbidden, logger.events[0].StatusCode)
}

func TestMiddlewareInjectsLoggerIntoContext(t *testing.T) {
	logger := &recordingLogger{}
	mw := NewMiddleware(logger, nil, true)

	var fromCtx Logger
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Same(t, Logger(logger), fromCtx)
}

func TestEventTypeForRequest(t *testing.T) {
	assert.Equal(t, EventTypeAuthLogin,
		eventTypeForRequest(httptest.NewRequest(http.MethodPost, "/api/session", nil)))
	assert.Equal(t, EventTypeAuthLogout,
		eventTypeForRequest(httptest.NewRequest(http.MethodDelete, "/api/session", nil)))
	assert.Equal(t, EventTypeAccessRunLog,
		eventTypeForRequest(httptest.NewRequest(http.MethodGet, "/api/run/9/log", nil)))
	assert.Equal(t, EventType("http.delete"),
		eventTypeForRequest(httptest.NewRequest(http.MethodDelete, "/api/node/4", nil)))
}
