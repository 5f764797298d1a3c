package audit

import (
	"net/http"
	"strings"
	"time"

	"github.com/vantage6/console/pkg/observability"
)

// Middleware provides HTTP middleware for audit logging
type Middleware struct {
	logger         Logger
	metrics        *observability.Metrics
	logAllRequests bool // If false, only log mutations and auth failures
}

// NewMiddleware creates a new audit middleware. metrics may be nil.
func NewMiddleware(logger Logger, metrics *observability.Metrics, logAllRequests bool) *Middleware {
	return &Middleware{
		logger:         logger,
		metrics:        metrics,
		logAllRequests: logAllRequests,
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Handler wraps an HTTP handler with audit logging
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ctx := WithLogger(r.Context(), m.logger)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		duration := time.Since(startTime)

		if m.logAllRequests || m.shouldLogRequest(r, wrapped.statusCode) {
			if err := m.logger.LogHTTPRequest(ctx, r, wrapped.statusCode, duration); err != nil {
				observability.FromContext(ctx).WithError(err).Warn("audit write failed")
				if m.metrics != nil {
					m.metrics.AuditErrorsTotal.Inc()
				}
			} else if m.metrics != nil {
				m.metrics.AuditEventsTotal.WithLabelValues(string(eventTypeForRequest(r))).Inc()
			}
		}
	})
}

// shouldLogRequest reports whether a request is audit-worthy on its own:
// any mutation, any denial, any auth failure.
func (m *Middleware) shouldLogRequest(r *http.Request, statusCode int) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized
}

// eventTypeForRequest maps a request to a coarse audit event type. Handlers
// record precise per-entity events themselves; this covers the generic
// request trail.
func eventTypeForRequest(r *http.Request) EventType {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/session"):
		if r.Method == http.MethodDelete {
			return EventTypeAuthLogout
		}
		return EventTypeAuthLogin
	case strings.Contains(path, "/log"):
		return EventTypeAccessRunLog
	default:
		return EventType("http." + strings.ToLower(r.Method))
	}
}
