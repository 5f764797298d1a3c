package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Permission metrics
	PermissionChecksTotal     *prometheus.CounterVec
	EvaluatorInitTotal        *prometheus.CounterVec
	EvaluatorInitDuration     prometheus.Histogram

	// Platform API metrics
	PlatformRequestsTotal     *prometheus.CounterVec
	PlatformRequestDuration   *prometheus.HistogramVec

	// Session metrics
	SessionsActive            prometheus.Gauge
	SessionLoginsTotal        *prometheus.CounterVec
	SessionsExpiredTotal      prometheus.Counter

	// Event stream metrics
	EventStreamClients        prometheus.Gauge
	EventsPublishedTotal      *prometheus.CounterVec
	EventsDroppedTotal        prometheus.Counter

	// Cache metrics
	CacheHitsTotal            *prometheus.CounterVec
	CacheMissesTotal          *prometheus.CounterVec
	CacheEvictionsTotal       *prometheus.CounterVec

	// Audit metrics
	AuditEventsTotal          *prometheus.CounterVec
	AuditErrorsTotal          prometheus.Counter

	// Redis metrics
	RedisConnectionsActive    prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Permission metrics
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_permission_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"resource", "operation", "result"},
		),
		EvaluatorInitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_evaluator_init_total",
				Help: "Total number of permission evaluator initializations",
			},
			[]string{"status"},
		),
		EvaluatorInitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "console_evaluator_init_duration_seconds",
				Help:    "Permission evaluator initialization duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		// Platform API metrics
		PlatformRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_platform_requests_total",
				Help: "Total number of requests to the platform API",
			},
			[]string{"method", "endpoint", "status"},
		),
		PlatformRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_platform_request_duration_seconds",
				Help:    "Platform API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		// Session metrics
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "console_sessions_active",
				Help: "Number of active console sessions",
			},
		),
		SessionLoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_session_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"},
		),
		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "console_sessions_expired_total",
				Help: "Total number of sessions removed by the expiry sweep",
			},
		),

		// Event stream metrics
		EventStreamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "console_event_stream_clients",
				Help: "Number of connected event stream clients",
			},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_events_published_total",
				Help: "Total number of events published to stream clients",
			},
			[]string{"type"},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "console_events_dropped_total",
				Help: "Total number of events dropped for slow stream clients",
			},
		),

		// Cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
		CacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_evictions_total",
				Help: "Total number of cache evictions",
			},
			[]string{"cache_type"},
		),

		// Audit metrics
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_audit_events_total",
				Help: "Total number of audit events recorded",
			},
			[]string{"event_type"},
		),
		AuditErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "console_audit_errors_total",
				Help: "Total number of audit write failures",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "console_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.PermissionChecksTotal,
		m.EvaluatorInitTotal,
		m.EvaluatorInitDuration,
		m.PlatformRequestsTotal,
		m.PlatformRequestDuration,
		m.SessionsActive,
		m.SessionLoginsTotal,
		m.SessionsExpiredTotal,
		m.EventStreamClients,
		m.EventsPublishedTotal,
		m.EventsDroppedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.AuditEventsTotal,
		m.AuditErrorsTotal,
		m.RedisConnectionsActive,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Flush forwards to the wrapped writer so event streams keep working behind
// the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// Record request size
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			// Serve the request
			next.ServeHTTP(rw, r)

			// Record metrics
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
