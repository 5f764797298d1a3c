package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersWithoutPanic(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	m.PermissionChecksTotal.WithLabelValues("task", "create", "allowed").Inc()
	m.PermissionChecksTotal.WithLabelValues("task", "create", "denied").Inc()
	m.SessionsActive.Set(3)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.PermissionChecksTotal.WithLabelValues("task", "create", "denied")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SessionsActive))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/roles", "418")))
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.EventsPublishedTotal.WithLabelValues("node-online").Inc()

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "console_events_published_total"))
}
