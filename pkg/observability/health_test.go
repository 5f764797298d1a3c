package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestLivenessAlwaysOK(t *testing.T) {
	checker := NewHealthChecker(nil, nil, "test")

	rec := httptest.NewRecorder()
	checker.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessHealthyPlatform(t *testing.T) {
	checker := NewHealthChecker(stubPinger{}, nil, "1.2.3")

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, StatusHealthy, status.Dependencies["platform"].Status)
}

func TestReadinessUnreachablePlatformIs503(t *testing.T) {
	checker := NewHealthChecker(stubPinger{err: errors.New("connection refused")}, nil, "test")

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Contains(t, status.Dependencies["platform"].Message, "connection refused")
}
