package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

// unreachableRedis returns a client whose every command fails. The
// connection is lazy, so construction succeeds.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
}

func TestDistributedRateLimitFailsOpenOnRedisError(t *testing.T) {
	m := NewDistributedRateLimitMiddleware(unreachableRedis())

	called := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/node", nil))

	assert.True(t, called, "a Redis outage must not block requests")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDistributedRateLimitFailsClosedWhenConfigured(t *testing.T) {
	m := NewDistributedRateLimitMiddleware(unreachableRedis())
	m.SetFallbackEnabled(false)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/node", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDistributedRateLimitHealthCheckReportsOutage(t *testing.T) {
	m := NewDistributedRateLimitMiddleware(unreachableRedis())
	assert.Error(t, m.HealthCheck(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
