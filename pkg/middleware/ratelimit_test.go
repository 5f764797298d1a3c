package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("key"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("key"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestRateLimitMiddlewareSetsHeaders(t *testing.T) {
	mw := NewRateLimitMiddleware()
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/node", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddlewareRejectsOverLimit(t *testing.T) {
	mw := &RateLimitMiddleware{
		sessionLimiter: NewRateLimiter(PerUserRateLimitConfig()),
		anonymousLimiter: NewRateLimiter(&RateLimitConfig{
			RequestsPerWindow: 1,
			WindowDuration:    time.Minute,
			BurstSize:         0,
		}),
	}
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/node", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestGetClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", getClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", getClientIP(req))
}
