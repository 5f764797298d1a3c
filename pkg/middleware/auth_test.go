package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage6/console/pkg/contextkeys"
	"github.com/vantage6/console/pkg/session"
)

type fakeStore struct {
	sessions map[string]*session.Session
}

func (s *fakeStore) Get(token string) (*session.Session, bool) {
	sess, ok := s.sessions[token]
	return sess, ok
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]*session.Session{
		"tok-1": {Token: "tok-1", UserID: 5, Username: "alice", OrganizationID: 7},
	}}
}

func echoSession(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromRequest(r)
		if sess == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		assert.Equal(t, "5", contextkeys.GetUserID(r.Context()))
		w.Header().Set("X-Username", sess.Username)
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionMiddlewareResolvesToken(t *testing.T) {
	mw := NewSessionMiddleware(newFakeStore(), false)
	handler := mw.Handler(echoSession(t))

	req := httptest.NewRequest(http.MethodGet, "/api/node", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-Username"))
}

func TestSessionMiddlewareRejectsMissingHeader(t *testing.T) {
	mw := NewSessionMiddleware(newFakeStore(), false)
	handler := mw.Handler(echoSession(t))

	req := httptest.NewRequest(http.MethodGet, "/api/node", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddlewareRejectsUnknownToken(t *testing.T) {
	mw := NewSessionMiddleware(newFakeStore(), false)
	handler := mw.Handler(echoSession(t))

	req := httptest.NewRequest(http.MethodGet, "/api/node", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddlewareOptionalPassesThrough(t *testing.T) {
	mw := NewSessionMiddleware(newFakeStore(), true)
	handler := mw.Handler(echoSession(t))

	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, bearerToken(req), "header %q", tt.header)
	}
}
