package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vantage6/console/pkg/contextkeys"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/session"
)

// SessionStore resolves console session tokens. *session.Manager satisfies it.
type SessionStore interface {
	Get(token string) (*session.Session, bool)
}

// SessionMiddleware authenticates requests by their console session token.
type SessionMiddleware struct {
	store SessionStore
	// optional lets unauthenticated requests through without a session in
	// context, for endpoints like login that must work before a session
	// exists.
	optional bool
}

// NewSessionMiddleware creates session authentication middleware.
func NewSessionMiddleware(store SessionStore, optional bool) *SessionMiddleware {
	return &SessionMiddleware{store: store, optional: optional}
}

// Handler wraps an HTTP handler with session authentication. On success the
// session and user ID are stored in the request context.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		sess, ok := m.store.Get(token)
		if !ok {
			httputil.WriteUnauthorized(w, "invalid or expired session")
			return
		}

		ctx := contextkeys.WithSession(r.Context(), sess)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(sess.UserID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromRequest extracts the authenticated session, or nil.
func SessionFromRequest(r *http.Request) *session.Session {
	v := r.Context().Value(contextkeys.SessionKey)
	if v == nil {
		return nil
	}
	sess, ok := v.(*session.Session)
	if !ok {
		return nil
	}
	return sess
}

// bearerToken pulls the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
