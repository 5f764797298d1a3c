package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage6/console/pkg/observability"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

// fakePlatform serves the minimal endpoints a login touches.
func fakePlatform(t *testing.T, failRoleRules bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "at", "refresh_token": "rt", "user_id": 5}`)
	})
	mux.HandleFunc("/api/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "at2", "refresh_token": "rt2", "user_id": 5}`)
	})
	mux.HandleFunc("/api/rule", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [
			{"id": 1, "resource": "task", "scope": "organization", "operation": "view"},
			{"id": 2, "resource": "node", "scope": "global", "operation": "edit"}
		], "links": {}}`)
	})
	mux.HandleFunc("/api/user/5", func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.Header.Get("Authorization"), "Bearer at")
		fmt.Fprint(w, `{
			"id": 5, "username": "alice", "organization_id": 7,
			"rules": [{"id": 1, "resource": "task", "scope": "organization", "operation": "view"}],
			"roles": [{"id": 10, "name": "researcher"}]
		}`)
	})
	mux.HandleFunc("/api/role/10/rule", func(w http.ResponseWriter, r *http.Request) {
		if failRoleRules {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"msg": "role storage down"}`)
			return
		}
		fmt.Fprint(w, `{"data": [{"id": 2, "resource": "node", "scope": "global", "operation": "edit"}], "links": {}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, srvURL string, ttl time.Duration, max int) *Manager {
	t.Helper()
	base, err := platform.NewClient(srvURL, platform.WithRetryMax(0))
	require.NoError(t, err)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewManager(base, ttl, max, logger, nil, nil)
}

func TestLoginCreatesReadySession(t *testing.T) {
	srv := fakePlatform(t, false)
	m := newTestManager(t, srv.URL, time.Hour, 0)

	sess, err := m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, int64(5), sess.UserID)
	assert.Equal(t, int64(7), sess.OrganizationID)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, permission.StateReady, sess.Evaluator.State())

	snap, ok := sess.Evaluator.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.Allowed(permission.ScopeOrganization, permission.ResourceTask, permission.OperationView))
	assert.True(t, snap.Allowed(permission.ScopeGlobal, permission.ResourceNode, permission.OperationEdit))
}

func TestLoginFailsWholeOnRoleError(t *testing.T) {
	srv := fakePlatform(t, true)
	m := newTestManager(t, srv.URL, time.Hour, 0)

	_, err := m.Login(context.Background(), "alice", "hunter2")
	require.Error(t, err)
	assert.Zero(t, m.Count(), "failed login must not leave a session behind")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/user", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"msg": "invalid credentials"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	m := newTestManager(t, srv.URL, time.Hour, 0)
	_, err := m.Login(context.Background(), "mallory", "guess")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestGetTouchesAndExpires(t *testing.T) {
	srv := fakePlatform(t, false)
	m := newTestManager(t, srv.URL, time.Hour, 0)

	sess, err := m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	got, ok := m.Get(sess.Token)
	require.True(t, ok)
	assert.Equal(t, sess.UserID, got.UserID)

	// jump past the TTL
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = m.Get(sess.Token)
	assert.False(t, ok)
	assert.Zero(t, m.Count())
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	srv := fakePlatform(t, false)
	m := newTestManager(t, srv.URL, time.Hour, 0)

	_, err := m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	_, err = m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, 2, m.Count())

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 2, m.Sweep())
	assert.Zero(t, m.Count())
}

func TestLogoutResetsEvaluator(t *testing.T) {
	srv := fakePlatform(t, false)
	m := newTestManager(t, srv.URL, time.Hour, 0)

	sess, err := m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	m.Logout(context.Background(), sess.Token)
	_, ok := m.Get(sess.Token)
	assert.False(t, ok)
	assert.Equal(t, permission.StateUninitialized, sess.Evaluator.State())
}

func TestLoginHonorsSessionLimit(t *testing.T) {
	srv := fakePlatform(t, false)
	m := newTestManager(t, srv.URL, time.Hour, 1)

	_, err := m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	_, err = m.Login(context.Background(), "alice", "hunter2")
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestRefreshRebuildsPermissions(t *testing.T) {
	srv := fakePlatform(t, false)
	m := newTestManager(t, srv.URL, time.Hour, 0)

	sess, err := m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	refreshed, err := m.Refresh(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, permission.StateReady, refreshed.Evaluator.State())
}

func TestRefreshSwapsClientSafely(t *testing.T) {
	srv := fakePlatform(t, false)
	m := newTestManager(t, srv.URL, time.Hour, 0)

	sess, err := m.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	// in-flight handlers keep reading the client while refreshes replace it
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			_, err := m.Refresh(context.Background(), sess.Token)
			assert.NoError(t, err)
		}
	}()
	for i := 0; i < 1000; i++ {
		client := sess.Client()
		require.NotNil(t, client)
		assert.Equal(t, srv.URL, client.Address())
	}
	<-done
}
