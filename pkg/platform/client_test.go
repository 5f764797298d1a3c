package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage6/console/pkg/permission"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, WithRetryMax(0))
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadAddress(t *testing.T) {
	_, err := NewClient("https://host:6789/api?x=1")
	assert.Error(t, err)

	c, err := NewClient("server.example.org:6789")
	require.NoError(t, err)
	assert.Equal(t, "https://server.example.org:6789", c.Address())
}

func TestBearerTokenHeader(t *testing.T) {
	var got string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, c.Ping(context.Background()))
	assert.Empty(t, got, "unauthenticated client must not send a token")

	require.NoError(t, c.WithToken("tok-123").Ping(context.Background()))
	assert.Equal(t, "Bearer tok-123", got)
}

func TestErrorFromResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"msg": "node not found"}`)
	}))

	_, err := c.GetNode(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "node not found")
}

func TestListFollowsPagination(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/node", r.URL.Path)
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprint(w, `{"data": [{"id": 1, "name": "alpha"}], "links": {"next": "/api/node?page=2"}}`)
		case "2":
			fmt.Fprint(w, `{"data": [{"id": 2, "name": "beta"}], "links": {}}`)
		default:
			t.Fatalf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))

	nodes, err := c.ListNodes(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "alpha", nodes[0].Name)
	assert.Equal(t, "beta", nodes[1].Name)
}

func TestRuleCatalogValidatesAtBoundary(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data": [
				{"id": 1, "resource": "task", "scope": "GLOBAL", "operation": "view"},
				{"id": 2, "resource": "Node", "scope": "organization", "operation": "edit"}
			], "links": {}}`)
		}))

		rules, err := c.RuleCatalog(context.Background())
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, permission.ResourceTask, rules[0].Resource)
		assert.Equal(t, permission.ScopeGlobal, rules[0].Scope)
		assert.Equal(t, permission.ResourceNode, rules[1].Resource)
	})

	t.Run("unknown enum value is rejected", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data": [{"id": 7, "resource": "spaceship", "scope": "global", "operation": "view"}], "links": {}}`)
		}))

		_, err := c.RuleCatalog(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "spaceship")
	})
}

func TestPrincipalCarriesRolesAndRules(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/user/5", r.URL.Path)
		fmt.Fprint(w, `{
			"id": 5, "username": "alice", "organization_id": 7,
			"rules": [{"id": 1, "resource": "task", "scope": "own", "operation": "view"}],
			"roles": [{"id": 10, "name": "researcher"}]
		}`)
	}))

	principal, err := c.Principal(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), principal.OrganizationID)
	require.Len(t, principal.Rules, 1)
	assert.Equal(t, permission.ScopeOwn, principal.Rules[0].Scope)
	require.Len(t, principal.Roles, 1)
	assert.Empty(t, principal.Roles[0].Rules, "nested role rules arrive as stubs")
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/token/user", r.URL.Path)
		fmt.Fprint(w, `{"access_token": "at", "refresh_token": "rt", "user_id": 5}`)
	}))

	grant, err := c.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "at", grant.AccessToken)
	assert.Equal(t, int64(5), grant.UserID)
}
