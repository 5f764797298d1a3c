package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage6/console/pkg/contextkeys"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/session"
)

// gateSource blocks inside the catalog fetch until released, holding the
// evaluator in its loading state.
type gateSource struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateSource) RuleCatalog(ctx context.Context) ([]permission.Rule, error) {
	close(g.entered)
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return nil, ctx.Err()
}

func (g *gateSource) Principal(ctx context.Context, userID int64) (*permission.User, error) {
	return &permission.User{ID: userID, OrganizationID: 7}, nil
}

func (g *gateSource) RoleRules(ctx context.Context, roleID int64) ([]permission.Rule, error) {
	return nil, nil
}

func requestWithSession(sess *session.Session) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/session/whoami", nil)
	return req.WithContext(contextkeys.WithSession(req.Context(), sess))
}

func TestGuardReturns503WhileLoading(t *testing.T) {
	s := newTestServer(t)

	eval := permission.NewEvaluator()
	gate := &gateSource{entered: make(chan struct{}), release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		eval.Initialize(ctx, gate, 5)
	}()

	select {
	case <-gate.entered:
	case <-time.After(time.Second):
		t.Fatal("initialization never started")
	}
	require.Equal(t, permission.StateLoading, eval.State())

	rec := httptest.NewRecorder()
	s.whoami(rec, requestWithSession(&session.Session{Token: "t", UserID: 5, Evaluator: eval}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	close(gate.release)
	<-done
}

func TestGuardReturns401ForUninitializedEvaluator(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.whoami(rec, requestWithSession(&session.Session{Token: "t", UserID: 5, Evaluator: permission.NewEvaluator()}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParseQueryTriple(t *testing.T) {
	tests := []struct {
		scope, resource, operation string
		wantErr                    bool
	}{
		{"organization", "node", "view", false},
		{"*", "*", "*", false},
		{"", "", "", false},
		{"galaxy", "node", "view", true},
		{"global", "spaceship", "view", true},
		{"global", "node", "teleport", true},
	}
	for _, tt := range tests {
		_, _, _, err := parseQueryTriple(tt.scope, tt.resource, tt.operation)
		if tt.wantErr {
			assert.Error(t, err, "%s/%s/%s", tt.scope, tt.resource, tt.operation)
		} else {
			assert.NoError(t, err, "%s/%s/%s", tt.scope, tt.resource, tt.operation)
		}
	}
}
