package permission

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource implements Source in memory with optional per-role failures.
type fakeSource struct {
	catalog   []Rule
	user      *User
	roleRules map[int64][]Rule
	failRole  int64
	calls     atomic.Int64
}

func (f *fakeSource) RuleCatalog(ctx context.Context) ([]Rule, error) {
	f.calls.Add(1)
	return f.catalog, nil
}

func (f *fakeSource) Principal(ctx context.Context, userID int64) (*User, error) {
	f.calls.Add(1)
	if f.user == nil {
		return nil, errors.New("no such user")
	}
	u := *f.user
	return &u, nil
}

func (f *fakeSource) RoleRules(ctx context.Context, roleID int64) ([]Rule, error) {
	f.calls.Add(1)
	if roleID == f.failRole {
		return nil, errors.New("role fetch failed")
	}
	return f.roleRules[roleID], nil
}

func testSource() *fakeSource {
	ruleA := Rule{ID: 1, Resource: ResourceTask, Scope: ScopeOrganization, Operation: OperationView}
	ruleB := Rule{ID: 2, Resource: ResourceNode, Scope: ScopeGlobal, Operation: OperationView}
	return &fakeSource{
		catalog: []Rule{ruleA, ruleB},
		user: &User{
			ID:             1,
			Username:       "alice",
			OrganizationID: 7,
			Rules:          []Rule{ruleA},
			Roles:          []Role{{ID: 10, Name: "researcher"}},
		},
		roleRules: map[int64][]Rule{10: {ruleB}},
	}
}

func TestEvaluatorLifecycle(t *testing.T) {
	ev := NewEvaluator()
	assert.Equal(t, StateUninitialized, ev.State())

	_, ok := ev.Snapshot()
	assert.False(t, ok, "snapshot must not be observable before Ready")

	require.NoError(t, ev.Initialize(context.Background(), testSource(), 1))
	assert.Equal(t, StateReady, ev.State())

	snap, ok := ev.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.Allowed(ScopeOrganization, ResourceTask, OperationView))
	assert.True(t, snap.Allowed(ScopeGlobal, ResourceNode, OperationView), "role rules must be merged")
	assert.Len(t, snap.Rules(), 2)

	ev.Reset()
	assert.Equal(t, StateUninitialized, ev.State())
	_, ok = ev.Snapshot()
	assert.False(t, ok, "logout must discard all derived authorization state")
}

func TestInitializeFailsWholeOnRoleError(t *testing.T) {
	src := testSource()
	src.failRole = 10

	ev := NewEvaluator()
	err := ev.Initialize(context.Background(), src, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "researcher")

	// A partial rule set must never surface as Ready.
	assert.Equal(t, StateUninitialized, ev.State())
	_, ok := ev.Snapshot()
	assert.False(t, ok)

	// Recovery: the same evaluator can be retried once the fetch works.
	src.failRole = 0
	require.NoError(t, ev.Initialize(context.Background(), src, 1))
	assert.Equal(t, StateReady, ev.State())
}

func TestInitializeIdempotent(t *testing.T) {
	src := testSource()
	ev := NewEvaluator()

	require.NoError(t, ev.Initialize(context.Background(), src, 1))
	first, _ := ev.Snapshot()
	firstRules := first.Rules()

	require.NoError(t, ev.Initialize(context.Background(), src, 1))
	second, ok := ev.Snapshot()
	require.True(t, ok)
	assert.Equal(t, firstRules, second.Rules())
	assert.Equal(t, first.OrganizationID(), second.OrganizationID())
}

func TestWaitReady(t *testing.T) {
	ev := NewEvaluator()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ev.WaitReady(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- ev.WaitReady(context.Background()) }()

	require.NoError(t, ev.Initialize(context.Background(), testSource(), 1))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitReady did not observe the Ready transition")
	}
}

func TestSubscribeObservesTransitions(t *testing.T) {
	ev := NewEvaluator()
	ch := ev.Subscribe()
	assert.Equal(t, StateUninitialized, <-ch)

	require.NoError(t, ev.Initialize(context.Background(), testSource(), 1))

	seen := map[State]bool{}
	for len(seen) < 2 {
		select {
		case s := <-ch:
			seen[s] = true
		case <-time.After(time.Second):
			t.Fatalf("missing transitions, saw %v", seen)
		}
	}
	assert.True(t, seen[StateLoading])
	assert.True(t, seen[StateReady])
}

func TestSubscribeDeliversFinalStateToSlowConsumer(t *testing.T) {
	ev := NewEvaluator()
	ch := ev.Subscribe()

	// never drain while three full init/reset cycles overflow the buffer
	src := testSource()
	require.NoError(t, ev.Initialize(context.Background(), src, 1))
	ev.Reset()
	require.NoError(t, ev.Initialize(context.Background(), src, 1))
	ev.Reset()
	require.NoError(t, ev.Initialize(context.Background(), src, 1))

	last := State(-1)
	for {
		select {
		case s := <-ch:
			last = s
		default:
			assert.Equal(t, StateReady, last,
				"the newest transition must survive the overflow")
			return
		}
	}
}

func TestPreResolvedRoleRulesSkipFetch(t *testing.T) {
	ruleA := Rule{ID: 1, Resource: ResourceTask, Scope: ScopeOwn, Operation: OperationView}
	src := &fakeSource{
		catalog: []Rule{ruleA},
		user: &User{
			ID:             1,
			OrganizationID: 7,
			Roles:          []Role{{ID: 10, Name: "researcher", Rules: []Rule{ruleA}}},
		},
	}

	ev := NewEvaluator()
	require.NoError(t, ev.Initialize(context.Background(), src, 1))

	snap, _ := ev.Snapshot()
	assert.True(t, snap.Allowed(ScopeOwn, ResourceTask, OperationView))
	// catalog + principal only; the embedded role rules were used as-is
	assert.Equal(t, int64(2), src.calls.Load())
}
