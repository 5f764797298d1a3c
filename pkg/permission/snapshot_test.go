package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWithRules(orgID int64, rules ...Rule) *Snapshot {
	user := &User{ID: 1, Username: "admin", OrganizationID: orgID, Rules: rules}
	return newSnapshot(user, rules, nil)
}

func TestRuleMatches(t *testing.T) {
	rule := Rule{ID: 1, Resource: ResourceTask, Scope: ScopeOrganization, Operation: OperationView}

	tests := []struct {
		name      string
		scope     Scope
		resource  Resource
		operation Operation
		want      bool
	}{
		{"exact match", ScopeOrganization, ResourceTask, OperationView, true},
		{"wildcard scope", ScopeAny, ResourceTask, OperationView, true},
		{"wildcard resource", ScopeOrganization, ResourceAny, OperationView, true},
		{"wildcard operation", ScopeOrganization, ResourceTask, OperationAny, true},
		{"all wildcards", ScopeAny, ResourceAny, OperationAny, true},
		{"wrong resource", ScopeOrganization, ResourceNode, OperationView, false},
		{"wrong operation", ScopeOrganization, ResourceTask, OperationEdit, false},
		{"broader scope does not satisfy narrower query", ScopeGlobal, ResourceTask, OperationView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.matches(tt.scope, tt.resource, tt.operation))
		})
	}
}

func TestAllowed_FullWildcardAlwaysTrue(t *testing.T) {
	// The (any, any, any) query is the "no permission required" escape for
	// public pages; it must hold even with zero rules.
	empty := snapshotWithRules(7)
	assert.True(t, empty.Allowed(ScopeAny, ResourceAny, OperationAny))
	assert.False(t, empty.Allowed(ScopeAny, ResourceTask, OperationView))
}

func TestAllowed_Monotonic(t *testing.T) {
	base := snapshotWithRules(7,
		Rule{ID: 1, Resource: ResourceTask, Scope: ScopeOrganization, Operation: OperationView},
	)
	grown := snapshotWithRules(7,
		Rule{ID: 1, Resource: ResourceTask, Scope: ScopeOrganization, Operation: OperationView},
		Rule{ID: 2, Resource: ResourceNode, Scope: ScopeGlobal, Operation: OperationEdit},
	)

	queries := []struct {
		scope     Scope
		resource  Resource
		operation Operation
	}{
		{ScopeOrganization, ResourceTask, OperationView},
		{ScopeAny, ResourceTask, OperationAny},
		{ScopeAny, ResourceAny, OperationAny},
	}
	for _, q := range queries {
		if base.Allowed(q.scope, q.resource, q.operation) {
			assert.True(t, grown.Allowed(q.scope, q.resource, q.operation),
				"adding a rule must never turn %v/%v/%v false", q.scope, q.resource, q.operation)
		}
	}
}

func TestAllowedForOrg(t *testing.T) {
	t.Run("global rule dominates any organization", func(t *testing.T) {
		snap := snapshotWithRules(7,
			Rule{ID: 1, Resource: ResourceTask, Scope: ScopeGlobal, Operation: OperationView},
		)
		assert.True(t, snap.AllowedForOrg(ResourceTask, OperationView, 42))
		assert.True(t, snap.AllowedForOrg(ResourceTask, OperationView, 7))
	})

	t.Run("organization rule only applies to own organization", func(t *testing.T) {
		snap := snapshotWithRules(7,
			Rule{ID: 1, Resource: ResourceTask, Scope: ScopeOrganization, Operation: OperationView},
		)
		assert.True(t, snap.AllowedForOrg(ResourceTask, OperationView, 7))
		assert.False(t, snap.AllowedForOrg(ResourceTask, OperationView, 8))
	})
}

func TestAllowedForCollab(t *testing.T) {
	collab := []int64{5, 7, 9}

	t.Run("global rule dominates", func(t *testing.T) {
		snap := snapshotWithRules(99,
			Rule{ID: 1, Resource: ResourceNode, Scope: ScopeGlobal, Operation: OperationView},
		)
		assert.True(t, snap.AllowedForCollab(ResourceNode, OperationView, collab))
	})

	t.Run("collaboration rule requires membership", func(t *testing.T) {
		member := snapshotWithRules(7,
			Rule{ID: 1, Resource: ResourceNode, Scope: ScopeCollaboration, Operation: OperationView},
		)
		outsider := snapshotWithRules(99,
			Rule{ID: 1, Resource: ResourceNode, Scope: ScopeCollaboration, Operation: OperationView},
		)
		assert.True(t, member.AllowedForCollab(ResourceNode, OperationView, collab))
		assert.False(t, outsider.AllowedForCollab(ResourceNode, OperationView, collab))
	})
}

func TestAllowedWithMinScope(t *testing.T) {
	tests := []struct {
		name     string
		ruleAt   Scope
		minScope Scope
		want     bool
	}{
		{"exact scope satisfies", ScopeOrganization, ScopeOrganization, true},
		{"broader scope satisfies", ScopeGlobal, ScopeOwn, true},
		{"collaboration satisfies organization minimum", ScopeCollaboration, ScopeOrganization, true},
		{"narrower scope does not satisfy", ScopeOwn, ScopeOrganization, false},
		{"organization does not satisfy global minimum", ScopeOrganization, ScopeGlobal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotWithRules(7,
				Rule{ID: 1, Resource: ResourceUser, Scope: tt.ruleAt, Operation: OperationEdit},
			)
			assert.Equal(t, tt.want, snap.AllowedWithMinScope(tt.minScope, ResourceUser, OperationEdit))
		})
	}
}

func TestAssignableRoles(t *testing.T) {
	ruleA := Rule{ID: 1, Resource: ResourceUser, Scope: ScopeOrganization, Operation: OperationCreate}
	ruleB := Rule{ID: 2, Resource: ResourceUser, Scope: ScopeOrganization, Operation: OperationEdit}

	roleEmpty := Role{ID: 10, Name: "observer"}
	roleA := Role{ID: 11, Name: "registrar", Rules: []Rule{ruleA}}
	roleAB := Role{ID: 12, Name: "manager", Rules: []Rule{ruleA, ruleB}}
	candidates := []Role{roleEmpty, roleA, roleAB}

	t.Run("role included iff all its rule ids are held", func(t *testing.T) {
		holdsA := snapshotWithRules(7, ruleA)
		got := holdsA.AssignableRoles(7, candidates)
		require.Len(t, got, 2)
		assert.Equal(t, "observer", got[0].Name) // zero rules: vacuously assignable
		assert.Equal(t, "registrar", got[1].Name)

		holdsBoth := snapshotWithRules(7, ruleA, ruleB)
		got = holdsBoth.AssignableRoles(7, candidates)
		require.Len(t, got, 3)
		assert.Equal(t, "manager", got[2].Name)
	})

	t.Run("reserved system roles are never assignable", func(t *testing.T) {
		holdsBoth := snapshotWithRules(7, ruleA, ruleB)
		reserved := []Role{
			{ID: 20, Name: "container"},
			{ID: 21, Name: "node"},
			{ID: 22, Name: "Node"}, // case-insensitive
		}
		assert.Empty(t, holdsBoth.AssignableRoles(7, reserved))
	})

	t.Run("roles bound to another organization are excluded", func(t *testing.T) {
		other := int64(8)
		holdsA := snapshotWithRules(7, ruleA)
		bound := []Role{{ID: 30, Name: "registrar", OrganizationID: &other, Rules: []Rule{ruleA}}}
		assert.Empty(t, holdsA.AssignableRoles(7, bound))
		assert.Len(t, holdsA.AssignableRoles(8, bound), 1)
	})
}

func TestCanAssign(t *testing.T) {
	ruleA := Rule{ID: 1, Resource: ResourceUser, Scope: ScopeOrganization, Operation: OperationCreate}
	ruleB := Rule{ID: 2, Resource: ResourceUser, Scope: ScopeOrganization, Operation: OperationEdit}

	snap := snapshotWithRules(7, ruleA)
	assert.True(t, snap.CanAssign(ruleA))
	assert.False(t, snap.CanAssign(ruleB))
}

func TestCanModifyRulesOf(t *testing.T) {
	ruleA := Rule{ID: 1, Resource: ResourceUser, Scope: ScopeOrganization, Operation: OperationCreate}
	ruleB := Rule{ID: 2, Resource: ResourceUser, Scope: ScopeOrganization, Operation: OperationEdit}
	ruleC := Rule{ID: 3, Resource: ResourceTask, Scope: ScopeGlobal, Operation: OperationDelete}

	principal := snapshotWithRules(7, ruleA, ruleB)

	t.Run("subset closure is editable", func(t *testing.T) {
		other := &User{ID: 2, Rules: []Rule{ruleA}, Roles: []Role{{ID: 10, Name: "registrar", Rules: []Rule{ruleB}}}}
		assert.True(t, principal.CanModifyRulesOf(other))
	})

	t.Run("one extra direct rule blocks the edit", func(t *testing.T) {
		other := &User{ID: 2, Rules: []Rule{ruleA, ruleC}}
		assert.False(t, principal.CanModifyRulesOf(other))
	})

	t.Run("one extra rule via role blocks the edit", func(t *testing.T) {
		other := &User{ID: 2, Roles: []Role{{ID: 10, Name: "admin", Rules: []Rule{ruleA, ruleC}}}}
		assert.False(t, principal.CanModifyRulesOf(other))
	})

	t.Run("nil user is not editable", func(t *testing.T) {
		assert.False(t, principal.CanModifyRulesOf(nil))
	})
}

func TestSnapshotDeduplicatesByRuleID(t *testing.T) {
	// The same rule id arriving via a direct grant and two roles must count
	// once; duplicates are structurally distinct objects with equal ids.
	ruleA := Rule{ID: 1, Resource: ResourceUser, Scope: ScopeOrganization, Operation: OperationCreate}
	user := &User{
		ID:             1,
		OrganizationID: 7,
		Rules:          []Rule{ruleA},
		Roles: []Role{
			{ID: 10, Name: "a"},
			{ID: 11, Name: "b"},
		},
	}
	snap := newSnapshot(user, []Rule{ruleA}, [][]Rule{{ruleA}, {ruleA}})
	assert.Len(t, snap.Rules(), 1)
}

func TestParseRejectsUnknownValues(t *testing.T) {
	_, err := ParseResource("spaceship")
	assert.Error(t, err)
	_, err = ParseScope("universe")
	assert.Error(t, err)
	_, err = ParseOperation("teleport")
	assert.Error(t, err)

	r, err := ParseResource(" Task ")
	require.NoError(t, err)
	assert.Equal(t, ResourceTask, r)
	s, err := ParseScope("GLOBAL")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, s)
	op, err := ParseOperation("View")
	require.NoError(t, err)
	assert.Equal(t, OperationView, op)
}
