package permission

import (
	"context"
	"fmt"
	"strings"
)

// Resource is the entity type a rule governs.
type Resource string

const (
	ResourceAny           Resource = "*"
	ResourceUser          Resource = "user"
	ResourceOrganization  Resource = "organization"
	ResourceCollaboration Resource = "collaboration"
	ResourceRole          Resource = "role"
	ResourceNode          Resource = "node"
	ResourceTask          Resource = "task"
	ResourceRun           Resource = "run"
	ResourceEvent         Resource = "event"
	ResourcePort          Resource = "port"
	ResourceRule          Resource = "rule"
	ResourceStudy         Resource = "study"
)

// Scope is the breadth at which a rule applies.
type Scope string

const (
	ScopeAny           Scope = "*"
	ScopeOwn           Scope = "own"
	ScopeOrganization  Scope = "organization"
	ScopeCollaboration Scope = "collaboration"
	ScopeGlobal        Scope = "global"
)

// Operation is the action a rule permits.
type Operation string

const (
	OperationAny    Operation = "*"
	OperationView   Operation = "view"
	OperationCreate Operation = "create"
	OperationEdit   Operation = "edit"
	OperationDelete Operation = "delete"
	OperationSend   Operation = "send"
)

var resources = map[Resource]struct{}{
	ResourceUser: {}, ResourceOrganization: {}, ResourceCollaboration: {},
	ResourceRole: {}, ResourceNode: {}, ResourceTask: {}, ResourceRun: {},
	ResourceEvent: {}, ResourcePort: {}, ResourceRule: {}, ResourceStudy: {},
}

var operations = map[Operation]struct{}{
	OperationView: {}, OperationCreate: {}, OperationEdit: {},
	OperationDelete: {}, OperationSend: {},
}

// scopeRank orders the concrete scopes from narrowest to broadest. The
// wildcard scope has no rank; it never participates in min-scope queries.
var scopeRank = map[Scope]int{
	ScopeOwn:           1,
	ScopeOrganization:  2,
	ScopeCollaboration: 3,
	ScopeGlobal:        4,
}

// ParseResource converts a raw server value into a Resource. Unknown values
// are rejected here so that a typo in server data can never silently deny or
// grant access at query time.
func ParseResource(s string) (Resource, error) {
	r := Resource(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := resources[r]; !ok {
		return "", fmt.Errorf("unknown permission resource %q", s)
	}
	return r, nil
}

// ParseScope converts a raw server value into a Scope.
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := scopeRank[sc]; !ok {
		return "", fmt.Errorf("unknown permission scope %q", s)
	}
	return sc, nil
}

// ParseOperation converts a raw server value into an Operation.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := operations[op]; !ok {
		return "", fmt.Errorf("unknown permission operation %q", s)
	}
	return op, nil
}

// Rule is an atomic permission grant issued by the platform server. Rules are
// immutable; the console only ever reads them.
type Rule struct {
	ID        int64     `json:"id"`
	Resource  Resource  `json:"resource"`
	Scope     Scope     `json:"scope"`
	Operation Operation `json:"operation"`
}

// String returns the rule in "resource:scope:operation" form.
func (r Rule) String() string {
	return fmt.Sprintf("%s:%s:%s", r.Resource, r.Scope, r.Operation)
}

// matches reports whether the rule satisfies the query triple. Each wildcard
// field of the query matches anything; non-wildcard fields require equality.
// Matching is set membership, not hierarchy: a global-scope rule does not
// match an organization-scope query.
func (r Rule) matches(scope Scope, resource Resource, operation Operation) bool {
	if scope != ScopeAny && r.Scope != scope {
		return false
	}
	if resource != ResourceAny && r.Resource != resource {
		return false
	}
	if operation != OperationAny && r.Operation != operation {
		return false
	}
	return true
}

// Role is a named bundle of rules. Roles with a nil OrganizationID are
// platform-wide; others belong to a single organization.
type Role struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
	Rules          []Rule `json:"rules,omitempty"`
}

// Reserved system roles represent container and node identities. They are
// never assignable through the console, regardless of the acting user's own
// rules.
const (
	RoleContainer = "container"
	RoleNode      = "node"
)

// IsReserved reports whether a role name is one of the fixed system roles.
func IsReserved(name string) bool {
	switch strings.ToLower(name) {
	case RoleContainer, RoleNode:
		return true
	}
	return false
}

// User is the principal view the evaluator works with: direct rules plus role
// memberships. Role rules may be unresolved when returned by a Source; the
// evaluator resolves them during initialization.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	OrganizationID int64  `json:"organization_id"`
	Rules          []Rule `json:"rules,omitempty"`
	Roles          []Role `json:"roles,omitempty"`
}

// Source supplies the data an Evaluator needs to build a snapshot. It is
// implemented by the platform API client.
type Source interface {
	// RuleCatalog returns every rule known to the server.
	RuleCatalog(ctx context.Context) ([]Rule, error)

	// Principal returns a user together with their direct rules and role
	// memberships. Role rule lists may be empty stubs.
	Principal(ctx context.Context, userID int64) (*User, error)

	// RoleRules returns the member rules of a single role.
	RoleRules(ctx context.Context, roleID int64) ([]Rule, error)
}
