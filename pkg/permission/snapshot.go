package permission

import "sort"

// Snapshot is an immutable view of a principal's effective permissions: the
// deduplicated union of their direct rules and all rules reachable through
// their roles, plus the full rule catalog for id lookups. All query methods
// are pure reads; a snapshot is never mutated after construction, only
// replaced wholesale by a re-initialization.
type Snapshot struct {
	userID         int64
	organizationID int64
	rules          []Rule
	ruleIDs        map[int64]struct{}
	catalog        map[int64]Rule
}

// newSnapshot builds a snapshot from the principal's resolved rule sets.
// Duplicates are removed by rule id, never by structural equality; two
// fetches of the same rule yield distinct objects with the same id.
func newSnapshot(user *User, catalog []Rule, roleRules [][]Rule) *Snapshot {
	s := &Snapshot{
		userID:         user.ID,
		organizationID: user.OrganizationID,
		ruleIDs:        make(map[int64]struct{}),
		catalog:        make(map[int64]Rule, len(catalog)),
	}
	for _, r := range catalog {
		s.catalog[r.ID] = r
	}

	add := func(rules []Rule) {
		for _, r := range rules {
			if _, seen := s.ruleIDs[r.ID]; seen {
				continue
			}
			s.ruleIDs[r.ID] = struct{}{}
			s.rules = append(s.rules, r)
		}
	}
	add(user.Rules)
	for _, rules := range roleRules {
		add(rules)
	}

	sort.Slice(s.rules, func(i, j int) bool { return s.rules[i].ID < s.rules[j].ID })
	return s
}

// UserID returns the principal's user id.
func (s *Snapshot) UserID() int64 { return s.userID }

// OrganizationID returns the principal's own organization id.
func (s *Snapshot) OrganizationID() int64 { return s.organizationID }

// Rules returns the principal's effective rule set, sorted by id.
func (s *Snapshot) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// CatalogRule looks up a rule in the full server catalog by id.
func (s *Snapshot) CatalogRule(id int64) (Rule, bool) {
	r, ok := s.catalog[id]
	return r, ok
}

// Allowed reports whether at least one effective rule matches the query
// triple. The full-wildcard query is always allowed, even for a principal
// with zero rules; pages that require no permission query exactly that.
func (s *Snapshot) Allowed(scope Scope, resource Resource, operation Operation) bool {
	if scope == ScopeAny && resource == ResourceAny && operation == OperationAny {
		return true
	}
	for _, r := range s.rules {
		if r.matches(scope, resource, operation) {
			return true
		}
	}
	return false
}

// AllowedForOrg reports whether the principal may perform the operation in
// the context of a specific organization: either globally, or at organization
// scope when the organization is their own.
func (s *Snapshot) AllowedForOrg(resource Resource, operation Operation, organizationID int64) bool {
	if s.Allowed(ScopeGlobal, resource, operation) {
		return true
	}
	return organizationID == s.organizationID &&
		s.Allowed(ScopeOrganization, resource, operation)
}

// AllowedForCollab reports whether the principal may perform the operation in
// the context of a collaboration, given the collaboration's member
// organization ids: either globally, or at collaboration scope when their own
// organization is a member.
func (s *Snapshot) AllowedForCollab(resource Resource, operation Operation, memberOrgIDs []int64) bool {
	if s.Allowed(ScopeGlobal, resource, operation) {
		return true
	}
	if !s.Allowed(ScopeCollaboration, resource, operation) {
		return false
	}
	for _, id := range memberOrgIDs {
		if id == s.organizationID {
			return true
		}
	}
	return false
}

// AllowedWithMinScope reports whether the principal holds the rule at the
// given scope or at any broader scope, in the ordering
// own < organization < collaboration < global.
func (s *Snapshot) AllowedWithMinScope(min Scope, resource Resource, operation Operation) bool {
	minRank, ok := scopeRank[min]
	if !ok {
		// Wildcard minimum degenerates to a plain wildcard-scope query.
		return s.Allowed(ScopeAny, resource, operation)
	}
	for scope, rank := range scopeRank {
		if rank >= minRank && s.Allowed(scope, resource, operation) {
			return true
		}
	}
	return false
}

// CanAssign reports whether the principal holds the given rule and may
// therefore grant it to someone else.
func (s *Snapshot) CanAssign(rule Rule) bool {
	_, ok := s.ruleIDs[rule.ID]
	return ok
}

// AssignableRoles filters candidate roles down to the ones the principal may
// assign within an organization. A role is assignable iff it is not a
// reserved system role, it is not bound to a different organization, and
// every rule it contains is already held by the principal. The last condition
// prevents privilege escalation: nobody can hand out a permission they do not
// have themselves.
func (s *Snapshot) AssignableRoles(organizationID int64, candidates []Role) []Role {
	assignable := make([]Role, 0, len(candidates))
	for _, role := range candidates {
		if IsReserved(role.Name) {
			continue
		}
		if role.OrganizationID != nil && *role.OrganizationID != organizationID {
			continue
		}
		if s.holdsAll(role.Rules) {
			assignable = append(assignable, role)
		}
	}
	return assignable
}

// CanModifyRulesOf reports whether the principal may edit another user's
// rules and roles. Editing is only allowed when the other user's entire
// rule/role closure is a subset of the principal's effective set; otherwise
// saving the edit form would silently grant or preserve permissions the
// principal does not hold.
func (s *Snapshot) CanModifyRulesOf(other *User) bool {
	if other == nil {
		return false
	}
	if !s.holdsAll(other.Rules) {
		return false
	}
	for _, role := range other.Roles {
		if !s.holdsAll(role.Rules) {
			return false
		}
	}
	return true
}

func (s *Snapshot) holdsAll(rules []Rule) bool {
	for _, r := range rules {
		if _, ok := s.ruleIDs[r.ID]; !ok {
			return false
		}
	}
	return true
}
