package api

import (
	"fmt"
	"net/http"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
	"github.com/vantage6/console/pkg/session"
)

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceRole, permission.OperationView) {
		return
	}

	organizationID, err := httputil.ParseQueryInt64(r, "organization_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid organization_id")
		return
	}

	roles, err := sess.Client().ListRoles(r.Context(), organizationID)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceRole, permission.OperationView) {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := sess.Client().GetRole(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// assignableRoles lists the roles of an organization that the caller may
// hand out, filtered through the anti-escalation check.
func (s *Server) assignableRoles(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	organizationID, err := httputil.ParseQueryInt64(r, "organization_id", sess.OrganizationID)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid organization_id")
		return
	}

	candidates, err := sess.Client().ListRoles(r.Context(), 0)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	// Nested role listings may omit member rules; resolve the gaps so the
	// subset check never passes on an empty stub.
	for i := range candidates {
		if len(candidates[i].Rules) == 0 {
			rules, err := sess.Client().RoleRules(r.Context(), candidates[i].ID)
			if err != nil {
				writePlatformError(w, err)
				return
			}
			candidates[i].Rules = rules
		}
	}

	httputil.WriteSuccess(w, snap.AssignableRoles(organizationID, candidates))
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var spec platform.RoleSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}
	if !httputil.RequireNonEmpty(w, spec.Name, "name") {
		return
	}

	targetOrg := sess.OrganizationID
	if spec.OrganizationID != nil {
		targetOrg = *spec.OrganizationID
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceRole, permission.OperationCreate, targetOrg) {
		return
	}
	if !s.checkRoleRules(w, r, sess, snap, spec.RuleIDs) {
		return
	}

	created, err := sess.Client().CreateRole(r.Context(), spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataRoleCreate, audit.ResourceTypeRole, created.ID, created.Name)
	httputil.WriteCreated(w, created)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := sess.Client().GetRole(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if permission.IsReserved(role.Name) {
		httputil.WriteForbidden(w, fmt.Sprintf("role %q is reserved", role.Name))
		return
	}

	targetOrg := sess.OrganizationID
	if role.OrganizationID != nil {
		targetOrg = *role.OrganizationID
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceRole, permission.OperationEdit, targetOrg) {
		return
	}

	// Editing a role the caller could not hand out themselves is the same
	// escalation as assigning it.
	if len(snap.AssignableRoles(targetOrg, []permission.Role{*role})) == 0 {
		s.denyEscalation(w, r, sess, id, fmt.Sprintf("role %q holds rules the caller does not", role.Name))
		return
	}

	var spec platform.RoleSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}
	if !s.checkRoleRules(w, r, sess, snap, spec.RuleIDs) {
		return
	}

	updated, err := sess.Client().UpdateRole(r.Context(), id, spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataRoleUpdate, audit.ResourceTypeRole, id, updated.Name)
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := sess.Client().GetRole(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if permission.IsReserved(role.Name) {
		httputil.WriteForbidden(w, fmt.Sprintf("role %q is reserved", role.Name))
		return
	}

	targetOrg := sess.OrganizationID
	if role.OrganizationID != nil {
		targetOrg = *role.OrganizationID
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceRole, permission.OperationDelete, targetOrg) {
		return
	}

	if err := sess.Client().DeleteRole(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataRoleDelete, audit.ResourceTypeRole, id, role.Name)
	httputil.WriteNoContent(w)
}

// ruleCatalog serves the full server rule catalog; any authenticated session
// may read it, it only describes what permissions exist.
func (s *Server) ruleCatalog(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	key := cacheKey(sess, 0)
	if rules, ok := s.caches.ruleCache().Get(key); ok {
		httputil.WriteSuccess(w, rules)
		return
	}

	rules, err := sess.Client().RuleCatalog(r.Context())
	if err != nil {
		writePlatformError(w, err)
		return
	}
	s.caches.ruleCache().Set(key, rules)
	httputil.WriteSuccess(w, rules)
}

// checkRoleRules verifies the caller holds every rule they are putting into
// a role.
func (s *Server) checkRoleRules(w http.ResponseWriter, r *http.Request, sess *session.Session, snap *permission.Snapshot, ruleIDs []int64) bool {
	for _, ruleID := range ruleIDs {
		rule, ok := snap.CatalogRule(ruleID)
		if !ok {
			httputil.WriteBadRequest(w, fmt.Sprintf("unknown rule %d", ruleID))
			return false
		}
		if !snap.CanAssign(rule) {
			s.denyEscalation(w, r, sess, ruleID, fmt.Sprintf("rule %s is not held by the caller", rule))
			return false
		}
	}
	return true
}
