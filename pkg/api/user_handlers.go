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

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceUser, permission.OperationView) {
		return
	}

	organizationID, err := httputil.ParseQueryInt64(r, "organization_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid organization_id")
		return
	}

	users, err := sess.Client().ListUsers(r.Context(), organizationID)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := sess.Client().GetUser(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	// Everyone may look at their own account.
	if id != snap.UserID() &&
		!s.requireForOrg(w, r, sess, snap, permission.ResourceUser, permission.OperationView, user.OrganizationID) {
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var spec platform.UserSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}
	if !httputil.RequireNonEmpty(w, spec.Username, "username") {
		return
	}
	if spec.OrganizationID == 0 {
		spec.OrganizationID = sess.OrganizationID
	}

	if !s.requireForOrg(w, r, sess, snap, permission.ResourceUser, permission.OperationCreate, spec.OrganizationID) {
		return
	}
	if !s.checkAssignments(w, r, sess, snap, spec.OrganizationID, spec.RoleIDs, spec.RuleIDs) {
		return
	}

	created, err := sess.Client().CreateUser(r.Context(), spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataUserCreate, audit.ResourceTypeUser, created.ID, created.Username)
	httputil.WriteCreated(w, created)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	target, err := sess.Client().GetUser(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceUser, permission.OperationEdit, target.OrganizationID) {
		return
	}

	var spec platform.UserSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}

	changesAuthorization := spec.RoleIDs != nil || spec.RuleIDs != nil
	if changesAuthorization {
		// Touching another user's roles or rules requires that their whole
		// current permission closure is within the caller's own. Otherwise
		// saving the form would grant or silently preserve permissions the
		// caller does not hold.
		if !snap.CanModifyRulesOf(target.Permission()) {
			s.denyEscalation(w, r, sess, target.ID, "target user holds permissions the caller does not")
			return
		}
		if !s.checkAssignments(w, r, sess, snap, target.OrganizationID, spec.RoleIDs, spec.RuleIDs) {
			return
		}
	}

	updated, err := sess.Client().UpdateUser(r.Context(), id, spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	if changesAuthorization {
		auditMutation(r, sess, audit.EventTypeAuthzRoleChange, audit.ResourceTypeUser, id, "role or rule assignment changed")
	}
	auditMutation(r, sess, audit.EventTypeDataUserUpdate, audit.ResourceTypeUser, id, updated.Username)
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	target, err := sess.Client().GetUser(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceUser, permission.OperationDelete, target.OrganizationID) {
		return
	}

	if err := sess.Client().DeleteUser(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataUserDelete, audit.ResourceTypeUser, id, target.Username)
	httputil.WriteNoContent(w)
}

// checkAssignments verifies that every requested role and rule may be handed
// out by the caller. Roles must survive the AssignableRoles filter (not
// reserved, org-compatible, all member rules held); rules must be in the
// caller's own effective set.
func (s *Server) checkAssignments(w http.ResponseWriter, r *http.Request, sess *session.Session, snap *permission.Snapshot, organizationID int64, roleIDs, ruleIDs []int64) bool {
	for _, roleID := range roleIDs {
		role, err := sess.Client().GetRole(r.Context(), roleID)
		if err != nil {
			writePlatformError(w, err)
			return false
		}
		if len(snap.AssignableRoles(organizationID, []permission.Role{*role})) == 0 {
			s.denyEscalation(w, r, sess, roleID, fmt.Sprintf("role %q is not assignable by the caller", role.Name))
			return false
		}
	}

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

// denyEscalation writes the 403 for a blocked privilege escalation and
// records it.
func (s *Server) denyEscalation(w http.ResponseWriter, r *http.Request, sess *session.Session, resourceID int64, msg string) {
	if s.metrics != nil {
		s.metrics.PermissionChecksTotal.WithLabelValues(string(permission.ResourceRole), string(permission.OperationEdit), "denied").Inc()
	}
	audit.FromContext(r.Context()).LogAuthorization(
		r.Context(), &sess.UserID, audit.ResourceTypeRole, fmt.Sprintf("%d", resourceID), audit.EventStatusDenied, msg)
	httputil.WriteForbidden(w, msg)
}
