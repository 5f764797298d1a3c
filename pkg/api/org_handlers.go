package api

import (
	"net/http"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceOrganization, permission.OperationView) {
		return
	}

	key := cacheKey(sess, 0)
	if orgs, ok := s.caches.orgCache().Get(key); ok {
		httputil.WriteSuccess(w, orgs)
		return
	}

	orgs, err := sess.Client().ListOrganizations(r.Context())
	if err != nil {
		writePlatformError(w, err)
		return
	}
	s.caches.orgCache().Set(key, orgs)
	httputil.WriteSuccess(w, orgs)
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceOrganization, permission.OperationView, id) {
		return
	}

	org, err := sess.Client().GetOrganization(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.require(w, r, sess, snap, permission.ScopeGlobal, permission.ResourceOrganization, permission.OperationCreate) {
		return
	}

	var org platform.Organization
	if !httputil.ParseJSONOrError(w, r, &org) {
		return
	}
	if !httputil.RequireNonEmpty(w, org.Name, "name") {
		return
	}

	created, err := sess.Client().CreateOrganization(r.Context(), org)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataOrgCreate, audit.ResourceTypeOrganization, created.ID, created.Name)
	httputil.WriteCreated(w, created)
}

func (s *Server) updateOrganization(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceOrganization, permission.OperationEdit, id) {
		return
	}

	var org platform.Organization
	if !httputil.ParseJSONOrError(w, r, &org) {
		return
	}

	updated, err := sess.Client().UpdateOrganization(r.Context(), id, org)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataOrgUpdate, audit.ResourceTypeOrganization, id, updated.Name)
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.require(w, r, sess, snap, permission.ScopeGlobal, permission.ResourceOrganization, permission.OperationDelete) {
		return
	}

	if err := sess.Client().DeleteOrganization(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataOrgDelete, audit.ResourceTypeOrganization, id, "")
	httputil.WriteNoContent(w)
}
