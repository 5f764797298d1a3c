package api

import (
	"net/http"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

func (s *Server) listCollaborations(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceCollaboration, permission.OperationView) {
		return
	}

	// Without the global rule, the list is restricted to the caller's own
	// organization's collaborations.
	var filterOrg int64
	if !snap.Allowed(permission.ScopeGlobal, permission.ResourceCollaboration, permission.OperationView) {
		filterOrg = sess.OrganizationID
	}

	key := cacheKey(sess, filterOrg)
	if collabs, ok := s.caches.collabCache().Get(key); ok {
		httputil.WriteSuccess(w, collabs)
		return
	}

	collabs, err := sess.Client().ListCollaborations(r.Context(), filterOrg)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	s.caches.collabCache().Set(key, collabs)
	httputil.WriteSuccess(w, collabs)
}

func (s *Server) getCollaboration(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	collab, err := sess.Client().GetCollaboration(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForCollab(w, r, sess, snap, permission.ResourceCollaboration, permission.OperationView, collab.OrganizationIDs()) {
		return
	}
	httputil.WriteSuccess(w, collab)
}

func (s *Server) createCollaboration(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.require(w, r, sess, snap, permission.ScopeGlobal, permission.ResourceCollaboration, permission.OperationCreate) {
		return
	}

	var spec platform.CollaborationSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}
	if !httputil.RequireNonEmpty(w, spec.Name, "name") {
		return
	}

	created, err := sess.Client().CreateCollaboration(r.Context(), spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataCollabCreate, audit.ResourceTypeCollaboration, created.ID, created.Name)
	httputil.WriteCreated(w, created)
}

func (s *Server) updateCollaboration(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	collab, err := sess.Client().GetCollaboration(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForCollab(w, r, sess, snap, permission.ResourceCollaboration, permission.OperationEdit, collab.OrganizationIDs()) {
		return
	}

	var spec platform.CollaborationSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}

	updated, err := sess.Client().UpdateCollaboration(r.Context(), id, spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataCollabUpdate, audit.ResourceTypeCollaboration, id, updated.Name)
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteCollaboration(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.require(w, r, sess, snap, permission.ScopeGlobal, permission.ResourceCollaboration, permission.OperationDelete) {
		return
	}

	if err := sess.Client().DeleteCollaboration(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataCollabDelete, audit.ResourceTypeCollaboration, id, "")
	httputil.WriteNoContent(w)
}
