package api

import (
	"net/http"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceNode, permission.OperationView) {
		return
	}

	collaborationID, err := httputil.ParseQueryInt64(r, "collaboration_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid collaboration_id")
		return
	}

	key := cacheKey(sess, collaborationID)
	if nodes, ok := s.caches.nodeCache().Get(key); ok {
		httputil.WriteSuccess(w, nodes)
		return
	}

	nodes, err := sess.Client().ListNodes(r.Context(), collaborationID)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	s.caches.nodeCache().Set(key, nodes)
	httputil.WriteSuccess(w, nodes)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	node, err := sess.Client().GetNode(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceNode, permission.OperationView, node.OrganizationID) {
		return
	}
	httputil.WriteSuccess(w, node)
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var spec platform.NodeSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}
	if !httputil.RequireNonZero(w, spec.CollaborationID, "collaboration_id") {
		return
	}
	if !httputil.RequireNonZero(w, spec.OrganizationID, "organization_id") {
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceNode, permission.OperationCreate, spec.OrganizationID) {
		return
	}

	created, err := sess.Client().CreateNode(r.Context(), spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataNodeCreate, audit.ResourceTypeNode, created.ID, created.Name)
	httputil.WriteCreated(w, created)
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	node, err := sess.Client().GetNode(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceNode, permission.OperationEdit, node.OrganizationID) {
		return
	}

	var spec platform.NodeSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}

	updated, err := sess.Client().UpdateNode(r.Context(), id, spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataNodeUpdate, audit.ResourceTypeNode, id, updated.Name)
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	node, err := sess.Client().GetNode(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForOrg(w, r, sess, snap, permission.ResourceNode, permission.OperationDelete, node.OrganizationID) {
		return
	}

	if err := sess.Client().DeleteNode(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	s.caches.PurgeAll()
	auditMutation(r, sess, audit.EventTypeDataNodeDelete, audit.ResourceTypeNode, id, node.Name)
	httputil.WriteNoContent(w)
}
