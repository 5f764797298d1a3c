package api

import (
	"net/http"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

// Algorithm store links ride on collaboration permissions: linking a store
// changes what a collaboration is allowed to run.

func (s *Server) listAlgorithmStores(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceCollaboration, permission.OperationView) {
		return
	}

	collaborationID, err := httputil.ParseQueryInt64(r, "collaboration_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid collaboration_id")
		return
	}

	stores, err := sess.Client().ListAlgorithmStores(r.Context(), collaborationID)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, stores)
}

func (s *Server) getAlgorithmStore(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceCollaboration, permission.OperationView) {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	store, err := sess.Client().GetAlgorithmStore(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, store)
}

func (s *Server) createAlgorithmStore(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var store platform.AlgorithmStore
	if !httputil.ParseJSONOrError(w, r, &store) {
		return
	}
	if !httputil.RequireNonEmpty(w, store.URL, "url") {
		return
	}

	if store.AllCollaborations || store.CollaborationID == nil {
		// A platform-wide store link needs the global collaboration rule.
		if !s.require(w, r, sess, snap, permission.ScopeGlobal, permission.ResourceCollaboration, permission.OperationEdit) {
			return
		}
	} else {
		members, err := s.collabMembers(r, sess, *store.CollaborationID)
		if err != nil {
			writePlatformError(w, err)
			return
		}
		if !s.requireForCollab(w, r, sess, snap, permission.ResourceCollaboration, permission.OperationEdit, members) {
			return
		}
	}

	created, err := sess.Client().CreateAlgorithmStore(r.Context(), store)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	auditMutation(r, sess, audit.EventTypeDataStoreCreate, audit.ResourceTypeAlgorithmStore, created.ID, created.Name)
	httputil.WriteCreated(w, created)
}

func (s *Server) deleteAlgorithmStore(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	store, err := sess.Client().GetAlgorithmStore(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	if store.AllCollaborations || store.CollaborationID == nil {
		if !s.require(w, r, sess, snap, permission.ScopeGlobal, permission.ResourceCollaboration, permission.OperationEdit) {
			return
		}
	} else {
		members, err := s.collabMembers(r, sess, *store.CollaborationID)
		if err != nil {
			writePlatformError(w, err)
			return
		}
		if !s.requireForCollab(w, r, sess, snap, permission.ResourceCollaboration, permission.OperationEdit, members) {
			return
		}
	}

	if err := sess.Client().DeleteAlgorithmStore(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	auditMutation(r, sess, audit.EventTypeDataStoreDelete, audit.ResourceTypeAlgorithmStore, id, store.Name)
	httputil.WriteNoContent(w)
}
