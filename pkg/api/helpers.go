package api

import (
	"net/http"
	"strconv"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/platform"
	"github.com/vantage6/console/pkg/session"
)

// writePlatformError maps a platform client error onto the console response.
// Not-found passes through; everything else is a bad gateway, the platform
// being the upstream we proxy for.
func writePlatformError(w http.ResponseWriter, err error) {
	if platform.IsNotFound(err) {
		httputil.WriteNotFound(w, "not found")
		return
	}
	httputil.WriteError(w, http.StatusBadGateway, err)
}

// auditMutation records a successful write with its semantic event type. The
// audit middleware separately records the raw HTTP request.
func auditMutation(r *http.Request, sess *session.Session, eventType audit.EventType, resourceType audit.ResourceType, resourceID int64, message string) {
	audit.FromContext(r.Context()).LogDataMutation(
		r.Context(), eventType, &sess.UserID, resourceType, strconv.FormatInt(resourceID, 10), message)
}

// cacheKey builds a per-user cache key. Lists come back filtered by the
// session's own platform token, so entries are never shared across users.
func cacheKey(sess *session.Session, filterID int64) string {
	return strconv.FormatInt(sess.UserID, 10) + ":" + strconv.FormatInt(filterID, 10)
}

// collabMembers returns the member organization ids of a collaboration.
func (s *Server) collabMembers(r *http.Request, sess *session.Session, collaborationID int64) ([]int64, error) {
	collab, err := sess.Client().GetCollaboration(r.Context(), collaborationID)
	if err != nil {
		return nil, err
	}
	return collab.OrganizationIDs(), nil
}
