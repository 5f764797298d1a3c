package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
)

// searchAudit serves the audit browser. The trail spans every user's
// actions, so it is gated on the global event view rule.
func (s *Server) searchAudit(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.require(w, r, sess, snap, permission.ScopeGlobal, permission.ResourceEvent, permission.OperationView) {
		return
	}
	if s.searcher == nil {
		httputil.WriteNotFound(w, "audit store not configured")
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := s.searcher.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}

func parseAuditFilter(r *http.Request) (audit.SearchFilter, error) {
	var filter audit.SearchFilter

	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.StartTime = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.EndTime = &t
	}
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.UserID = &id
	}
	filter.Username = q.Get("username")
	if v := q.Get("event_type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			filter.EventTypes = append(filter.EventTypes, audit.EventType(strings.TrimSpace(t)))
		}
	}
	if v := q.Get("status"); v != "" {
		status := audit.EventStatus(v)
		filter.Status = &status
	}
	filter.ResourceType = audit.ResourceType(q.Get("resource_type"))
	filter.ResourceID = q.Get("resource_id")

	limit, err := httputil.ParseQueryInt64(r, "limit", 100)
	if err != nil {
		return filter, err
	}
	offset, err := httputil.ParseQueryInt64(r, "offset", 0)
	if err != nil {
		return filter, err
	}
	filter.Limit = int(limit)
	filter.Offset = int(offset)

	return filter, nil
}
