package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vantage6/console/pkg/events"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
)

// subscriberBuffer is the per-client channel depth. A client further behind
// than this starts missing events instead of stalling the hub.
const subscriberBuffer = 64

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// streamEvents serves the live platform event stream over Server-Sent
// Events, filtered to what the session is allowed to see.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceEvent, permission.OperationView) {
		return
	}
	if s.hub == nil {
		httputil.WriteNotFound(w, "event stream not configured")
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		httputil.WriteInternalError(w, fmt.Errorf("streaming unsupported"))
		return
	}

	sub := s.hub.Subscribe(subscriberBuffer)
	defer s.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, open := <-sub.C:
			if !open {
				return
			}
			if !eventVisible(snap, event) {
				continue
			}
			payload, err := event.Encode()
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}

// eventVisible applies the session's permission snapshot to one event.
// Events without an organization context are platform-wide notices and pass
// through to anyone holding event view at any scope.
func eventVisible(snap *permission.Snapshot, event events.Event) bool {
	if event.OrganizationID == 0 {
		return true
	}
	return snap.AllowedForOrg(permission.ResourceEvent, permission.OperationView, event.OrganizationID)
}
