package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
	"github.com/vantage6/console/pkg/session"
)

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceTask, permission.OperationView) {
		return
	}

	collaborationID, err := httputil.ParseQueryInt64(r, "collaboration_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid collaboration_id")
		return
	}

	tasks, err := sess.Client().ListTasks(r.Context(), collaborationID)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, tasks)
}

// guardTask applies the composite task guard: allowed through the initiating
// organization or through collaboration membership.
func (s *Server) guardTask(w http.ResponseWriter, r *http.Request, sess *session.Session, snap *permission.Snapshot, task *platform.Task, operation permission.Operation) bool {
	if snap.AllowedForOrg(permission.ResourceTask, operation, task.InitOrgID) {
		if s.metrics != nil {
			s.metrics.PermissionChecksTotal.WithLabelValues(string(permission.ResourceTask), string(operation), "allowed").Inc()
		}
		return true
	}

	members, err := s.collabMembers(r, sess, task.CollaborationID)
	if err != nil {
		writePlatformError(w, err)
		return false
	}
	return s.requireForCollab(w, r, sess, snap, permission.ResourceTask, operation, members)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := sess.Client().GetTask(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.guardTask(w, r, sess, snap, task, permission.OperationView) {
		return
	}
	httputil.WriteSuccess(w, task)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var spec platform.TaskSpec
	if !httputil.ParseJSONOrError(w, r, &spec) {
		return
	}
	if !httputil.RequireNonEmpty(w, spec.Image, "image") {
		return
	}
	if !httputil.RequireNonZero(w, spec.CollaborationID, "collaboration_id") {
		return
	}

	members, err := s.collabMembers(r, sess, spec.CollaborationID)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForCollab(w, r, sess, snap, permission.ResourceTask, permission.OperationCreate, members) {
		return
	}

	created, err := sess.Client().CreateTask(r.Context(), spec)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	auditMutation(r, sess, audit.EventTypeDataTaskCreate, audit.ResourceTypeTask, created.ID, created.Name)
	httputil.WriteCreated(w, created)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := sess.Client().GetTask(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.guardTask(w, r, sess, snap, task, permission.OperationDelete) {
		return
	}

	if err := sess.Client().DeleteTask(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	auditMutation(r, sess, audit.EventTypeDataTaskDelete, audit.ResourceTypeTask, id, task.Name)
	httputil.WriteNoContent(w)
}

// killTask asks the platform to stop a running task. Killing rides on the
// event send permission, the same channel the platform uses to reach nodes.
func (s *Server) killTask(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := sess.Client().GetTask(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	members, err := s.collabMembers(r, sess, task.CollaborationID)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.requireForCollab(w, r, sess, snap, permission.ResourceEvent, permission.OperationSend, members) {
		return
	}

	if err := sess.Client().KillTask(r.Context(), id); err != nil {
		writePlatformError(w, err)
		return
	}

	auditMutation(r, sess, audit.EventTypeDataTaskKill, audit.ResourceTypeTask, id, task.Name)
	httputil.WriteSuccess(w, map[string]string{"status": "kill requested"})
}

func (s *Server) taskRuns(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := sess.Client().GetTask(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	if !s.guardTask(w, r, sess, snap, task, permission.OperationView) {
		return
	}

	runs, err := sess.Client().TaskRuns(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}
	httputil.WriteSuccess(w, runs)
}

// runLog serves a run's log output. Log access is recorded in the audit
// trail; logs can carry data the task operated on.
func (s *Server) runLog(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.requireAnyScope(w, r, sess, snap, permission.ResourceRun, permission.OperationView) {
		return
	}

	log, err := sess.Client().RunLog(r.Context(), id)
	if err != nil {
		writePlatformError(w, err)
		return
	}

	auditEvent := audit.Event{
		Timestamp:    time.Now().UTC(),
		EventType:    audit.EventTypeAccessRunLog,
		Status:       audit.EventStatusSuccess,
		UserID:       &sess.UserID,
		Username:     sess.Username,
		ResourceType: audit.ResourceTypeRun,
		ResourceID:   strconv.FormatInt(id, 10),
	}
	audit.FromContext(r.Context()).Log(r.Context(), &auditEvent)

	httputil.WriteSuccess(w, map[string]string{"log": log})
}
