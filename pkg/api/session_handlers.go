package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/middleware"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token          string            `json:"token"`
	UserID         int64             `json:"user_id"`
	Username       string            `json:"username"`
	OrganizationID int64             `json:"organization_id"`
	Rules          []permission.Rule `json:"rules"`
}

func sessionToResponse(sess *session.Session) sessionResponse {
	resp := sessionResponse{
		Token:          sess.Token,
		UserID:         sess.UserID,
		Username:       sess.Username,
		OrganizationID: sess.OrganizationID,
	}
	if snap, ok := sess.Evaluator.Snapshot(); ok {
		resp.Rules = snap.Rules()
	}
	return resp
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	sess, err := s.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrTooManySessions) {
			httputil.WriteTooManyRequests(w, "session limit reached")
			return
		}
		httputil.WriteUnauthorized(w, "login failed")
		return
	}

	httputil.WriteCreated(w, sessionToResponse(sess))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromRequest(r)
	if sess == nil {
		httputil.WriteUnauthorized(w, "no session")
		return
	}
	s.sessions.Logout(r.Context(), sess.Token)
	httputil.WriteNoContent(w)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromRequest(r)
	if sess == nil {
		httputil.WriteUnauthorized(w, "no session")
		return
	}

	refreshed, err := s.sessions.Refresh(r.Context(), sess.Token)
	if err != nil {
		httputil.WriteUnauthorized(w, "refresh failed")
		return
	}
	httputil.WriteSuccess(w, sessionToResponse(refreshed))
}

func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	snap, sess, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	httputil.WriteSuccess(w, sessionResponse{
		Token:          sess.Token,
		UserID:         snap.UserID(),
		Username:       sess.Username,
		OrganizationID: snap.OrganizationID(),
		Rules:          snap.Rules(),
	})
}

type permissionCheckRequest struct {
	Scope     string `json:"scope"`
	Resource  string `json:"resource"`
	Operation string `json:"operation"`

	// When set, the composite organization guard is used instead of the
	// plain triple match.
	OrganizationID int64 `json:"organization_id,omitempty"`
}

type permissionCheckResponse struct {
	Allowed bool `json:"allowed"`
}

// checkPermission is a probe for the frontend: "would this action be
// allowed?". It never 403s by itself; the answer is the payload.
func (s *Server) checkPermission(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var req permissionCheckRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	scope, resource, operation, err := parseQueryTriple(req.Scope, req.Resource, req.Operation)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var allowed bool
	if req.OrganizationID != 0 {
		allowed = snap.AllowedForOrg(resource, operation, req.OrganizationID)
	} else {
		allowed = snap.Allowed(scope, resource, operation)
	}
	httputil.WriteSuccess(w, permissionCheckResponse{Allowed: allowed})
}

// parseQueryTriple parses a permission query, where each field may be the
// "*" wildcard.
func parseQueryTriple(rawScope, rawResource, rawOperation string) (permission.Scope, permission.Resource, permission.Operation, error) {
	scope := permission.ScopeAny
	if rawScope != "" && rawScope != string(permission.ScopeAny) {
		parsed, err := permission.ParseScope(rawScope)
		if err != nil {
			return "", "", "", err
		}
		scope = parsed
	}

	resource := permission.ResourceAny
	if rawResource != "" && rawResource != string(permission.ResourceAny) {
		parsed, err := permission.ParseResource(rawResource)
		if err != nil {
			return "", "", "", err
		}
		resource = parsed
	}

	operation := permission.OperationAny
	if rawOperation != "" && rawOperation != string(permission.OperationAny) {
		parsed, err := permission.ParseOperation(rawOperation)
		if err != nil {
			return "", "", "", err
		}
		operation = parsed
	}

	return scope, resource, operation, nil
}
