// Package audit provides audit logging for security, compliance, and forensics.
//
// # Overview
//
// This package tracks authentication events, denied permission checks, and
// every data mutation the console performs against the platform server, with
// full request context. Sinks: a newline-delimited JSON file (with rotation)
// and a local SQLite database for querying; both can run together behind a
// MultiLogger.
//
// # Event Types
//
// Authentication: auth.login, auth.logout, auth.login_failed
// Authorization: authz.denied, authz.role_change
// Data: data.<entity>_create / _update / _delete, data.task_kill
// Access: access.run_log
//
// # Usage Example
//
// Log a login:
//
//	logger.LogAuthentication(ctx, audit.EventTypeAuthLogin,
//		&userID, "alice", audit.EventStatusSuccess, "console login")
//
// Log a mutation:
//
//	logger.LogDataMutation(ctx, audit.EventTypeDataNodeCreate,
//		&userID, audit.ResourceTypeNode, "17", "node registered")
//
// Search the SQLite trail:
//
//	events, err := dbLogger.Search(ctx, audit.SearchFilter{
//		EventTypes: []audit.EventType{audit.EventTypeAuthLoginFailed},
//		Limit:      50,
//	})
//
// # Related Packages
//
//   - pkg/session: Authentication events
//   - pkg/api: Denied permission checks, mutation events
//   - pkg/middleware: HTTP request trail
package audit
