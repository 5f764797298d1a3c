// Package api implements the console's HTTP API.
//
// # Overview
//
// The API is a thin authorization-aware proxy in front of the platform
// server. Every request runs through the session middleware; handlers check
// the session's permission snapshot before forwarding the call to the
// platform with the session's own token. The platform server re-checks every
// permission, so the console's checks are a UX layer, not the security
// boundary.
//
// # Route Guards
//
// Guards translate evaluator state into HTTP semantics:
//
//   - evaluator Loading: 503 with Retry-After, never a deny
//   - missing rule: 403, recorded in the audit trail
//   - organization- and collaboration-scoped routes use the composite
//     checks (AllowedForOrg, AllowedForCollab)
//
// # Endpoints
//
//	POST   /api/session                    login
//	DELETE /api/session                    logout
//	POST   /api/session/refresh            renew token + permissions
//	GET    /api/session/whoami             user + effective rules
//	POST   /api/session/check              single permission probe
//	CRUD   /api/organization[/{id}]
//	CRUD   /api/collaboration[/{id}]
//	CRUD   /api/node[/{id}]
//	CRUD   /api/user[/{id}]
//	CRUD   /api/role[/{id}]
//	GET    /api/role/assignable            roles the caller may hand out
//	GET    /api/rule                       rule catalog
//	...    /api/task, /api/task/{id}/kill, /api/run/{id}/log
//	CRUD   /api/algorithm-store[/{id}]
//	GET    /api/audit                      audit trail query
//	GET    /api/events                     SSE stream
package api
