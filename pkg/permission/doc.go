// Package permission implements the console's client-side authorization
// model: a flat catalog of (resource, scope, operation) rules, roles that
// bundle rules, and a per-session evaluator that answers "may the logged-in
// user do X" queries against an immutable in-memory snapshot.
//
// The evaluator owns no I/O. It is fed by a Source (the platform API client)
// during initialization and is purely in-memory afterwards. All rule and role
// data is created and mutated server-side; the console only reads it.
package permission
