// Package session manages console sessions.
//
// A session binds a console token to an authenticated platform client and a
// permission evaluator initialized for that user. The console token is
// opaque (a UUID); the platform's own JWT never leaves the server process.
// Sessions expire after a configurable idle TTL and are removed by a
// periodic sweep.
package session
