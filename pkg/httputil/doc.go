// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "Token expired")
//	httputil.WriteForbidden(w, "Insufficient permissions")
//	httputil.WriteServiceUnavailable(w, "Permissions still loading")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req LoginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// Query parameters:
//
//	orgID, err := httputil.ParseQueryInt64(r, "organization_id", 0)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Session authentication and rate limiting middleware
package httputil
