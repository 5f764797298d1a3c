// Package middleware provides HTTP middleware for session authentication and rate limiting.
//
// # Overview
//
// This package resolves console session tokens into sessions on the request
// context and applies rate limiting, either in-process or Redis-backed when
// running more than one console instance.
//
// # Middleware Components
//
// SessionMiddleware: session token authentication
//
//	mw := middleware.NewSessionMiddleware(sessionManager, false)
//	router.Use(mw.Handler)
//	// Extracts Bearer token, resolves the session, adds it to the request context
//
// RateLimitMiddleware: in-memory rate limiting
//
//	router.Use(middleware.NewRateLimitMiddleware().Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
//
// # Rate Limiting
//
// Anonymous: 100 req/min, 10 burst
// Per-session: 1000 req/min, 50 burst
// Login endpoint: 10 req/min per IP
//
// # Related Packages
//
//   - pkg/session: session lookup
//   - pkg/permission: per-request permission checks (done in handlers)
package middleware
