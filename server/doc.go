// Package server exposes the gateway over HTTP using gin.
//
// Request pipeline:
//
//	otelgin span -> recovery -> access log -> authenticate -> rate limit
//	-> authorize(action) -> handler
//
// Authentication is optional unless Config.RequireAuth is set; anonymous
// clients are rate limited by IP, authenticated ones by principal.
// Health probes and /metrics bypass authentication and rate limiting.
package server
