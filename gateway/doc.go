// Package gateway serves identifier lookups, web searches and enrichment
// reports on top of the cache and resilience layers.
//
// Every outbound call follows the same path:
//
//	cache hit? -> coalesce identical in-flight keys -> throttle -> bulkhead
//	-> circuit breaker -> retry -> per-attempt timeout -> provider -> cache set
//
// Each upstream (cnpj, cep, search) owns its executor, so one failing
// provider opens only its own breaker. Inbound per-client limiting is exposed
// through ClientLimiter for transports to enforce before calling the service.
package gateway
