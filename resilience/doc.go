// Package resilience provides the fault-tolerance primitives the gateway
// wraps around its upstream providers.
//
// # Patterns
//
//   - CircuitBreaker: one shared instance per upstream kind; opens after
//     FailureThreshold cumulative failures and admits half-open probes once
//     ResetTimeout has passed since the last failure.
//
//   - RateLimiter: fixed window admission per client identifier, used at the
//     inbound edge.
//
//   - Deduplicator: collapses concurrent identical requests into a single
//     upstream execution.
//
//   - Orchestrator: runs a primary lookup, fans out derived auxiliary tasks
//     and bounds the whole composite by one deadline.
//
//   - Throttle, Bulkhead, Retry and Timeout: outbound pacing, concurrency
//     caps, backoff and per-attempt time limits, composed by Executor.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    ResetTimeout:     30 * time.Second,
//	})
//
//	exec := resilience.NewExecutor(
//	    resilience.WithThrottle(resilience.NewThrottle(resilience.ThrottleConfig{Rate: 20})),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2})),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	body, err := resilience.Call(ctx, exec, fetch)
//	if d, ok := resilience.RetryAfter(err); ok {
//	    // circuit open; retry after d
//	}
package resilience
