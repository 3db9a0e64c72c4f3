// Package health reports the gateway's readiness.
//
// A Checker reports Healthy, Degraded or Unhealthy. The gateway registers a
// BreakerChecker per upstream provider, a PingChecker for the durable cache
// and a MemoryChecker for the in-process cache. An Aggregator folds them into
// one status:
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//	agg.RegisterOptional("cnpj", health.NewBreakerChecker("cnpj", breaker))
//
//	report := agg.CheckAll(ctx)
//
// Optional checkers degrade the overall status instead of failing it.
//
// # HTTP Endpoints
//
//	LivenessHandler()        // 200 while the process serves
//	ReadinessHandler(agg)    // 503 when unhealthy
//	DetailedHandler(agg)     // JSON report of every check
package health
