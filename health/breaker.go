package health

import (
	"context"

	"github.com/jonwraymond/brgateway/resilience"
)

// BreakerSource exposes circuit breaker statistics.
type BreakerSource interface {
	Metrics() resilience.CircuitBreakerMetrics
}

// BreakerChecker reports an upstream's health from its circuit breaker:
// closed is healthy, half-open is degraded and open is unhealthy.
type BreakerChecker struct {
	name    string
	breaker BreakerSource
}

// NewBreakerChecker creates a checker named name over breaker.
func NewBreakerChecker(name string, breaker BreakerSource) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: breaker}
}

// Name returns the name of this checker.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check reads the breaker state without admitting a call.
func (c *BreakerChecker) Check(_ context.Context) Result {
	m := c.breaker.Metrics()
	details := map[string]any{
		"state":    m.State.String(),
		"failures": m.Failures,
		"rejected": m.Rejected,
	}

	switch m.State {
	case resilience.StateOpen:
		details["retry_after"] = m.RetryAfter.String()
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, probing upstream").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}
