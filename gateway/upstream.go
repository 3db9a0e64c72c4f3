package gateway

import (
	"context"
	"time"

	"github.com/jonwraymond/brgateway/observe"
	"github.com/jonwraymond/brgateway/provider"
	"github.com/jonwraymond/brgateway/resilience"
)

// Upstream names.
const (
	UpstreamCNPJ   = "cnpj"
	UpstreamCEP    = "cep"
	UpstreamSearch = "search"
)

// Policy is the resilience policy of one upstream. Zero fields disable the
// corresponding pattern, except the breaker which is always present.
type Policy struct {
	// Timeout bounds each attempt.
	Timeout time.Duration

	// RatePerSecond and Burst pace outbound calls.
	RatePerSecond float64
	Burst         int

	// MaxConcurrent caps in-flight calls.
	MaxConcurrent int

	// RetryAttempts is the total number of attempts for transient failures.
	// Values below 2 disable retries.
	RetryAttempts int

	Breaker resilience.CircuitBreakerConfig
}

// NewUpstreamExecutor builds the executor guarding upstream name. Breaker
// transitions are logged and exported as the gateway.breaker.state gauge.
func NewUpstreamExecutor(name string, p Policy, metrics observe.Metrics, logger observe.Logger) *resilience.Executor {
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	if logger == nil {
		logger = observe.NopLogger()
	}

	bc := p.Breaker
	if bc.IsFailure == nil {
		bc.IsFailure = IsBreakerFailure
	}
	next := bc.OnStateChange
	bc.OnStateChange = func(from, to resilience.State) {
		ctx := context.Background()
		metrics.RecordBreakerState(ctx, name, int64(to))
		logger.Warn(ctx, "circuit breaker state changed",
			observe.F("upstream", name),
			observe.F("from", from.String()),
			observe.F("to", to.String()),
		)
		if next != nil {
			next(from, to)
		}
	}

	opts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(bc)),
	}
	if p.RatePerSecond > 0 {
		opts = append(opts, resilience.WithThrottle(resilience.NewThrottle(resilience.ThrottleConfig{
			Rate:  p.RatePerSecond,
			Burst: p.Burst,
		})))
	}
	if p.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: p.MaxConcurrent,
			MaxWait:       p.Timeout,
		})))
	}
	if p.RetryAttempts > 1 {
		opts = append(opts, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  p.RetryAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
			RetryIf:      provider.IsTransient,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Debug(context.Background(), "retrying upstream call",
					observe.F("upstream", name),
					observe.F("attempt", attempt),
					observe.F("delay_ms", delay.Milliseconds()),
					observe.F("error", err.Error()),
				)
			},
		})))
	}
	if p.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(p.Timeout))
	}

	return resilience.NewExecutor(opts...)
}
