package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow through to the protected resource.
	StateClosed State = iota
	// StateOpen means calls are rejected without being attempted.
	StateOpen
	// StateHalfOpen means a limited number of probe calls are admitted.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of cumulative failures, counted since the
	// last success or reset, that opens the circuit.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is the cool-down measured from the last failure before the
	// next call is admitted as a half-open probe.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxAttempts is the number of probe calls admitted while half-open.
	// Default: 1
	HalfOpenMaxAttempts int

	// OnStateChange is called when the circuit state changes. It runs with the
	// breaker lock held and must not call back into the breaker.
	OnStateChange func(from, to State)

	// IsFailure decides whether an operation error counts against the breaker.
	// Errors it rejects are returned to the caller but leave the failure count
	// untouched; while half-open they count as a successful probe since the
	// resource did answer.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool
}

// CircuitBreaker implements the circuit breaker pattern. One instance is meant
// to guard every outbound call of one kind, so its state reflects aggregate
// upstream health.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	halfOpenCount int
	rejected      int64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxAttempts <= 0 {
		config.HalfOpenMaxAttempts = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker.
//
// When the call is rejected the returned error is an *OpenError carrying the
// remaining cool-down; op is not invoked. Otherwise op's error is returned
// verbatim after the breaker has recorded the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state. An open circuit whose cool-down
// has elapsed reports half-open; the transition itself, and its
// OnStateChange callback, happen on the next Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.effectiveStateLocked()
}

// Reset forces the circuit back to closed with a zero failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenCount = 0
	cb.lastFailure = time.Time{}

	if oldState != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, StateClosed)
	}
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		cb.rejected++
		return &OpenError{RetryAfter: cb.remainingCooldownLocked()}
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxAttempts {
			cb.rejected++
			return &OpenError{}
		}
		cb.halfOpenCount++
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil && cb.config.IsFailure(err)

	switch cb.state {
	case StateClosed:
		switch {
		case failed:
			cb.failures++
			cb.lastFailure = cb.now()
			if cb.failures >= cb.config.FailureThreshold {
				cb.transitionLocked(StateOpen)
			}
		case err == nil:
			cb.failures = 0
		}

	case StateHalfOpen:
		if failed {
			// Probe failed: restart the cool-down.
			cb.failures++
			cb.lastFailure = cb.now()
			cb.transitionLocked(StateOpen)
			return
		}
		cb.failures = 0
		cb.transitionLocked(StateClosed)

	case StateOpen:
		// A probe admitted before another probe re-opened the circuit.
		if failed {
			cb.failures++
			cb.lastFailure = cb.now()
		}
	}
}

func (cb *CircuitBreaker) cooledDownLocked() bool {
	return cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.config.ResetTimeout
}

// currentStateLocked applies the lazy open to half-open transition. Only the
// admission path calls it.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.cooledDownLocked() {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

// effectiveStateLocked reports the state the next call would see without
// mutating the breaker.
func (cb *CircuitBreaker) effectiveStateLocked() State {
	if cb.cooledDownLocked() {
		return StateHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) remainingCooldownLocked() time.Duration {
	remaining := cb.config.ResetTimeout - cb.now().Sub(cb.lastFailure)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateHalfOpen || to == StateClosed {
		cb.halfOpenCount = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.effectiveStateLocked()
	m := CircuitBreakerMetrics{
		State:       state,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		Rejected:    cb.rejected,
	}
	if cb.state == StateHalfOpen {
		m.HalfOpenProbes = cb.halfOpenCount
	}
	if state == StateOpen {
		m.RetryAfter = cb.remainingCooldownLocked()
	}
	return m
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State          State
	Failures       int
	LastFailure    time.Time
	HalfOpenProbes int
	Rejected       int64
	RetryAfter     time.Duration
}
