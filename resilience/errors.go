package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	// Concrete rejections are *OpenError values that match it via errors.Is.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last error once retry attempts are exhausted.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimitExceeded is returned when an outbound throttle cannot grant a slot in time.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a single attempt outlives its Timeout.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrDeadlineExceeded is returned when an Orchestrator run loses its race.
	// Concrete failures are *DeadlineExceededError values that match it via errors.Is.
	ErrDeadlineExceeded = errors.New("resilience: deadline exceeded")
)

// OpenError is returned by CircuitBreaker.Execute when the call was rejected
// without invoking the operation.
type OpenError struct {
	// RetryAfter is the remaining cool-down before the breaker will admit a probe.
	// Zero when the breaker is half-open and out of probe slots.
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryAfter <= 0 {
		return ErrCircuitOpen.Error()
	}
	return fmt.Sprintf("%s (retry after %s)", ErrCircuitOpen.Error(), e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrCircuitOpen.
func (e *OpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// DeadlineExceededError reports that a composite operation did not settle
// before its hard deadline.
type DeadlineExceededError struct {
	Deadline time.Duration
	Elapsed  time.Duration
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("%s after %s (deadline %s)", ErrDeadlineExceeded.Error(),
		e.Elapsed.Round(time.Millisecond), e.Deadline)
}

// Is reports whether target is ErrDeadlineExceeded.
func (e *DeadlineExceededError) Is(target error) bool {
	return target == ErrDeadlineExceeded
}

// RetryAfter extracts a suggested wait from err, if it carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var open *OpenError
	if errors.As(err, &open) {
		return open.RetryAfter, true
	}
	return 0, false
}
