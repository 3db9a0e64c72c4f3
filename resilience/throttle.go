package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleConfig configures outbound request pacing.
type ThrottleConfig struct {
	// Rate is the sustained number of operations allowed per second.
	// Default: 10
	Rate float64

	// Burst is the maximum number of operations admitted at once.
	// Default: 1
	Burst int

	// MaxWait is the longest a caller waits for a slot before failing with
	// ErrRateLimitExceeded.
	// Default: 1 second
	MaxWait time.Duration
}

// Throttle paces operations against a single upstream with a token bucket.
// It protects providers from this gateway, where RateLimiter protects the
// gateway from its clients.
type Throttle struct {
	config  ThrottleConfig
	limiter *rate.Limiter
}

// NewThrottle creates a new throttle.
func NewThrottle(config ThrottleConfig) *Throttle {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &Throttle{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow reports whether an operation may start now without waiting.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}

// Wait blocks until a slot is available, MaxWait elapses or ctx ends.
func (t *Throttle) Wait(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, t.config.MaxWait)
	defer cancel()

	if err := t.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimitExceeded
	}
	return nil
}

// Execute waits for a slot and runs op.
func (t *Throttle) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := t.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Config returns the throttle configuration.
func (t *Throttle) Config() ThrottleConfig {
	return t.config
}
