package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the per-client fixed window rate limiter.
type RateLimiterConfig struct {
	// Window is the length of one counting window.
	// Default: 60 seconds
	Window time.Duration

	// MaxRequests is the number of requests a client may make per window.
	// Default: 100
	MaxRequests int

	// CleanupInterval is how often StartJanitor purges expired windows.
	// Default: Window
	CleanupInterval time.Duration
}

// RateLimiter counts requests per client identifier in fixed, non-overlapping
// windows. A client's window starts at its first request and is replaced by a
// fresh one on the first request after it expires.
//
// RateLimiter never returns errors; a denied request is reported as false.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	count     int
	startedAt time.Time
}

// Decision is the outcome of a rate limit check with the values transports
// need for response headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter creates a new fixed window rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	// Apply defaults
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = config.Window
	}

	return &RateLimiter{
		config:  config,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
	}
}

// Allow records a request for clientID and reports whether it is within the
// limit. Rejected requests are not counted.
func (rl *RateLimiter) Allow(clientID string) bool {
	return rl.Decide(clientID).Allowed
}

// Decide records a request for clientID and returns the full decision.
func (rl *RateLimiter) Decide(clientID string) Decision {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[clientID]
	if !ok || rl.expiredLocked(w, now) {
		rl.clients[clientID] = &clientWindow{count: 1, startedAt: now}
		return Decision{
			Allowed:   true,
			Limit:     rl.config.MaxRequests,
			Remaining: rl.config.MaxRequests - 1,
		}
	}

	if w.count < rl.config.MaxRequests {
		w.count++
		return Decision{
			Allowed:   true,
			Limit:     rl.config.MaxRequests,
			Remaining: rl.config.MaxRequests - w.count,
		}
	}

	return Decision{
		Allowed:    false,
		Limit:      rl.config.MaxRequests,
		Remaining:  0,
		RetryAfter: w.startedAt.Add(rl.config.Window).Sub(now),
	}
}

// Remaining returns how many more requests clientID may make in its current
// window. It does not record a request.
func (rl *RateLimiter) Remaining(clientID string) int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[clientID]
	if !ok || rl.expiredLocked(w, now) {
		return rl.config.MaxRequests
	}
	return rl.config.MaxRequests - w.count
}

// ResetTime returns the time left until clientID's window resets. It is zero
// when the client has no live window.
func (rl *RateLimiter) ResetTime(clientID string) time.Duration {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[clientID]
	if !ok || rl.expiredLocked(w, now) {
		return 0
	}
	return w.startedAt.Add(rl.config.Window).Sub(now)
}

// Cleanup removes every client record whose window has expired.
func (rl *RateLimiter) Cleanup() int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, w := range rl.clients {
		if rl.expiredLocked(w, now) {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked client records.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// StartJanitor runs Cleanup every CleanupInterval until ctx is cancelled.
func (rl *RateLimiter) StartJanitor(ctx context.Context) {
	t := time.NewTicker(rl.config.CleanupInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				rl.Cleanup()
			}
		}
	}()
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

func (rl *RateLimiter) expiredLocked(w *clientWindow, now time.Time) bool {
	return !now.Before(w.startedAt.Add(rl.config.Window))
}
