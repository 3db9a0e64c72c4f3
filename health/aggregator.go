package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 5 seconds
	Timeout time.Duration
}

// Aggregator combines health checkers into one report.
//
// Checkers registered with RegisterOptional cannot make the overall status
// unhealthy; their failures degrade it instead. Upstream breakers are
// registered that way so one failing provider does not pull the gateway out
// of rotation while others still serve.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]registration
	order    []string
}

type registration struct {
	checker  Checker
	optional bool
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Aggregator{
		config:   config,
		checkers: make(map[string]registration),
	}
}

// Register adds a checker whose failure makes the service unhealthy.
func (a *Aggregator) Register(name string, checker Checker) {
	a.register(name, checker, false)
}

// RegisterOptional adds a checker whose failure only degrades the service.
func (a *Aggregator) RegisterOptional(name string, checker Checker) {
	a.register(name, checker, true)
}

func (a *Aggregator) register(name string, checker Checker, optional bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = registration{checker: checker, optional: optional}
}

// Unregister removes a health checker from the aggregator.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.checkers, name)
	if i := slices.Index(a.order, name); i >= 0 {
		a.order = slices.Delete(a.order, i, i+1)
	}
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	reg, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, reg.checker), nil
}

// Report is the outcome of running every registered checker.
type Report struct {
	Status  Status
	Results map[string]Result
}

// CheckAll runs all registered checks concurrently and folds them into an
// overall status.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	regs := make(map[string]registration, len(a.checkers))
	for name, reg := range a.checkers {
		regs[name] = reg
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]Result, len(regs))

	var g errgroup.Group
	for name, reg := range regs {
		g.Go(func() error {
			r := runCheck(ctx, reg.checker)
			mu.Lock()
			results[name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := StatusHealthy
	for name, r := range results {
		s := r.Status
		if s == StatusUnhealthy && regs[name].optional {
			s = StatusDegraded
		}
		if s > status {
			status = s
		}
	}

	return Report{Status: status, Results: results}
}

func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		r := checker.Check(ctx)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		resultCh <- r
	}()

	select {
	case r := <-resultCh:
		r.Duration = time.Since(start)
		return r
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
