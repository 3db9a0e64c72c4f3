package resilience

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// OrchestratorConfig configures deadline-bounded fan-out.
type OrchestratorConfig struct {
	// Deadline bounds the whole run: primary, expansion and every auxiliary.
	// Default: 25 seconds
	Deadline time.Duration

	// MaxConcurrency caps how many auxiliary tasks run at once.
	// Default: 4
	MaxConcurrency int

	// MaxAuxiliaries truncates the expanded task list.
	// Default: 10
	MaxAuxiliaries int

	// OnTaskError is called for every failed auxiliary task. Calls may be
	// concurrent.
	OnTaskError func(category, name string, err error)
}

// Task is one auxiliary unit of work derived from the primary result.
type Task[A any] struct {
	Category string
	Name     string
	Run      func(ctx context.Context) (A, error)
}

// Outcome is a successful auxiliary result.
type Outcome[A any] struct {
	Category string
	Name     string
	Value    A
}

// TaskFailure records an auxiliary task that did not contribute a result.
type TaskFailure struct {
	Category string
	Name     string
	Err      error
}

// Composite is the merged result of a run. Results and Failures keep the
// order of the expanded task list.
type Composite[P, A any] struct {
	Primary  P
	Results  []Outcome[A]
	Failures []TaskFailure
	Elapsed  time.Duration
}

// ByCategory groups successful auxiliary values by category.
func (c *Composite[P, A]) ByCategory() map[string][]A {
	out := make(map[string][]A)
	for _, r := range c.Results {
		out[r.Category] = append(out[r.Category], r.Value)
	}
	return out
}

// Orchestrator runs a primary operation, fans out auxiliary tasks derived from
// its result and races the whole composite against one deadline.
//
// A primary failure fails the run. Auxiliary failures are recorded in the
// composite and never fail the run. Losing the race yields a
// *DeadlineExceededError; the run context is cancelled at that point, so
// pending auxiliaries are skipped and running ones see cancellation.
type Orchestrator[P, A any] struct {
	config OrchestratorConfig
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator[P, A any](config OrchestratorConfig) *Orchestrator[P, A] {
	if config.Deadline <= 0 {
		config.Deadline = 25 * time.Second
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.MaxAuxiliaries <= 0 {
		config.MaxAuxiliaries = 10
	}

	return &Orchestrator[P, A]{config: config}
}

// Run executes primary, then the tasks expand derives from its result.
//
// Only the run's own deadline produces a *DeadlineExceededError. Errors from
// primary, including per-attempt ErrTimeout failures, are returned unchanged,
// and cancellation of ctx is returned as ctx.Err().
func (o *Orchestrator[P, A]) Run(
	ctx context.Context,
	primary func(context.Context) (P, error),
	expand func(P) []Task[A],
) (*Composite[P, A], error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, o.config.Deadline)
	defer cancel()

	type outcome struct {
		composite *Composite[P, A]
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		c, err := o.run(runCtx, start, primary, expand)
		done <- outcome{composite: c, err: err}
	}()

	select {
	case out := <-done:
		if o.lostRace(ctx, runCtx) {
			return nil, o.deadlineError(start)
		}
		return out.composite, out.err
	case <-runCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, o.deadlineError(start)
	}
}

// lostRace reports whether the run deadline fired while the caller's context
// was still live.
func (o *Orchestrator[P, A]) lostRace(parent, runCtx context.Context) bool {
	return parent.Err() == nil && runCtx.Err() != nil
}

func (o *Orchestrator[P, A]) deadlineError(start time.Time) error {
	return &DeadlineExceededError{Deadline: o.config.Deadline, Elapsed: time.Since(start)}
}

func (o *Orchestrator[P, A]) run(
	ctx context.Context,
	start time.Time,
	primary func(context.Context) (P, error),
	expand func(P) []Task[A],
) (*Composite[P, A], error) {
	p, err := primary(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []Task[A]
	if expand != nil {
		tasks = expand(p)
	}
	if len(tasks) > o.config.MaxAuxiliaries {
		tasks = tasks[:o.config.MaxAuxiliaries]
	}

	results := make([]*Outcome[A], len(tasks))
	failures := make([]*TaskFailure, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(o.config.MaxConcurrency)
	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = &TaskFailure{Category: task.Category, Name: task.Name, Err: err}
				return nil
			}
			v, err := task.Run(ctx)
			if err != nil {
				failures[i] = &TaskFailure{Category: task.Category, Name: task.Name, Err: err}
				if o.config.OnTaskError != nil {
					o.config.OnTaskError(task.Category, task.Name, err)
				}
				return nil
			}
			results[i] = &Outcome[A]{Category: task.Category, Name: task.Name, Value: v}
			return nil
		})
	}
	_ = g.Wait()

	c := &Composite[P, A]{Primary: p}
	for i := range tasks {
		if results[i] != nil {
			c.Results = append(c.Results, *results[i])
		}
		if failures[i] != nil {
			c.Failures = append(c.Failures, *failures[i])
		}
	}
	c.Elapsed = time.Since(start)
	return c, nil
}

// Config returns the orchestrator configuration.
func (o *Orchestrator[P, A]) Config() OrchestratorConfig {
	return o.config
}
