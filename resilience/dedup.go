package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DeduplicatorConfig configures request coalescing.
type DeduplicatorConfig struct {
	// StaleTimeout bounds how long an in-flight entry may stay registered.
	// When it fires the key is forgotten so new callers start a fresh
	// execution; the original operation is not aborted.
	// Default: 30 seconds
	StaleTimeout time.Duration
}

// Deduplicator collapses concurrent calls sharing a key into one execution.
// All callers waiting on the same key receive the identical value and error.
type Deduplicator[T any] struct {
	config DeduplicatorConfig
	group  singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight
	shared   int64
	stale    int64
}

type flight struct {
	timer *time.Timer
}

// DeduplicatorStats contains coalescing statistics.
type DeduplicatorStats struct {
	InFlight int
	Shared   int64
	Stale    int64
}

// NewDeduplicator creates a new deduplicator.
func NewDeduplicator[T any](config DeduplicatorConfig) *Deduplicator[T] {
	if config.StaleTimeout <= 0 {
		config.StaleTimeout = 30 * time.Second
	}
	return &Deduplicator[T]{
		config:   config,
		inflight: make(map[string]*flight),
	}
}

// Do executes op once per key among concurrent callers. The returned bool
// reports whether the result was shared with other callers.
//
// op runs detached from the first caller's cancellation so that one caller
// leaving does not fail the others; a caller whose ctx ends stops waiting and
// gets ctx.Err() while the execution continues for the rest.
func (d *Deduplicator[T]) Do(ctx context.Context, key string, op func(context.Context) (T, error)) (T, bool, error) {
	opCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key, func() (any, error) {
		f := d.track(key)
		defer d.untrack(key, f)
		return op(opCtx)
	})

	var zero T
	select {
	case res := <-ch:
		if res.Shared {
			d.mu.Lock()
			d.shared++
			d.mu.Unlock()
		}
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		v, _ := res.Val.(T)
		return v, res.Shared, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Forget drops the in-flight entry for key so the next call starts a new
// execution.
func (d *Deduplicator[T]) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.inflight[key]; ok {
		f.timer.Stop()
		delete(d.inflight, key)
	}
	d.group.Forget(key)
}

// InFlight returns the number of keys with a registered execution.
func (d *Deduplicator[T]) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Stats returns coalescing statistics.
func (d *Deduplicator[T]) Stats() DeduplicatorStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeduplicatorStats{
		InFlight: len(d.inflight),
		Shared:   d.shared,
		Stale:    d.stale,
	}
}

func (d *Deduplicator[T]) track(key string) *flight {
	f := &flight{}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight[key] = f
	f.timer = time.AfterFunc(d.config.StaleTimeout, func() { d.expire(key, f) })
	return f
}

func (d *Deduplicator[T]) untrack(key string, f *flight) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f.timer.Stop()
	if d.inflight[key] == f {
		delete(d.inflight, key)
	}
}

func (d *Deduplicator[T]) expire(key string, f *flight) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[key] != f {
		return
	}
	delete(d.inflight, key)
	d.stale++
	d.group.Forget(key)
}
