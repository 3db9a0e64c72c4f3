package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records gateway instruments.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one served request with its duration and outcome.
	RecordLookup(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordCache records a cache hit or miss for kind.
	RecordCache(ctx context.Context, kind string, hit bool)

	// RecordBreakerState records the current breaker state of upstream
	// (0 closed, 1 open, 2 half-open).
	RecordBreakerState(ctx context.Context, upstream string, state int64)

	// RecordRateLimitDenied counts a request rejected at the inbound edge.
	RecordRateLimitDenied(ctx context.Context)

	// RecordDedupShared counts a caller served by another caller's execution.
	RecordDedupShared(ctx context.Context, kind string)

	// RecordDeadlineExceeded counts an intelligence run that lost its race.
	RecordDeadlineExceeded(ctx context.Context)
}

type metricsImpl struct {
	lookups      metric.Int64Counter
	lookupErrors metric.Int64Counter
	duration     metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	breakerState metric.Int64Gauge
	denied       metric.Int64Counter
	shared       metric.Int64Counter
	deadlines    metric.Int64Counter
}

// NewMetrics creates the gateway instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.lookups, "gateway.lookup.total", "Total number of gateway requests", "{call}"},
		{&m.lookupErrors, "gateway.lookup.errors", "Total number of failed gateway requests", "{error}"},
		{&m.cacheHits, "gateway.cache.hits", "Cache hits", "{hit}"},
		{&m.cacheMisses, "gateway.cache.misses", "Cache misses", "{miss}"},
		{&m.denied, "gateway.ratelimit.denied", "Requests rejected by the client rate limiter", "{request}"},
		{&m.shared, "gateway.dedup.shared", "Callers served by a coalesced execution", "{call}"},
		{&m.deadlines, "gateway.intelligence.deadline_exceeded", "Intelligence runs that exceeded their deadline", "{run}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.duration, err = meter.Float64Histogram(
		"gateway.lookup.duration_ms",
		metric.WithDescription("Gateway request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.breakerState, err = meter.Int64Gauge(
		"gateway.breaker.state",
		metric.WithDescription("Circuit breaker state per upstream (0 closed, 1 open, 2 half-open)"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, op Operation, duration time.Duration, err error) {
	opt := metric.WithAttributes(op.attributes()...)

	m.lookups.Add(ctx, 1, opt)
	if err != nil {
		m.lookupErrors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordCache(ctx context.Context, kind string, hit bool) {
	opt := metric.WithAttributes(attribute.String("gateway.kind", kind))
	if hit {
		m.cacheHits.Add(ctx, 1, opt)
		return
	}
	m.cacheMisses.Add(ctx, 1, opt)
}

func (m *metricsImpl) RecordBreakerState(ctx context.Context, upstream string, state int64) {
	m.breakerState.Record(ctx, state, metric.WithAttributes(attribute.String("gateway.upstream", upstream)))
}

func (m *metricsImpl) RecordRateLimitDenied(ctx context.Context) {
	m.denied.Add(ctx, 1)
}

func (m *metricsImpl) RecordDedupShared(ctx context.Context, kind string) {
	m.shared.Add(ctx, 1, metric.WithAttributes(attribute.String("gateway.kind", kind)))
}

func (m *metricsImpl) RecordDeadlineExceeded(ctx context.Context) {
	m.deadlines.Add(ctx, 1)
}

type nopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordLookup(context.Context, Operation, time.Duration, error) {}
func (nopMetrics) RecordCache(context.Context, string, bool)                    {}
func (nopMetrics) RecordBreakerState(context.Context, string, int64)            {}
func (nopMetrics) RecordRateLimitDenied(context.Context)                        {}
func (nopMetrics) RecordDedupShared(context.Context, string)                    {}
func (nopMetrics) RecordDeadlineExceeded(context.Context)                       {}
