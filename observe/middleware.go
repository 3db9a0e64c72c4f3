package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature Middleware wraps.
type ExecuteFunc func(ctx context.Context, op Operation) error

// Middleware wraps gateway operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: the wrapped function receives the span context.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components become no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Metrics returns the metrics sink the middleware records to.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps fn with tracing, metrics and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, op Operation) error {
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := time.Now()

		err := fn(ctx, op)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordLookup(ctx, op, duration, err)

		fields := []Field{
			F("kind", op.Kind),
			F("duration_ms", float64(duration.Microseconds())/1000),
		}
		if op.Upstream != "" {
			fields = append(fields, F("upstream", op.Upstream))
		}
		if err != nil {
			fields = append(fields, F("error", err.Error()))
			m.logger.Warn(ctx, "gateway operation failed", fields...)
		} else {
			m.logger.Debug(ctx, "gateway operation completed", fields...)
		}

		return err
	}
}

// Run is Wrap applied to a single call.
func (m *Middleware) Run(ctx context.Context, op Operation, fn func(context.Context) error) error {
	return m.Wrap(func(ctx context.Context, _ Operation) error { return fn(ctx) })(ctx, op)
}

// MiddlewareFromObserver builds a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
