package resilience

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func BenchmarkCircuitBreaker_ExecuteClosed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 100, ResetTimeout: time.Minute})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, succeed)
	}
}

func BenchmarkCircuitBreaker_Concurrent(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 100, ResetTimeout: time.Minute})
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = cb.Execute(ctx, succeed)
		}
	})
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Window: time.Hour, MaxRequests: 1 << 30})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.Allow("client")
	}
}

func BenchmarkRateLimiter_ManyClients(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Window: time.Hour, MaxRequests: 10})
	ids := make([]string, 1024)
	for i := range ids {
		ids[i] = "10.0.0." + strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.Allow(ids[i%len(ids)])
	}
}

func BenchmarkDeduplicator_Do(b *testing.B) {
	d := NewDeduplicator[int](DeduplicatorConfig{})
	ctx := context.Background()
	op := func(context.Context) (int, error) { return 1, nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = d.Do(ctx, "k", op)
	}
}

func BenchmarkExecutor_AllPatterns(b *testing.B) {
	e := NewExecutor(
		WithThrottle(NewThrottle(ThrottleConfig{Rate: 1e9, Burst: 1 << 20})),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 100})),
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 100})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3})),
		WithTimeout(time.Second),
	)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Execute(ctx, succeed)
	}
}
