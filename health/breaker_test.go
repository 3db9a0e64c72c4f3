package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/brgateway/resilience"
)

func TestBreakerChecker(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})
	checker := NewBreakerChecker("cnpj", cb)

	if r := checker.Check(context.Background()); r.Status != StatusHealthy {
		t.Fatalf("closed breaker: Status = %v, want healthy", r.Status)
	}

	_ = cb.Execute(context.Background(), func(context.Context) error {
		return errors.New("upstream down")
	})

	r := checker.Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Fatalf("open breaker: Status = %v, want unhealthy", r.Status)
	}
	if !errors.Is(r.Error, resilience.ErrCircuitOpen) {
		t.Errorf("Error = %v, want ErrCircuitOpen", r.Error)
	}
	if r.Details["state"] != "open" {
		t.Errorf("state detail = %v, want open", r.Details["state"])
	}
	if _, ok := r.Details["retry_after"]; !ok {
		t.Error("open breaker should report retry_after")
	}
}

type staticBreaker resilience.CircuitBreakerMetrics

func (s staticBreaker) Metrics() resilience.CircuitBreakerMetrics {
	return resilience.CircuitBreakerMetrics(s)
}

func TestBreakerChecker_HalfOpenIsDegraded(t *testing.T) {
	checker := NewBreakerChecker("cep", staticBreaker{State: resilience.StateHalfOpen})

	if r := checker.Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", r.Status)
	}
}
