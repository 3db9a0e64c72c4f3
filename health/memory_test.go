package health

import (
	"context"
	"runtime"
	"testing"
)

func memChecker(heap, budget uint64) *MemoryChecker {
	c := NewMemoryChecker(MemoryCheckerConfig{MaxAlloc: budget})
	c.readMem = func(s *runtime.MemStats) { s.HeapAlloc = heap }
	return c
}

func TestMemoryChecker_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		heap uint64
		want Status
	}{
		{"normal", 100, StatusHealthy},
		{"warning", 850, StatusDegraded},
		{"critical", 990, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := memChecker(tt.heap, 1000).Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tt.want, r.Message)
			}
			if r.Details["budget_bytes"] != uint64(1000) {
				t.Errorf("budget_bytes = %v", r.Details["budget_bytes"])
			}
		})
	}
}

func TestMemoryChecker_Defaults(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{WarningThreshold: 0.9, CriticalThreshold: 0.5})

	if c.config.CriticalThreshold <= c.config.WarningThreshold {
		t.Errorf("critical %v must exceed warning %v", c.config.CriticalThreshold, c.config.WarningThreshold)
	}
	if c.Name() != "memory" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestMemoryChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if r := memChecker(0, 1000).Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", r.Status)
	}
}

func TestMemoryChecker_RealStats(t *testing.T) {
	r := NewMemoryChecker(MemoryCheckerConfig{}).Check(context.Background())
	if r.Status == StatusUnhealthy && r.Error == nil {
		t.Errorf("unhealthy result without error: %+v", r)
	}
}
