package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/brgateway/provider"
	"github.com/jonwraymond/brgateway/resilience"
)

func TestIntelligence_Report(t *testing.T) {
	f := newFixture(Options{})

	r, err := f.svc.Intelligence(context.Background(), "11.222.333/0001-81", IntelligenceOptions{})
	if err != nil {
		t.Fatalf("Intelligence: %v", err)
	}
	if r.CNPJ != "11222333000181" || r.Name != "ACME" {
		t.Errorf("report header = %q %q", r.CNPJ, r.Name)
	}
	if r.Queries != 6 || len(r.Failures) != 0 {
		t.Errorf("queries = %d, failures = %v", r.Queries, r.Failures)
	}
	for _, c := range Categories {
		if len(r.Findings[c]) == 0 {
			t.Errorf("no findings for %s", c)
		}
	}
	if len(r.Findings[CategoryGovernment]) != 2 {
		t.Errorf("government findings = %d, want 2", len(r.Findings[CategoryGovernment]))
	}
	for _, q := range f.searcher.queries {
		if q.MaxResults != 3 {
			t.Errorf("query %q asked for %d results, want 3", q.Query, q.MaxResults)
		}
	}
}

func TestIntelligence_FailedQueriesAreReported(t *testing.T) {
	f := newFixture(Options{})
	f.searcher.failOn = "reclamações"

	r, err := f.svc.Intelligence(context.Background(), "11222333000181", IntelligenceOptions{})
	if err != nil {
		t.Fatalf("Intelligence: %v", err)
	}
	if len(r.Failures) != 1 || r.Failures[0].Category != CategoryReputation {
		t.Fatalf("failures = %+v", r.Failures)
	}
	if len(r.Findings[CategoryReputation]) != 0 {
		t.Error("failed category should have no findings")
	}
	if len(r.Findings[CategoryNews]) == 0 {
		t.Error("other categories should still be present")
	}
}

func TestIntelligence_PrimaryFailureAborts(t *testing.T) {
	cnpj := &fakeLookuper{err: &provider.StatusError{Upstream: "cnpj", StatusCode: 404}}
	f := newFixture(Options{CNPJ: cnpj})

	_, err := f.svc.Intelligence(context.Background(), "11222333000181", IntelligenceOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if n := f.searcher.calls.Load(); n != 0 {
		t.Errorf("searcher calls = %d, want 0", n)
	}
}

func TestIntelligence_DeadlineDiscardsPartialResults(t *testing.T) {
	f := newFixture(Options{Intelligence: IntelligenceConfig{Deadline: 50 * time.Millisecond}})
	f.searcher.block = make(chan struct{})
	t.Cleanup(func() { close(f.searcher.block) })

	start := time.Now()
	r, err := f.svc.Intelligence(context.Background(), "11222333000181", IntelligenceOptions{})
	if !errors.Is(err, resilience.ErrDeadlineExceeded) {
		t.Fatalf("error = %v, want ErrDeadlineExceeded", err)
	}
	if r != nil {
		t.Error("no partial report may be returned")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("returned after %v, want about the deadline", elapsed)
	}
	if f.metrics.deadlines != 1 {
		t.Errorf("deadline metric = %d, want 1", f.metrics.deadlines)
	}
}

func TestIntelligence_UpstreamTimeoutIsNotDeadline(t *testing.T) {
	cnpj := &fakeLookuper{data: companyJSON, release: make(chan struct{})}
	t.Cleanup(func() { close(cnpj.release) })
	f := newFixture(Options{
		CNPJ: cnpj,
		Upstreams: map[string]*resilience.Executor{
			UpstreamCNPJ: NewUpstreamExecutor(UpstreamCNPJ, Policy{Timeout: 20 * time.Millisecond}, nil, nil),
		},
		Intelligence: IntelligenceConfig{Deadline: 5 * time.Second},
	})

	start := time.Now()
	_, err := f.svc.Intelligence(context.Background(), "11222333000181", IntelligenceOptions{})
	if !errors.Is(err, resilience.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if errors.Is(err, resilience.ErrDeadlineExceeded) {
		t.Errorf("error = %v, want no ErrDeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("returned after %v, want about the 20ms upstream timeout", elapsed)
	}
	if f.metrics.deadlines != 0 {
		t.Errorf("deadline metric = %d, want 0", f.metrics.deadlines)
	}
}

func TestIntelligence_Options(t *testing.T) {
	f := newFixture(Options{Intelligence: IntelligenceConfig{MaxQueries: 4}})
	ctx := context.Background()

	r, err := f.svc.Intelligence(ctx, "11222333000181", IntelligenceOptions{MaxQueries: 2})
	if err != nil {
		t.Fatalf("Intelligence: %v", err)
	}
	if r.Queries != 2 {
		t.Errorf("queries = %d, want 2", r.Queries)
	}

	r, err = f.svc.Intelligence(ctx, "11222333000181", IntelligenceOptions{MaxQueries: 50})
	if err != nil {
		t.Fatalf("Intelligence: %v", err)
	}
	if r.Queries != 4 {
		t.Errorf("queries = %d, want configured cap 4", r.Queries)
	}
	if !r.Cached {
		t.Error("company record should come from cache on the second report")
	}

	r, err = f.svc.Intelligence(ctx, "11222333000181", IntelligenceOptions{Categories: []string{CategoryNews}})
	if err != nil {
		t.Fatalf("Intelligence: %v", err)
	}
	if r.Queries != 1 || len(r.Findings) != 1 {
		t.Errorf("news-only report: queries = %d, findings = %v", r.Queries, r.Findings)
	}

	if _, err := f.svc.Intelligence(ctx, "11222333000181", IntelligenceOptions{Categories: []string{"gossip"}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("unknown category error = %v, want ErrInvalidQuery", err)
	}
}
