package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/brgateway/cache"
	"github.com/jonwraymond/brgateway/observe"
	"github.com/jonwraymond/brgateway/provider"
	"github.com/jonwraymond/brgateway/resilience"
)

// Lookup kinds.
const (
	KindCNPJ         = "cnpj"
	KindCEP          = "cep"
	KindSearch       = "search"
	KindIntelligence = "intelligence"
)

// maxSearchResults caps what a single search may request.
const maxSearchResults = 20

// Lookuper resolves one normalized identifier to its upstream record.
type Lookuper interface {
	Lookup(ctx context.Context, id string) (json.RawMessage, error)
}

// Result is the outcome of a lookup or search.
type Result struct {
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Data   json.RawMessage `json:"data"`
	Cached bool            `json:"cached"`
	Shared bool            `json:"shared"`
}

// Options wires a Service. CNPJ, CEP and Searcher are required.
type Options struct {
	CNPJ     Lookuper
	CEP      Lookuper
	Searcher provider.Searcher

	// Cache defaults to an in-process LRU with default sizing.
	Cache cache.Cache

	// Upstreams holds the executor per upstream name. Missing entries get a
	// breaker-only executor.
	Upstreams map[string]*resilience.Executor

	// Limiter gates inbound clients. Defaults to the limiter defaults.
	Limiter *resilience.RateLimiter

	Dedup        resilience.DeduplicatorConfig
	Intelligence IntelligenceConfig

	// Middleware traces, measures and logs every operation.
	Middleware *observe.Middleware
}

// Service is the gateway. It is safe for concurrent use.
type Service struct {
	cnpj     Lookuper
	cep      Lookuper
	searcher provider.Searcher

	cache     cache.Cache
	keyer     cache.Keyer
	dedup     *resilience.Deduplicator[[]byte]
	upstreams map[string]*resilience.Executor
	limiter   *resilience.RateLimiter
	orch      *resilience.Orchestrator[*companyRecord, provider.SearchResponse]
	intel     IntelligenceConfig

	mw      *observe.Middleware
	metrics observe.Metrics
	logger  observe.Logger
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	switch {
	case opts.CNPJ == nil:
		return nil, fmt.Errorf("%w: cnpj", ErrMissingProvider)
	case opts.CEP == nil:
		return nil, fmt.Errorf("%w: cep", ErrMissingProvider)
	case opts.Searcher == nil:
		return nil, fmt.Errorf("%w: search", ErrMissingProvider)
	}

	mw := opts.Middleware
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, nil)
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewLRUCache(cache.LRUConfig{})
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{})
	}

	upstreams := make(map[string]*resilience.Executor, 3)
	for _, name := range []string{UpstreamCNPJ, UpstreamCEP, UpstreamSearch} {
		e := opts.Upstreams[name]
		if e == nil {
			e = NewUpstreamExecutor(name, Policy{}, mw.Metrics(), mw.Logger())
		}
		upstreams[name] = e
	}

	intel := opts.Intelligence.withDefaults()
	logger := mw.Logger()

	s := &Service{
		cnpj:      opts.CNPJ,
		cep:       opts.CEP,
		searcher:  opts.Searcher,
		cache:     c,
		keyer:     cache.NewDefaultKeyer(),
		dedup:     resilience.NewDeduplicator[[]byte](opts.Dedup),
		upstreams: upstreams,
		limiter:   limiter,
		intel:     intel,
		mw:        mw,
		metrics:   mw.Metrics(),
		logger:    logger,
	}
	s.orch = resilience.NewOrchestrator[*companyRecord, provider.SearchResponse](resilience.OrchestratorConfig{
		Deadline:       intel.Deadline,
		MaxConcurrency: intel.MaxConcurrency,
		MaxAuxiliaries: intel.MaxQueries,
		OnTaskError: func(category, name string, err error) {
			logger.Warn(context.Background(), "intelligence query failed",
				observe.F("category", category),
				observe.F("query", name),
				observe.F("error", err.Error()),
			)
		},
	})
	return s, nil
}

// ClientLimiter returns the inbound per-client limiter.
func (s *Service) ClientLimiter() *resilience.RateLimiter {
	return s.limiter
}

// Breakers returns the circuit breaker of every upstream by name.
func (s *Service) Breakers() map[string]*resilience.CircuitBreaker {
	out := make(map[string]*resilience.CircuitBreaker, len(s.upstreams))
	for name, e := range s.upstreams {
		if cb := e.CircuitBreaker(); cb != nil {
			out[name] = cb
		}
	}
	return out
}

// DedupStats reports request coalescing counters.
func (s *Service) DedupStats() resilience.DeduplicatorStats {
	return s.dedup.Stats()
}

// LookupCNPJ resolves a company by CNPJ. Punctuation is accepted; the
// checksum is not verified.
func (s *Service) LookupCNPJ(ctx context.Context, raw string) (*Result, error) {
	id, err := provider.NormalizeCNPJ(raw)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, KindCNPJ, id, s.cnpj)
}

// LookupCEP resolves an address by CEP.
func (s *Service) LookupCEP(ctx context.Context, raw string) (*Result, error) {
	id, err := provider.NormalizeCEP(raw)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, KindCEP, id, s.cep)
}

func (s *Service) lookup(ctx context.Context, kind, id string, p Lookuper) (*Result, error) {
	var res *Result
	err := s.mw.Run(ctx, observe.Operation{Kind: kind, Upstream: kind}, func(ctx context.Context) error {
		data, cached, shared, err := s.fetch(ctx, kind, cache.IdentifierKey(kind, id), func(ctx context.Context) ([]byte, error) {
			return p.Lookup(ctx, id)
		})
		if err != nil {
			return err
		}
		res = &Result{Kind: kind, ID: id, Data: data, Cached: cached, Shared: shared}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Search runs a web search. Identical searches within the cache TTL are
// served from the cache. maxResults <= 0 uses the searcher's default.
func (s *Service) Search(ctx context.Context, query string, maxResults int) (*Result, error) {
	var res *Result
	err := s.mw.Run(ctx, observe.Operation{Kind: KindSearch, Upstream: UpstreamSearch}, func(ctx context.Context) error {
		var err error
		res, err = s.search(ctx, provider.SearchRequest{Query: query, MaxResults: maxResults})
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) search(ctx context.Context, req provider.SearchRequest) (*Result, error) {
	req.Query = strings.Join(strings.Fields(req.Query), " ")
	if req.Query == "" {
		return nil, ErrInvalidQuery
	}
	if req.MaxResults > maxSearchResults {
		req.MaxResults = maxSearchResults
	}

	domains := make([]any, len(req.IncludeDomains))
	for i, d := range req.IncludeDomains {
		domains[i] = d
	}
	key, err := s.keyer.Key(KindSearch, map[string]any{
		"query":           strings.ToLower(req.Query),
		"max_results":     req.MaxResults,
		"depth":           req.Depth,
		"include_domains": domains,
	})
	if err != nil {
		return nil, err
	}

	data, cached, shared, err := s.fetch(ctx, KindSearch, key, func(ctx context.Context) ([]byte, error) {
		resp, err := s.searcher.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindSearch, ID: req.Query, Data: data, Cached: cached, Shared: shared}, nil
}

// fetch is the shared cache -> dedup -> executor path. The cache is read
// again inside the flight so a caller arriving just after another flight
// settled does not refetch.
func (s *Service) fetch(ctx context.Context, kind, key string, load func(context.Context) ([]byte, error)) ([]byte, bool, bool, error) {
	if v, ok := s.cache.Get(ctx, key); ok {
		s.metrics.RecordCache(ctx, kind, true)
		return v, true, false, nil
	}
	s.metrics.RecordCache(ctx, kind, false)

	executor := s.upstreams[kind]
	var hit bool
	v, shared, err := s.dedup.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		data, cached, err := cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) ([]byte, error) {
			return resilience.Call(ctx, executor, load)
		})
		hit = cached
		return data, err
	})
	if err != nil {
		return nil, false, false, err
	}
	if shared {
		s.metrics.RecordDedupShared(ctx, kind)
	}
	return v, hit && !shared, shared, nil
}

func (c IntelligenceConfig) withDefaults() IntelligenceConfig {
	if c.Deadline <= 0 {
		c.Deadline = 25 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.MaxQueries <= 0 {
		c.MaxQueries = 10
	}
	if c.ResultsPerTask <= 0 {
		c.ResultsPerTask = 3
	}
	return c
}
