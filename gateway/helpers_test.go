package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/brgateway/observe"
	"github.com/jonwraymond/brgateway/provider"
)

const companyJSON = `{
	"cnpj": "11222333000181",
	"razao_social": "ACME COMERCIO LTDA",
	"nome_fantasia": "ACME",
	"uf": "SP",
	"qsa": [{"nome_socio": "MARIA SILVA", "qualificacao_socio": "Socio-Administrador"}]
}`

type fakeLookuper struct {
	calls   atomic.Int32
	data    string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeLookuper) Lookup(ctx context.Context, id string) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.data != "" {
		return json.RawMessage(f.data), nil
	}
	return json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)), nil
}

type fakeSearcher struct {
	calls   atomic.Int32
	mu      sync.Mutex
	queries []provider.SearchRequest
	failOn  string
	block   chan struct{}
}

func (f *fakeSearcher) Search(ctx context.Context, req provider.SearchRequest) (*provider.SearchResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, req)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.failOn != "" && strings.Contains(req.Query, f.failOn) {
		return nil, &provider.StatusError{Upstream: "search", StatusCode: 502}
	}
	return &provider.SearchResponse{
		Query:   req.Query,
		Results: []provider.SearchResult{{Title: "hit for " + req.Query, URL: "https://example.com", Score: 0.5}},
	}, nil
}

type recordingMetrics struct {
	observe.Metrics

	mu        sync.Mutex
	hits      int
	misses    int
	shared    int
	deadlines int
	states    []int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{Metrics: observe.NopMetrics()}
}

func (m *recordingMetrics) RecordCache(_ context.Context, _ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *recordingMetrics) RecordDedupShared(context.Context, string) {
	m.mu.Lock()
	m.shared++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordDeadlineExceeded(context.Context) {
	m.mu.Lock()
	m.deadlines++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordBreakerState(_ context.Context, _ string, state int64) {
	m.mu.Lock()
	m.states = append(m.states, state)
	m.mu.Unlock()
}

type fixture struct {
	svc      *Service
	cnpj     *fakeLookuper
	cep      *fakeLookuper
	searcher *fakeSearcher
	metrics  *recordingMetrics
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		cnpj:     &fakeLookuper{data: companyJSON},
		cep:      &fakeLookuper{},
		searcher: &fakeSearcher{},
		metrics:  newRecordingMetrics(),
	}
	if opts.CNPJ == nil {
		opts.CNPJ = f.cnpj
	}
	if opts.CEP == nil {
		opts.CEP = f.cep
	}
	if opts.Searcher == nil {
		opts.Searcher = f.searcher
	}
	if opts.Middleware == nil {
		opts.Middleware = observe.NewMiddleware(nil, f.metrics, nil)
	}
	if opts.Intelligence.Deadline == 0 {
		opts.Intelligence.Deadline = 5 * time.Second
	}
	svc, err := New(opts)
	if err != nil {
		panic(err)
	}
	f.svc = svc
	return f
}
