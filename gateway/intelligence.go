package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/brgateway/observe"
	"github.com/jonwraymond/brgateway/provider"
	"github.com/jonwraymond/brgateway/resilience"
)

// Intelligence categories, in the order their queries are issued.
const (
	CategoryGovernment = "government"
	CategoryLegal      = "legal"
	CategoryNews       = "news"
	CategoryReputation = "reputation"
	CategoryPartners   = "partners"
)

// Categories lists every intelligence category.
var Categories = []string{
	CategoryGovernment,
	CategoryLegal,
	CategoryNews,
	CategoryReputation,
	CategoryPartners,
}

// maxPartnerQueries bounds the per-partner queries of one report.
const maxPartnerQueries = 3

// IntelligenceConfig configures the enrichment fan-out.
type IntelligenceConfig struct {
	// Deadline bounds the whole report.
	// Default: 25 seconds
	Deadline time.Duration

	// MaxConcurrency caps concurrent searches.
	// Default: 4
	MaxConcurrency int

	// MaxQueries caps searches per report.
	// Default: 10
	MaxQueries int

	// ResultsPerTask is the result count each search asks for.
	// Default: 3
	ResultsPerTask int
}

// IntelligenceOptions narrows one report.
type IntelligenceOptions struct {
	// MaxQueries lowers the configured cap for this report.
	MaxQueries int

	// Categories restricts the report to these categories. Empty means all.
	Categories []string
}

// QueryFailure is a search that did not contribute to a report.
type QueryFailure struct {
	Category string `json:"category"`
	Query    string `json:"query"`
	Error    string `json:"error"`
}

// Report is the enrichment result for one company.
type Report struct {
	CNPJ      string                             `json:"cnpj"`
	Name      string                             `json:"name"`
	Company   json.RawMessage                    `json:"company"`
	Cached    bool                               `json:"cached"`
	Findings  map[string][]provider.SearchResult `json:"findings"`
	Failures  []QueryFailure                     `json:"failures,omitempty"`
	Queries   int                                `json:"queries"`
	ElapsedMS int64                              `json:"elapsed_ms"`
}

type companyRecord struct {
	result  *Result
	company provider.Company
}

// Intelligence looks the company up and runs categorized searches about it,
// all within the configured deadline. A failed lookup fails the report;
// failed searches are listed in Report.Failures. When the deadline passes
// the error matches resilience.ErrDeadlineExceeded and no partial report is
// returned.
func (s *Service) Intelligence(ctx context.Context, cnpj string, opts IntelligenceOptions) (*Report, error) {
	id, err := provider.NormalizeCNPJ(cnpj)
	if err != nil {
		return nil, err
	}
	if err := validCategories(opts.Categories); err != nil {
		return nil, err
	}

	limit := s.intel.MaxQueries
	if opts.MaxQueries > 0 && opts.MaxQueries < limit {
		limit = opts.MaxQueries
	}

	var report *Report
	err = s.mw.Run(ctx, observe.Operation{Kind: KindIntelligence}, func(ctx context.Context) error {
		composite, err := s.orch.Run(ctx,
			func(ctx context.Context) (*companyRecord, error) {
				res, err := s.lookup(ctx, KindCNPJ, id, s.cnpj)
				if err != nil {
					return nil, err
				}
				company, err := provider.ParseCompany(res.Data)
				if err != nil {
					return nil, err
				}
				if company.CNPJ == "" {
					company.CNPJ = res.ID
				}
				return &companyRecord{result: res, company: company}, nil
			},
			func(rec *companyRecord) []resilience.Task[provider.SearchResponse] {
				queries := BuildQueries(rec.company, opts.Categories)
				if len(queries) > limit {
					queries = queries[:limit]
				}
				tasks := make([]resilience.Task[provider.SearchResponse], len(queries))
				for i, q := range queries {
					tasks[i] = s.searchTask(q)
				}
				return tasks
			},
		)
		if errors.Is(err, resilience.ErrDeadlineExceeded) {
			s.metrics.RecordDeadlineExceeded(ctx)
		}
		if err != nil {
			return err
		}
		report = newReport(composite)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) searchTask(q Query) resilience.Task[provider.SearchResponse] {
	return resilience.Task[provider.SearchResponse]{
		Category: q.Category,
		Name:     q.Text,
		Run: func(ctx context.Context) (provider.SearchResponse, error) {
			res, err := s.search(ctx, provider.SearchRequest{
				Query:          q.Text,
				MaxResults:     s.intel.ResultsPerTask,
				IncludeDomains: q.Domains,
			})
			if err != nil {
				return provider.SearchResponse{}, err
			}
			var resp provider.SearchResponse
			if err := json.Unmarshal(res.Data, &resp); err != nil {
				return provider.SearchResponse{}, fmt.Errorf("%w: %v", provider.ErrBadPayload, err)
			}
			return resp, nil
		},
	}
}

func newReport(c *resilience.Composite[*companyRecord, provider.SearchResponse]) *Report {
	rec := c.Primary
	r := &Report{
		CNPJ:      rec.result.ID,
		Name:      rec.company.DisplayName(),
		Company:   rec.result.Data,
		Cached:    rec.result.Cached,
		Findings:  make(map[string][]provider.SearchResult),
		Queries:   len(c.Results) + len(c.Failures),
		ElapsedMS: c.Elapsed.Milliseconds(),
	}
	for category, responses := range c.ByCategory() {
		for _, resp := range responses {
			r.Findings[category] = append(r.Findings[category], resp.Results...)
		}
	}
	for _, f := range c.Failures {
		r.Failures = append(r.Failures, QueryFailure{Category: f.Category, Query: f.Name, Error: f.Err.Error()})
	}
	return r
}

func validCategories(categories []string) error {
	for _, c := range categories {
		if !slices.Contains(Categories, c) {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidQuery, c)
		}
	}
	return nil
}
