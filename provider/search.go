package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SearchRequest is one web search.
type SearchRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	Depth          string   `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	IncludeAnswer  bool     `json:"include_answer,omitempty"`
}

// SearchResult is one hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse is the outcome of one search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// TavilyConfig configures the Tavily search API client.
type TavilyConfig struct {
	APIKey string

	// Depth is "basic" or "advanced".
	// Default: "basic"
	Depth string

	// MaxResults applies when the request does not set one.
	// Default: 5
	MaxResults int
}

// TavilySearcher queries the Tavily search API.
type TavilySearcher struct {
	fetcher *HTTPFetcher
	config  TavilyConfig
}

// NewTavilySearcher creates a searcher posting through f.
func NewTavilySearcher(f *HTTPFetcher, config TavilyConfig) *TavilySearcher {
	if config.Depth == "" {
		config.Depth = "basic"
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 5
	}
	return &TavilySearcher{fetcher: f, config: config}
}

// Search runs req.
func (s *TavilySearcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrInvalidQuery
	}
	if req.MaxResults <= 0 {
		req.MaxResults = s.config.MaxResults
	}
	if req.Depth == "" {
		req.Depth = s.config.Depth
	}

	header := http.Header{}
	if s.config.APIKey != "" {
		header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	data, err := s.fetcher.PostJSON(ctx, "search", req, header)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if resp.Query == "" {
		resp.Query = req.Query
	}
	return &resp, nil
}

var _ Searcher = (*TavilySearcher)(nil)
