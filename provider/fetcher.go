package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves a resource path relative to an upstream base URL.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// Name identifies the upstream in errors and telemetry.
	Name string

	// BaseURL is prepended to every path.
	BaseURL string

	// UserAgent is sent on every request.
	UserAgent string

	// Client performs requests.
	// Default: a client with a 30s timeout
	Client *http.Client

	// MaxBodyBytes caps response bodies.
	// Default: 4 MiB
	MaxBodyBytes int64
}

// HTTPFetcher fetches JSON documents from one upstream.
type HTTPFetcher struct {
	config HTTPConfig
}

// NewHTTPFetcher creates a fetcher for one upstream.
func NewHTTPFetcher(config HTTPConfig) *HTTPFetcher {
	if config.Client == nil {
		config.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 4 << 20
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &HTTPFetcher{config: config}
}

// Name returns the upstream name.
func (f *HTTPFetcher) Name() string {
	return f.config.Name
}

// Fetch GETs path. Each path segment is escaped.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f.do(ctx, http.MethodGet, escapePath(path), nil, nil)
}

// PostJSON POSTs body as JSON to path with extra headers.
func (f *HTTPFetcher) PostJSON(ctx context.Context, path string, body any, header http.Header) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("provider: encode %s request: %w", f.config.Name, err)
	}
	return f.do(ctx, http.MethodPost, path, payload, header)
}

func (f *HTTPFetcher) do(ctx context.Context, method, path string, body []byte, header http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.config.BaseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("provider: build %s request: %w", f.config.Name, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.config.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: %s request: %w", f.config.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("provider: read %s response: %w", f.config.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Upstream:   f.config.Name,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), 256),
		}
	}
	return data, nil
}

func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Fetcher = (*HTTPFetcher)(nil)
