package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/jonwraymond/brgateway/auth"
	"github.com/jonwraymond/brgateway/observe"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalid, field, fmt.Sprintf(format, args...)))
	}
	positive := func(field string, d time.Duration) {
		if d <= 0 {
			bad(field, "must be positive, got %s", d)
		}
	}

	if c.Server.Addr == "" {
		bad("server.addr", "required")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
		if c.Cache.MaxSize <= 0 {
			bad("cache.max_size", "must be positive, got %d", c.Cache.MaxSize)
		}
	case CacheBackendRedis:
		if c.Redis.Addr == "" {
			bad("redis.addr", "required for the redis cache backend")
		}
	default:
		bad("cache.backend", "must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.Cache.Backend)
	}
	positive("cache.ttl", c.Cache.TTL)

	if c.Breaker.FailureThreshold <= 0 {
		bad("breaker.failure_threshold", "must be positive")
	}
	positive("breaker.reset_timeout", c.Breaker.ResetTimeout)

	if c.RateLimit.Enabled {
		positive("rate_limit.window", c.RateLimit.Window)
		if c.RateLimit.MaxRequests <= 0 {
			bad("rate_limit.max_requests", "must be positive")
		}
	}

	positive("dedup.stale_timeout", c.Dedup.StaleTimeout)

	positive("intelligence.deadline", c.Intelligence.Deadline)
	if c.Intelligence.MaxQueries < 0 {
		bad("intelligence.max_queries", "must not be negative")
	}

	for name, u := range map[string]UpstreamConfig{
		"providers.cnpj":   c.Providers.CNPJ,
		"providers.cep":    c.Providers.CEP,
		"providers.search": c.Providers.Search.UpstreamConfig,
	} {
		if parsed, err := url.Parse(u.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			bad(name+".base_url", "must be an absolute URL, got %q", u.BaseURL)
		}
		positive(name+".timeout", u.Timeout)
		if u.RatePerSecond < 0 {
			bad(name+".rate_per_second", "must not be negative")
		}
	}
	if !slices.Contains([]string{"basic", "advanced"}, c.Providers.Search.Depth) {
		bad("providers.search.depth", "must be basic or advanced, got %q", c.Providers.Search.Depth)
	}

	if c.Auth.JWT.Secret != "" && c.Auth.JWT.JWKSURL != "" {
		bad("auth.jwt", "secret and jwks_url are mutually exclusive")
	}
	if c.Auth.Required && !c.Auth.Enabled() {
		bad("auth.required", "no api_keys or jwt configured")
	}
	seen := make(map[string]bool, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		field := fmt.Sprintf("auth.api_keys[%d]", i)
		if k.Key == "" || k.Principal == "" {
			bad(field, "key and principal are required")
		}
		if seen[k.Key] {
			bad(field, "duplicate key")
		}
		seen[k.Key] = true
	}
	for action := range c.Auth.Roles {
		if !slices.Contains([]string{auth.ActionLookup, auth.ActionSearch, auth.ActionIntelligence}, action) {
			bad("auth.roles", "unknown action %q", action)
		}
	}

	if c.Observe.ServiceName == "" {
		bad("observe.service_name", "required")
	}
	if !slices.Contains(observe.ValidLogLevels, c.Observe.LogLevel) {
		bad("observe.log_level", "got %q", c.Observe.LogLevel)
	}
	if !slices.Contains(observe.ValidTracingExporters, c.Observe.TracingExporter) {
		bad("observe.tracing_exporter", "got %q", c.Observe.TracingExporter)
	}
	if !slices.Contains(observe.ValidMetricsExporters, c.Observe.MetricsExporter) {
		bad("observe.metrics_exporter", "got %q", c.Observe.MetricsExporter)
	}

	return errors.Join(errs...)
}

// ObserverConfig converts the telemetry section for observe.NewObserver.
func (c *Config) ObserverConfig(version string) observe.Config {
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.TracingExporter != "none",
			Exporter:  c.Observe.TracingExporter,
			SamplePct: c.Observe.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.MetricsExporter != "none",
			Exporter: c.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Observe.LogLevel,
		},
	}
}
