package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every override variable.
const EnvPrefix = "BRGW_"

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(name string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.get(name); ok {
		*dst = v
	}
}

func (r *envReader) list(name string, dst *[]string) {
	if v, ok := r.get(name); ok {
		*dst = strings.FieldsFunc(v, func(c rune) bool { return c == ',' || c == ' ' })
	}
}

func (r *envReader) int(name string, dst *int) {
	if v, ok := r.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}
}

func (r *envReader) float(name string, dst *float64) {
	if v, ok := r.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = f
	}
}

func (r *envReader) bool(name string, dst *bool) {
	if v, ok := r.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	if v, ok := r.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = d
	}
}

func (r *envReader) upstream(prefix string, u *UpstreamConfig) {
	r.str(prefix+"_BASE_URL", &u.BaseURL)
	r.duration(prefix+"_TIMEOUT", &u.Timeout)
	r.float(prefix+"_RATE_PER_SECOND", &u.RatePerSecond)
	r.int(prefix+"_BURST", &u.Burst)
	r.int(prefix+"_MAX_CONCURRENT", &u.MaxConcurrent)
	r.int(prefix+"_RETRY_ATTEMPTS", &u.RetryAttempts)
}

// applyEnv overlays BRGW_* variables onto cfg. Malformed values are
// reported together.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	r.str("SERVER_ADDR", &cfg.Server.Addr)
	r.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	r.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	r.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	r.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	r.list("SERVER_TRUSTED_PROXIES", &cfg.Server.TrustedProxies)

	r.str("CACHE_BACKEND", &cfg.Cache.Backend)
	r.int("CACHE_MAX_SIZE", &cfg.Cache.MaxSize)
	r.duration("CACHE_TTL", &cfg.Cache.TTL)
	r.duration("CACHE_SWEEP_INTERVAL", &cfg.Cache.SweepInterval)

	r.str("REDIS_ADDR", &cfg.Redis.Addr)
	r.str("REDIS_PASSWORD", &cfg.Redis.Password)
	r.int("REDIS_DB", &cfg.Redis.DB)
	r.str("REDIS_PREFIX", &cfg.Redis.Prefix)
	r.int("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)

	r.int("BREAKER_FAILURE_THRESHOLD", &cfg.Breaker.FailureThreshold)
	r.duration("BREAKER_RESET_TIMEOUT", &cfg.Breaker.ResetTimeout)
	r.int("BREAKER_HALF_OPEN_MAX_ATTEMPTS", &cfg.Breaker.HalfOpenMaxAttempts)

	r.bool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	r.duration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	r.int("RATE_LIMIT_MAX_REQUESTS", &cfg.RateLimit.MaxRequests)
	r.duration("RATE_LIMIT_CLEANUP_INTERVAL", &cfg.RateLimit.CleanupInterval)

	r.duration("DEDUP_STALE_TIMEOUT", &cfg.Dedup.StaleTimeout)

	r.duration("INTELLIGENCE_DEADLINE", &cfg.Intelligence.Deadline)
	r.int("INTELLIGENCE_MAX_CONCURRENCY", &cfg.Intelligence.MaxConcurrency)
	r.int("INTELLIGENCE_MAX_QUERIES", &cfg.Intelligence.MaxQueries)
	r.int("INTELLIGENCE_RESULTS_PER_TASK", &cfg.Intelligence.ResultsPerTask)

	r.str("PROVIDERS_USER_AGENT", &cfg.Providers.UserAgent)
	r.upstream("CNPJ", &cfg.Providers.CNPJ)
	r.upstream("CEP", &cfg.Providers.CEP)
	r.upstream("SEARCH", &cfg.Providers.Search.UpstreamConfig)
	r.str("SEARCH_API_KEY", &cfg.Providers.Search.APIKey)
	r.str("SEARCH_DEPTH", &cfg.Providers.Search.Depth)
	r.int("SEARCH_MAX_RESULTS", &cfg.Providers.Search.MaxResults)

	r.bool("AUTH_REQUIRED", &cfg.Auth.Required)
	r.str("AUTH_JWT_SECRET", &cfg.Auth.JWT.Secret)
	r.str("AUTH_JWT_JWKS_URL", &cfg.Auth.JWT.JWKSURL)
	r.str("AUTH_JWT_ISSUER", &cfg.Auth.JWT.Issuer)
	r.str("AUTH_JWT_AUDIENCE", &cfg.Auth.JWT.Audience)

	r.str("SERVICE_NAME", &cfg.Observe.ServiceName)
	r.str("LOG_LEVEL", &cfg.Observe.LogLevel)
	r.str("TRACING_EXPORTER", &cfg.Observe.TracingExporter)
	r.float("TRACING_SAMPLE_PCT", &cfg.Observe.SamplePct)
	r.str("METRICS_EXPORTER", &cfg.Observe.MetricsExporter)

	r.str("SECRETS_FILE_DIR", &cfg.Secrets.FileDir)

	return errors.Join(r.errs...)
}
