// Package config loads the gateway configuration.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, and BRGW_* environment variables (a .env file is read into the
// environment first). Credential fields may hold ${VAR} or
// secretref:<provider>:<ref> and are resolved after merging.
package config

import (
	"time"
)

// Config is the complete gateway configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Cache        CacheConfig        `yaml:"cache"`
	Redis        RedisConfig        `yaml:"redis"`
	Breaker      BreakerConfig      `yaml:"breaker"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Dedup        DedupConfig        `yaml:"dedup"`
	Intelligence IntelligenceConfig `yaml:"intelligence"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Auth         AuthConfig         `yaml:"auth"`
	Observe      ObserveConfig      `yaml:"observe"`
	Secrets      SecretsConfig      `yaml:"secrets"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TrustedProxies lists proxies whose X-Forwarded-For is honored when
	// deriving the client IP.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig selects and sizes the response cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory|redis
	MaxSize       int           `yaml:"max_size"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RedisConfig configures the durable cache store.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Prefix       string        `yaml:"prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// BreakerConfig configures the per-upstream circuit breakers.
type BreakerConfig struct {
	FailureThreshold    int           `yaml:"failure_threshold"`
	ResetTimeout        time.Duration `yaml:"reset_timeout"`
	HalfOpenMaxAttempts int           `yaml:"half_open_max_attempts"`
}

// RateLimitConfig configures inbound per-client limiting.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Window          time.Duration `yaml:"window"`
	MaxRequests     int           `yaml:"max_requests"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DedupConfig configures in-flight request coalescing.
type DedupConfig struct {
	StaleTimeout time.Duration `yaml:"stale_timeout"`
}

// IntelligenceConfig configures the enrichment fan-out.
type IntelligenceConfig struct {
	Deadline       time.Duration `yaml:"deadline"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	MaxQueries     int           `yaml:"max_queries"`
	ResultsPerTask int           `yaml:"results_per_task"`
}

// UpstreamConfig configures one outbound HTTP provider.
type UpstreamConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	UpstreamConfig `yaml:",inline"`
	APIKey         string `yaml:"api_key"`
	Depth          string `yaml:"depth"` // basic|advanced
	MaxResults     int    `yaml:"max_results"`
}

// ProvidersConfig configures every upstream.
type ProvidersConfig struct {
	UserAgent string         `yaml:"user_agent"`
	CNPJ      UpstreamConfig `yaml:"cnpj"`
	CEP       UpstreamConfig `yaml:"cep"`
	Search    SearchConfig   `yaml:"search"`
}

// APIKeyConfig declares one accepted API key.
type APIKeyConfig struct {
	ID        string   `yaml:"id"`
	Key       string   `yaml:"key"`
	Principal string   `yaml:"principal"`
	Roles     []string `yaml:"roles"`
}

// JWTConfig configures bearer token validation. Secret and JWKSURL are
// mutually exclusive.
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	JWKSURL  string        `yaml:"jwks_url"`
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	Leeway   time.Duration `yaml:"leeway"`
}

// AuthConfig configures inbound authentication.
type AuthConfig struct {
	// Required rejects unauthenticated requests. When false, anonymous
	// clients are admitted and rate limited by IP.
	Required bool           `yaml:"required"`
	APIKeys  []APIKeyConfig `yaml:"api_keys"`
	JWT      JWTConfig      `yaml:"jwt"`
	// Roles maps an action (lookup, search, intelligence) to the roles
	// allowed to perform it. Unlisted actions are open.
	Roles map[string][]string `yaml:"roles"`
}

// Enabled reports whether any authenticator is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWT.Secret != "" || a.JWT.JWKSURL != ""
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName     string  `yaml:"service_name"`
	LogLevel        string  `yaml:"log_level"`
	TracingExporter string  `yaml:"tracing_exporter"` // otlp|stdout|none
	SamplePct       float64 `yaml:"sample_pct"`
	MetricsExporter string  `yaml:"metrics_exporter"` // otlp|prometheus|stdout|none
}

// SecretsConfig configures secret providers.
type SecretsConfig struct {
	// FileDir enables the file provider, reading one secret per file.
	FileDir string `yaml:"file_dir"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    35 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Backend:       CacheBackendMemory,
			MaxSize:       1000,
			TTL:           5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			Prefix:       "brgw",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		},
		Breaker: BreakerConfig{
			FailureThreshold:    5,
			ResetTimeout:        30 * time.Second,
			HalfOpenMaxAttempts: 1,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Window:      time.Minute,
			MaxRequests: 100,
		},
		Dedup: DedupConfig{
			StaleTimeout: 30 * time.Second,
		},
		Intelligence: IntelligenceConfig{
			Deadline:       25 * time.Second,
			MaxConcurrency: 4,
			MaxQueries:     10,
			ResultsPerTask: 3,
		},
		Providers: ProvidersConfig{
			UserAgent: "brgateway/1.0",
			CNPJ: UpstreamConfig{
				BaseURL:       "https://brasilapi.com.br/api/cnpj/v1",
				Timeout:       10 * time.Second,
				RatePerSecond: 3,
				Burst:         3,
				MaxConcurrent: 8,
				RetryAttempts: 2,
			},
			CEP: UpstreamConfig{
				BaseURL:       "https://brasilapi.com.br/api/cep/v2",
				Timeout:       10 * time.Second,
				RatePerSecond: 10,
				Burst:         10,
				MaxConcurrent: 8,
				RetryAttempts: 2,
			},
			Search: SearchConfig{
				UpstreamConfig: UpstreamConfig{
					BaseURL:       "https://api.tavily.com",
					Timeout:       15 * time.Second,
					RatePerSecond: 5,
					Burst:         5,
					MaxConcurrent: 4,
					RetryAttempts: 1,
				},
				Depth:      "basic",
				MaxResults: 5,
			},
		},
		Observe: ObserveConfig{
			ServiceName:     "brgateway",
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1.0,
			MetricsExporter: "prometheus",
		},
	}
}
