package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/brgateway/auth"
	"github.com/jonwraymond/brgateway/cache"
	"github.com/jonwraymond/brgateway/config"
	"github.com/jonwraymond/brgateway/gateway"
	"github.com/jonwraymond/brgateway/health"
	"github.com/jonwraymond/brgateway/observe"
	"github.com/jonwraymond/brgateway/provider"
	"github.com/jonwraymond/brgateway/resilience"
	"github.com/jonwraymond/brgateway/server"
)

// app holds every long-lived component built from the configuration.
type app struct {
	cfg      *config.Config
	observer observe.Observer
	mw       *observe.Middleware
	logger   observe.Logger
	registry *prometheus.Registry

	redis   *redis.Client
	lru     *cache.LRUCache
	gateway *gateway.Service
	health  *health.Aggregator
}

func newApp(ctx context.Context, cfg *config.Config, version string) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.ObserverConfig(version)
	obsCfg.Metrics.Registerer = a.registry
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, err
	}
	a.observer = obs
	a.logger = obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, errors.Join(err, obs.Shutdown(ctx))
	}
	a.mw = mw

	a.health = health.NewAggregator(health.AggregatorConfig{})
	a.health.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	store, err := a.buildCache()
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}

	gw, err := gateway.New(gateway.Options{
		CNPJ:      provider.NewCNPJProvider(a.fetcher(gateway.UpstreamCNPJ, cfg.Providers.CNPJ)),
		CEP:       provider.NewCEPProvider(a.fetcher(gateway.UpstreamCEP, cfg.Providers.CEP)),
		Searcher:  a.searcher(),
		Cache:     store,
		Upstreams: a.upstreams(),
		Limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Window:          cfg.RateLimit.Window,
			MaxRequests:     cfg.RateLimit.MaxRequests,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
		}),
		Dedup: resilience.DeduplicatorConfig{StaleTimeout: cfg.Dedup.StaleTimeout},
		Intelligence: gateway.IntelligenceConfig{
			Deadline:       cfg.Intelligence.Deadline,
			MaxConcurrency: cfg.Intelligence.MaxConcurrency,
			MaxQueries:     cfg.Intelligence.MaxQueries,
			ResultsPerTask: cfg.Intelligence.ResultsPerTask,
		},
		Middleware: mw,
	})
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	a.gateway = gw

	for name, cb := range gw.Breakers() {
		checker := "upstream_" + name
		a.health.RegisterOptional(checker, health.NewBreakerChecker(checker, cb))
	}
	return a, nil
}

func (a *app) buildCache() (cache.Cache, error) {
	c := a.cfg.Cache
	if c.Backend != config.CacheBackendRedis {
		a.lru = cache.NewLRUCache(cache.LRUConfig{
			MaxSize:       c.MaxSize,
			TTL:           c.TTL,
			SweepInterval: c.SweepInterval,
		})
		return a.lru, nil
	}

	r := a.cfg.Redis
	a.redis = redis.NewClient(&redis.Options{
		Addr:         r.Addr,
		Password:     r.Password,
		DB:           r.DB,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
		PoolSize:     r.PoolSize,
	})
	rc := cache.NewRedisCache(a.redis, cache.RedisConfig{
		Prefix: r.Prefix,
		TTL:    c.TTL,
		OnError: func(op, key string, err error) {
			a.logger.Warn(context.Background(), "cache store error",
				observe.F("op", op),
				observe.F("key", key),
				observe.F("error", err.Error()),
			)
		},
	})
	a.health.Register("cache_store", health.NewPingChecker("cache_store", rc))
	return rc, nil
}

func (a *app) fetcher(name string, u config.UpstreamConfig) *provider.HTTPFetcher {
	return provider.NewHTTPFetcher(provider.HTTPConfig{
		Name:      name,
		BaseURL:   u.BaseURL,
		UserAgent: a.cfg.Providers.UserAgent,
	})
}

func (a *app) searcher() *provider.TavilySearcher {
	s := a.cfg.Providers.Search
	return provider.NewTavilySearcher(a.fetcher(gateway.UpstreamSearch, s.UpstreamConfig), provider.TavilyConfig{
		APIKey:     s.APIKey,
		Depth:      s.Depth,
		MaxResults: s.MaxResults,
	})
}

func (a *app) upstreams() map[string]*resilience.Executor {
	p := a.cfg.Providers
	b := a.cfg.Breaker
	policy := func(u config.UpstreamConfig) gateway.Policy {
		return gateway.Policy{
			Timeout:       u.Timeout,
			RatePerSecond: u.RatePerSecond,
			Burst:         u.Burst,
			MaxConcurrent: u.MaxConcurrent,
			RetryAttempts: u.RetryAttempts,
			Breaker: resilience.CircuitBreakerConfig{
				FailureThreshold:    b.FailureThreshold,
				ResetTimeout:        b.ResetTimeout,
				HalfOpenMaxAttempts: b.HalfOpenMaxAttempts,
			},
		}
	}

	metrics, logger := a.mw.Metrics(), a.logger
	return map[string]*resilience.Executor{
		gateway.UpstreamCNPJ:   gateway.NewUpstreamExecutor(gateway.UpstreamCNPJ, policy(p.CNPJ), metrics, logger),
		gateway.UpstreamCEP:    gateway.NewUpstreamExecutor(gateway.UpstreamCEP, policy(p.CEP), metrics, logger),
		gateway.UpstreamSearch: gateway.NewUpstreamExecutor(gateway.UpstreamSearch, policy(p.Search.UpstreamConfig), metrics, logger),
	}
}

// authenticator returns nil when no credentials are configured.
func (a *app) authenticator() auth.Authenticator {
	cfg := a.cfg.Auth
	var auths []auth.Authenticator

	if len(cfg.APIKeys) > 0 {
		store := auth.NewMemoryAPIKeyStore()
		for _, k := range cfg.APIKeys {
			store.AddRaw(k.ID, k.Key, k.Principal, k.Roles...)
		}
		auths = append(auths, auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{}, store))
	}

	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway,
	}
	switch {
	case cfg.JWT.Secret != "":
		jwtCfg.ValidMethods = []string{"HS256"}
		auths = append(auths, auth.NewJWTAuthenticator(jwtCfg, auth.NewStaticKeyProvider([]byte(cfg.JWT.Secret))))
	case cfg.JWT.JWKSURL != "":
		jwtCfg.ValidMethods = []string{"RS256"}
		auths = append(auths, auth.NewJWTAuthenticator(jwtCfg, auth.NewJWKSKeyProvider(auth.JWKSConfig{URL: cfg.JWT.JWKSURL})))
	}

	if len(auths) == 0 {
		return nil
	}
	return auth.NewCompositeAuthenticator(auths...)
}

func (a *app) authorizer() auth.Authorizer {
	if len(a.cfg.Auth.Roles) == 0 {
		return auth.AllowAllAuthorizer{}
	}
	return auth.NewRoleAuthorizer(a.cfg.Auth.Roles)
}

func (a *app) handler() (http.Handler, error) {
	var metricsHandler http.Handler
	if a.cfg.Observe.MetricsExporter == "prometheus" {
		metricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}

	s, err := server.New(server.Config{
		ServiceName:    a.cfg.Observe.ServiceName,
		RequireAuth:    a.cfg.Auth.Required,
		RateLimit:      a.cfg.RateLimit.Enabled,
		TrustedProxies: a.cfg.Server.TrustedProxies,
	}, server.Deps{
		Gateway:        a.gateway,
		Authenticator:  a.authenticator(),
		Authorizer:     a.authorizer(),
		Health:         a.health,
		MetricsHandler: metricsHandler,
		Metrics:        a.mw.Metrics(),
		Logger:         a.logger,
	})
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// startBackground runs the cache sweeper and limiter janitor until ctx ends.
func (a *app) startBackground(ctx context.Context) {
	if a.lru != nil {
		a.lru.StartSweeper(ctx)
	}
	a.gateway.ClientLimiter().StartJanitor(ctx)
}

// Close releases the cache store and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.lru != nil {
		errs = append(errs, a.lru.Clear(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.observer != nil {
		errs = append(errs, a.observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
