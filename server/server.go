package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jonwraymond/brgateway/auth"
	"github.com/jonwraymond/brgateway/gateway"
	"github.com/jonwraymond/brgateway/health"
	"github.com/jonwraymond/brgateway/observe"
	"github.com/jonwraymond/brgateway/resilience"
)

// Config configures the HTTP surface.
type Config struct {
	// ServiceName names the otelgin server spans.
	// Default: "brgateway"
	ServiceName string

	// RequireAuth rejects requests without valid credentials.
	RequireAuth bool

	// RateLimit enables inbound per-client limiting with the gateway's
	// client limiter.
	RateLimit bool

	// TrustedProxies lists proxies whose forwarding headers are honored
	// when deriving the client IP. Empty trusts none.
	TrustedProxies []string
}

// Deps are the collaborators the server routes to. Gateway is required.
type Deps struct {
	Gateway *gateway.Service

	// Authenticator validates credentials. Nil admits every request as
	// anonymous.
	Authenticator auth.Authenticator

	// Authorizer gates actions. Defaults to allowing everything.
	Authorizer auth.Authorizer

	// Health backs the probe endpoints. Nil serves liveness only.
	Health *health.Aggregator

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	Metrics observe.Metrics
	Logger  observe.Logger
}

// Server routes HTTP requests to the gateway.
type Server struct {
	config  Config
	gw      *gateway.Service
	authn   auth.Authenticator
	authz   auth.Authorizer
	limiter *resilience.RateLimiter
	metrics observe.Metrics
	logger  observe.Logger
	engine  *gin.Engine
}

// New builds the router.
func New(config Config, deps Deps) (*Server, error) {
	if config.ServiceName == "" {
		config.ServiceName = "brgateway"
	}
	if deps.Authorizer == nil {
		deps.Authorizer = auth.AllowAllAuthorizer{}
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.NopMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = observe.NopLogger()
	}

	s := &Server{
		config:  config,
		gw:      deps.Gateway,
		authn:   deps.Authenticator,
		authz:   deps.Authorizer,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if config.RateLimit {
		s.limiter = deps.Gateway.ClientLimiter()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(config.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(otelgin.Middleware(config.ServiceName), gin.Recovery(), s.accessLog())

	engine.GET("/healthz", gin.WrapF(health.LivenessHandler()))
	if deps.Health != nil {
		engine.GET("/readyz", gin.WrapF(health.ReadinessHandler(deps.Health)))
		engine.GET("/health", gin.WrapF(health.DetailedHandler(deps.Health)))
		engine.GET("/health/:name", func(c *gin.Context) {
			health.SingleCheckHandler(deps.Health, c.Param("name")).ServeHTTP(c.Writer, c.Request)
		})
	}
	if deps.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	v1 := engine.Group("/v1", s.authenticate(), s.rateLimit())
	v1.GET("/cnpj/:id", s.authorize(auth.ActionLookup), s.lookupCNPJ)
	v1.GET("/cep/:id", s.authorize(auth.ActionLookup), s.lookupCEP)
	v1.GET("/search", s.authorize(auth.ActionSearch), s.search)
	v1.GET("/intelligence/:cnpj", s.authorize(auth.ActionIntelligence), s.intelligence)

	s.engine = engine
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}
