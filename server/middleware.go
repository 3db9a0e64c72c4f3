package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/brgateway/auth"
	"github.com/jonwraymond/brgateway/observe"
)

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []observe.Field{
			observe.F("method", c.Request.Method),
			observe.F("route", c.FullPath()),
			observe.F("status", c.Writer.Status()),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
			observe.F("client_ip", c.ClientIP()),
		}
		if p := auth.PrincipalFromContext(c.Request.Context()); p != "" {
			fields = append(fields, observe.F("principal", p))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn(c.Request.Context(), "request failed", fields...)
			return
		}
		s.logger.Debug(c.Request.Context(), "request served", fields...)
	}
}

// authenticate resolves the caller identity and stores it in the request
// context. Presented but invalid credentials are always rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		identity := auth.AnonymousIdentity()

		if s.authn != nil {
			req := auth.RequestFromHTTP(c.Request)
			if s.authn.Supports(ctx, req) {
				res, err := s.authn.Authenticate(ctx, req)
				if err != nil {
					s.logger.Error(ctx, "authentication error", observe.F("error", err.Error()))
					abort(c, http.StatusInternalServerError, "internal", "authentication unavailable")
					return
				}
				if !res.Authenticated {
					c.Header("WWW-Authenticate", `Bearer realm="brgateway"`)
					abort(c, http.StatusUnauthorized, "unauthorized", authMessage(res.Error))
					return
				}
				identity = res.Identity
			}
		}

		if identity.IsAnonymous() && s.config.RequireAuth {
			c.Header("WWW-Authenticate", `Bearer realm="brgateway"`)
			abort(c, http.StatusUnauthorized, "unauthorized", auth.ErrMissingCredentials.Error())
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, identity))
		c.Next()
	}
}

func authMessage(err error) string {
	switch {
	case err == nil:
		return auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrTokenExpired):
		return auth.ErrTokenExpired.Error()
	case errors.Is(err, auth.ErrMissingCredentials):
		return auth.ErrMissingCredentials.Error()
	default:
		return auth.ErrInvalidCredentials.Error()
	}
}

// clientID keys the rate limiter: the principal when authenticated, the
// client IP otherwise.
func clientID(c *gin.Context) string {
	if id := auth.IdentityFromContext(c.Request.Context()); id != nil && !id.IsAnonymous() {
		return "principal:" + id.Principal
	}
	return "ip:" + c.ClientIP()
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		id := clientID(c)
		d := s.limiter.Decide(id)
		reset := d.RetryAfter
		if d.Allowed {
			reset = s.limiter.ResetTime(id)
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(seconds(reset)))

		if !d.Allowed {
			s.metrics.RecordRateLimitDenied(c.Request.Context())
			c.Header("Retry-After", strconv.Itoa(seconds(d.RetryAfter)))
			abort(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}

func (s *Server) authorize(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := s.authz.Authorize(ctx, auth.IdentityFromContext(ctx), action); err != nil {
			s.fail(c, err)
			return
		}
		c.Next()
	}
}

// seconds rounds d up to whole seconds, at least 1.
func seconds(d time.Duration) int {
	n := int(math.Ceil(d.Seconds()))
	if n < 1 {
		return 1
	}
	return n
}
