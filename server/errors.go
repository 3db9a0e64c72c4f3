package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/brgateway/auth"
	"github.com/jonwraymond/brgateway/gateway"
	"github.com/jonwraymond/brgateway/observe"
	"github.com/jonwraymond/brgateway/provider"
	"github.com/jonwraymond/brgateway/resilience"
)

// statusClientClosed is logged when the caller went away before a response.
const statusClientClosed = 499

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: code})
}

// fail maps a gateway error to its HTTP response.
func (s *Server) fail(c *gin.Context, err error) {
	status, body := classify(err)

	if errors.Is(err, resilience.ErrCircuitOpen) {
		if d, ok := resilience.RetryAfter(err); ok {
			c.Header("Retry-After", strconv.Itoa(seconds(d)))
		}
	}
	if errors.Is(err, resilience.ErrDeadlineExceeded) && c.FullPath() == "/v1/intelligence/:cnpj" {
		body.Hint = "reduce max_queries or restrict categories"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request error",
			observe.F("route", c.FullPath()),
			observe.F("status", status),
			observe.F("error", err.Error()),
		)
	}
	if status == statusClientClosed {
		c.AbortWithStatus(status)
		return
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, gateway.ErrInvalidIdentifier):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_identifier"}
	case errors.Is(err, gateway.ErrInvalidQuery):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_query"}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: "forbidden"}
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found", Code: "not_found"}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "upstream unavailable", Code: "circuit_open"}
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrRateLimitExceeded):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "upstream busy", Code: "upstream_busy"}
	case errors.Is(err, resilience.ErrTimeout):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "upstream timed out", Code: "upstream_timeout"}
	case errors.Is(err, resilience.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "deadline exceeded", Code: "timeout"}
	case errors.Is(err, context.Canceled):
		return statusClientClosed, ErrorResponse{}
	case errors.Is(err, provider.ErrUpstream), errors.Is(err, provider.ErrBadPayload):
		return http.StatusBadGateway, ErrorResponse{Error: "upstream error", Code: "bad_gateway"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"}
	}
}
