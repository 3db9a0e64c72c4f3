package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/jonwraymond/brgateway/resilience"
)

var (
	// ErrInvalidIdentifier is returned for input that is not a well-formed
	// CNPJ or CEP.
	ErrInvalidIdentifier = errors.New("provider: invalid identifier")

	// ErrInvalidQuery is returned for an empty or oversized search query.
	ErrInvalidQuery = errors.New("provider: invalid search query")

	// ErrNotFound is matched by upstream 404 responses.
	ErrNotFound = errors.New("provider: not found")

	// ErrUpstream is matched by every non-2xx upstream response.
	ErrUpstream = errors.New("provider: upstream error")

	// ErrBadPayload is returned when an upstream answers 2xx with a body
	// that is not the expected JSON.
	ErrBadPayload = errors.New("provider: malformed upstream payload")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Upstream   string
	StatusCode int
	// Body holds the start of the response body for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider: %s answered %d %s", e.Upstream, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is matches ErrUpstream, and ErrNotFound for 404.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Temporary reports whether the status may succeed on retry.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}

// IsTransient reports whether err is worth retrying: 5xx, 408 and 429
// responses, per-attempt timeouts, and network failures. Caller
// cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}

	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, resilience.ErrTimeout) ||
		errors.Is(err, resilience.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsPermanent reports whether err reflects the request rather than upstream
// health: malformed input and unknown identifiers.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidIdentifier) ||
		errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrNotFound)
}
