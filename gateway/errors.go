package gateway

import (
	"context"
	"errors"

	"github.com/jonwraymond/brgateway/provider"
)

// Errors callers classify responses by.
var (
	// ErrInvalidIdentifier is returned for identifiers with the wrong digit count.
	ErrInvalidIdentifier = provider.ErrInvalidIdentifier

	// ErrInvalidQuery is returned for blank search queries.
	ErrInvalidQuery = provider.ErrInvalidQuery

	// ErrNotFound is returned when the upstream has no record for the identifier.
	ErrNotFound = provider.ErrNotFound

	// ErrMissingProvider is returned by New when a provider is not supplied.
	ErrMissingProvider = errors.New("gateway: provider is required")
)

// IsBreakerFailure reports whether err says something about upstream health.
// Bad input, missing records and callers walking away do not count.
func IsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !provider.IsPermanent(err)
}
