package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")

	// ErrUnknownProvider is returned for a secretref naming no registered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrEmptySecret is returned by a strict resolver when a provider yields "".
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrNotFound is returned by providers when the reference does not exist.
	ErrNotFound = errors.New("secret: not found")

	// ErrInvalidRef is returned for references a provider refuses to resolve.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
