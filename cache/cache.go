package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// DefaultTTL is the entry lifetime used when a cache is built with a zero TTL.
const DefaultTTL = 5 * time.Minute

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache stores upstream payloads for a fixed per-cache time-to-live.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss or expiry.
// - Expiry: an entry is never returned after its expiry instant.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key, replacing any previous entry.
	Set(ctx context.Context, key string, value []byte) error

	// Clear removes every entry the implementation is able to remove.
	Clear(ctx context.Context) error
}

// Entry is a live cached value as returned by diagnostics.
type Entry struct {
	Key   string
	Value []byte
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Loader fetches the value for a key on a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// ReadThrough returns the cached value for key or calls load and stores its
// result. Load errors are returned and never cached. The bool reports a hit.
func ReadThrough(ctx context.Context, c Cache, key string, load Loader) ([]byte, bool, error) {
	if c == nil {
		return nil, false, ErrNilCache
	}
	if err := ValidateKey(key); err != nil {
		v, lerr := load(ctx)
		return v, false, lerr
	}

	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}

	v, err := load(ctx)
	if err != nil {
		return nil, false, err
	}
	// A failed store only costs a future miss.
	_ = c.Set(ctx, key, v)
	return v, false, nil
}
