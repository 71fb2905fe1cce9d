// Package kv is the shared key-value store backing refresh-credential state
// and rate-limit counters. It is the only stateful component in the request
// path; everything else is computed fresh per request.
package kv

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("kv: not found")

	// ErrUnavailable wraps driver errors when the store cannot be reached.
	// Callers decide fail-open (rate limiting) vs fail-closed (refresh).
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is the minimal key-value capability the credential pipeline needs.
// Every operation is a single round-trip and atomic at the level of one key;
// multi-key flows (refresh rotation) are deliberately not transactional.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes key=value with the given TTL (0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Incr atomically increments the counter at key and, on the first
	// increment of a window (result == 1), stamps the TTL. Fixed-window
	// semantics for the rate limiter.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// ScanPrefix returns all keys starting with prefix. Admin-only O(n)
	// operation; must not be used in request hot paths.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies the store connection is alive.
	Ping(ctx context.Context) error

	// Close releases the underlying client.
	Close() error
}

// Key builders. Kept in one place so the layout is greppable.

// RefreshKey is the forward mapping: refresh:<userID> -> token.
func RefreshKey(userID string) string { return "refresh:" + userID }

// RefreshLookupKey is the reverse mapping: refresh-lookup:<token> -> userID.
func RefreshLookupKey(token string) string { return "refresh-lookup:" + token }

// RefreshKeyPrefix is the scan prefix for active forward mappings.
const RefreshKeyPrefix = "refresh:"

// RateLimitKey builds the fixed-window counter key for an identity.
// windowIndex = floor(unixTime / windowSeconds).
func RateLimitKey(identity string, windowIndex int64) string {
	return "ratelimit:" + identity + ":" + strconv.FormatInt(windowIndex, 10)
}
