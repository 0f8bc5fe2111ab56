package port

import (
	"context"
	"time"
)

// Cache is the key-value contract used for presence keys and rate-limit counters.
// Implementations must be safe for concurrent use.
//
// Values are strings so the port stays free of serialization concerns.
type Cache interface {
	// Get returns ("", ErrMiss) when key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Incr atomically increments the counter at key and returns the new value.
	// The TTL is applied only when the counter is created, giving a fixed window.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals a cache miss so callers can tell it apart from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
