package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"daoob/internal/infrastructure/cache/port"
)

// Limiter is a fixed-window counter per user backed by the shared cache,
// so the limit holds across instances.
type Limiter struct {
	cache  port.Cache
	limit  int
	window time.Duration
	prefix string
}

// New returns a limiter allowing limit events per window. A non-positive
// limit disables limiting.
func New(cache port.Cache, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Limiter{cache: cache, limit: limit, window: window, prefix: "ratelimit:send:"}
}

// Allow counts one event for userID and reports whether it is within the limit.
// Errors come from the cache; the caller decides whether to fail open.
func (l *Limiter) Allow(ctx context.Context, userID int64) (bool, error) {
	if l == nil || l.cache == nil || l.limit <= 0 {
		return true, nil
	}
	bucket := time.Now().UnixNano() / int64(l.window)
	key := l.prefix + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(bucket, 10)
	n, err := l.cache.Incr(ctx, key, l.window)
	if err != nil {
		return true, fmt.Errorf("ratelimit: %w", err)
	}
	return n <= int64(l.limit), nil
}
