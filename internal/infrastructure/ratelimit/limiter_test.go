package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daoob/internal/infrastructure/cache/port"
)

type counterCache struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (c *counterCache) Get(context.Context, string) (string, error) { return "", port.ErrMiss }
func (c *counterCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}
func (c *counterCache) Del(context.Context, ...string) (int64, error) { return 0, nil }
func (c *counterCache) Ping(context.Context) error                    { return nil }
func (c *counterCache) Close() error                                  { return nil }

func (c *counterCache) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	cache := &counterCache{counts: map[string]int64{}}
	l := New(cache, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok, "limits are per user")
}

func TestLimiterDisabled(t *testing.T) {
	var nilLimiter *Limiter
	ok, err := nilLimiter.Allow(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = New(nil, 5, time.Second).Allow(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterFailsOpenWithError(t *testing.T) {
	cache := &counterCache{counts: map[string]int64{}, err: errors.New("redis down")}
	ok, err := New(cache, 1, time.Second).Allow(context.Background(), 1)
	assert.Error(t, err)
	assert.True(t, ok)
}
