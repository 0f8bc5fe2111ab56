package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daoob/internal/infrastructure/queue/port"
)

func TestParseQueueWeights(t *testing.T) {
	got := parseQueueWeights(" messaging=6, default=x ,,=3,low")
	assert.Equal(t, map[string]int{"messaging": 6, "default": 1, "low": 1}, got)
	assert.Empty(t, parseQueueWeights(""))
}

func TestToAsynqOptions(t *testing.T) {
	assert.Empty(t, toAsynqOptions(nil))
	opts := toAsynqOptions([]port.EnqueueOption{{Queue: "messaging", MaxRetry: 5, Timeout: time.Second}})
	assert.Len(t, opts, 3)
}

func TestNewAsynqClientRequiresURL(t *testing.T) {
	_, err := NewAsynqClient("")
	require.Error(t, err)

	_, err = NewAsynqServer(ServerOptions{RedisURL: "  "})
	require.Error(t, err)
}

func TestSkipRetryRoundTrip(t *testing.T) {
	base := errors.New("bad payload")
	wrapped := port.SkipRetry(base)
	assert.True(t, port.IsSkipRetry(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.False(t, port.IsSkipRetry(base))
	assert.NoError(t, port.SkipRetry(nil))
}
