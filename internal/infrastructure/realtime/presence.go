package realtime

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"daoob/internal/infrastructure/cache/port"
)

// Presence answers "is this user connected" from the local registry first and
// then from shared cache keys written by every instance. The cache is optional
// and a nil *Presence reports everyone offline.
type Presence struct {
	registry *Registry
	cache    port.Cache
	ttl      time.Duration
	logger   zerolog.Logger
}

func NewPresence(registry *Registry, cache port.Cache, ttl time.Duration, logger zerolog.Logger) *Presence {
	if ttl <= 0 {
		ttl = 2 * PongWait
	}
	return &Presence{registry: registry, cache: cache, ttl: ttl, logger: logger}
}

func presenceKey(userID int64) string {
	return "presence:user:" + strconv.FormatInt(userID, 10)
}

// MarkOnline records the connection as the user's live session. Called on
// auth and on every pong so the key outlives the ping period.
func (p *Presence) MarkOnline(ctx context.Context, userID int64, connID string) {
	if p == nil || p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, presenceKey(userID), connID, p.ttl); err != nil {
		p.logger.Warn().Err(err).Int64("user_id", userID).Msg("presence: mark online failed")
	}
}

// MarkOffline clears the key unless a newer connection has already claimed it.
func (p *Presence) MarkOffline(ctx context.Context, userID int64, connID string) {
	if p == nil || p.cache == nil {
		return
	}
	key := presenceKey(userID)
	current, err := p.cache.Get(ctx, key)
	if errors.Is(err, port.ErrMiss) {
		return
	}
	if err != nil {
		p.logger.Warn().Err(err).Int64("user_id", userID).Msg("presence: lookup failed")
		return
	}
	if current != connID {
		return
	}
	if _, err := p.cache.Del(ctx, key); err != nil {
		p.logger.Warn().Err(err).Int64("user_id", userID).Msg("presence: mark offline failed")
	}
}

func (p *Presence) IsOnline(ctx context.Context, userID int64) bool {
	if p == nil {
		return false
	}
	if p.registry != nil && p.registry.Online(userID) {
		return true
	}
	if p.cache == nil {
		return false
	}
	_, err := p.cache.Get(ctx, presenceKey(userID))
	if err != nil && !errors.Is(err, port.ErrMiss) {
		p.logger.Warn().Err(err).Int64("user_id", userID).Msg("presence: lookup failed")
	}
	return err == nil
}
