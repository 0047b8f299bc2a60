// Package ratelimit implements a fixed-window request limiter backed by
// Redis, shared across server instances. Used to bound per-tenant webhook
// delivery rates.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

// Limiter counts events per key in fixed windows.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLimiter creates a limiter allowing limit events per window per key.
// A nil client disables limiting (Allow always returns true).
func NewLimiter(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow reports whether the event identified by key is within the limit.
// Redis errors fail open: an unavailable limiter must not take down the
// ingestion path.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.client == nil || l.limit <= 0 {
		return true
	}

	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(l.window.Seconds()))
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logger.Warn("ratelimit: redis unavailable, failing open", "error", err)
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}
	return count <= int64(l.limit)
}
