package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewLimiter(client, limit, time.Minute), mr
}

func TestAllow_WithinLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "tenant-1"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow(ctx, "tenant-1"), "4th request should be limited")
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "tenant-1"))
	assert.False(t, l.Allow(ctx, "tenant-1"))
	assert.True(t, l.Allow(ctx, "tenant-2"))
}

func TestAllow_NilClientFailsOpen(t *testing.T) {
	l := NewLimiter(nil, 1, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(ctx, "tenant-1"))
	}
}

func TestAllow_RedisDownFailsOpen(t *testing.T) {
	l, mr := newTestLimiter(t, 1)
	mr.Close()

	assert.True(t, l.Allow(context.Background(), "tenant-1"))
}
