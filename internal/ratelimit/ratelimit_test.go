package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktime-backend/internal/clock"
)

func TestMemoryWindow(t *testing.T) {
	c := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemory(c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := store.Allow(ctx, "user-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := store.Allow(ctx, "user-1", 3, time.Minute)
	assert.False(t, ok)

	ok, _ = store.Allow(ctx, "user-2", 3, time.Minute)
	assert.True(t, ok, "keys are independent")

	c.Advance(time.Minute)
	ok, _ = store.Allow(ctx, "user-1", 3, time.Minute)
	assert.True(t, ok, "new window")
}

func TestMemoryReset(t *testing.T) {
	store := NewMemory(clock.NewManual(time.Now()))
	ctx := context.Background()

	ok, _ := store.Allow(ctx, "k", 1, time.Hour)
	assert.True(t, ok)
	ok, _ = store.Allow(ctx, "k", 1, time.Hour)
	assert.False(t, ok)

	store.Reset()
	ok, _ = store.Allow(ctx, "k", 1, time.Hour)
	assert.True(t, ok)
}

func TestRedisWindow(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedis(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := store.Allow(ctx, "user-1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := store.Allow(ctx, "user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, server.TTL("worktime:rate:user-1"))

	server.FastForward(time.Minute)
	ok, err = store.Allow(ctx, "user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
