package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ManuelReschke/PayMatrix/internal/pkg/env"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr: env.GetEnv("CACHE_HOST", "localhost") + ":" + env.GetEnv("CACHE_PORT", "6379"),
		DB:   1, // Use test database
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestLockerExclusive(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb, 10*time.Second)
	name := "test-" + t.Name()

	lock, err := locker.Acquire(ctx, name)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, name)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))

	again, err := locker.Acquire(ctx, name)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb, 10*time.Second)
	name := "test-" + t.Name()

	lock, err := locker.Acquire(ctx, name)
	require.NoError(t, err)

	// Simulate expiry followed by another holder.
	require.NoError(t, rdb.Set(ctx, lockPrefix+name, "someone-else", 10*time.Second).Err())
	require.NoError(t, lock.Release(ctx))

	val, err := rdb.Get(ctx, lockPrefix+name).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	require.NoError(t, rdb.Del(ctx, lockPrefix+name).Err())
}
