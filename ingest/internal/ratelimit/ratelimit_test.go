package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// manualClock advances only when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	for _, key := range []string{"appfolio", ""} {
		for i := 0; i < 10; i++ {
			allowed, err := limiter.Allow(ctx, key)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	}
	assert.NoError(t, limiter.Close())
}

func TestNewRedisRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled skips redis", func(t *testing.T) {
		limiter, err := NewRedisRateLimiter(ctx, "", 1, time.Minute, true)
		require.NoError(t, err)
		assert.IsType(t, &NoOpRateLimiter{}, limiter)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := NewRedisRateLimiter(ctx, "not-a-valid-url", 100, time.Minute, false)
		assert.ErrorContains(t, err, "invalid redis URL")
	})

	t.Run("non-positive limit", func(t *testing.T) {
		_, err := NewRedisRateLimiter(ctx, "redis://localhost:6379", 0, time.Minute, false)
		assert.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := NewRedisRateLimiter(ctx, "redis://"+addr, 10, time.Minute, false)
		assert.ErrorContains(t, err, "redis connection failed")
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter, err := NewRedisRateLimiter(ctx, "redis://"+mr.Addr(), 1, time.Minute, false)
		require.NoError(t, err)
		defer limiter.Close()

		allowed, err := limiter.Allow(ctx, "appfolio")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, mr.Exists(KeyPrefix+"appfolio"))
	})
}

func TestRedisRateLimiter_Limit(t *testing.T) {
	_, client := setupTestRedis(t)
	clock := &manualClock{now: time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewWithClient(client, 3, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "appfolio")
		require.NoError(t, err)
		assert.True(t, allowed, "call %d within limit", i+1)
	}

	allowed, err := limiter.Allow(ctx, "appfolio")
	require.NoError(t, err)
	assert.False(t, allowed, "fourth call in the same instant exceeds the limit")

	allowed, err = limiter.Allow(ctx, "buildium")
	require.NoError(t, err)
	assert.True(t, allowed, "keys are limited independently")
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	_, client := setupTestRedis(t)
	clock := &manualClock{now: time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewWithClient(client, 3, 2*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	allow := func() bool {
		t.Helper()
		ok, err := limiter.Allow(ctx, "appfolio")
		require.NoError(t, err)
		return ok
	}

	assert.True(t, allow())
	assert.True(t, allow())

	clock.Advance(1100 * time.Millisecond)
	assert.True(t, allow(), "one call remains mid-window")
	assert.False(t, allow(), "limit reached")

	clock.Advance(1100 * time.Millisecond)
	assert.True(t, allow(), "first two calls slid out of the window")
	assert.True(t, allow())
	assert.False(t, allow())
}

func TestRedisRateLimiter_SetsExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewWithClient(client, 5, 30*time.Second)

	_, err := limiter.Allow(context.Background(), "appfolio")
	require.NoError(t, err)

	ttl := mr.TTL(KeyPrefix + "appfolio")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Second)
}

func TestRedisRateLimiter_ConcurrentCalls(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewWithClient(client, 10, time.Minute)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.Allow(ctx, "appfolio")
			if err == nil && ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestRedisRateLimiter_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewWithClient(client, 5, time.Minute)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "appfolio")
	assert.ErrorContains(t, err, "rate limit check failed")
}

func TestRedisRateLimiter_CloseLeavesSharedClientOpen(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewWithClient(client, 5, time.Minute)

	require.NoError(t, limiter.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}
