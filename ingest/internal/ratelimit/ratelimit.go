// Package ratelimit limits webhook deliveries per connector with a Redis
// sliding window shared by every ingest instance.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/metrics"
)

// KeyPrefix namespaces limiter keys in Redis.
const KeyPrefix = "pmap:ratelimit:"

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// slidingWindow trims entries older than the window, then admits the call
// if fewer than limit entries remain.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, ttl_ms)
		return 1
	end
	return 0
`)

type redisRateLimiter struct {
	client redis.UniversalClient
	owned  bool
	limit  int64
	window time.Duration
	now    func() time.Time
	seq    atomic.Uint64
}

// Option configures a Redis limiter.
type Option func(*redisRateLimiter)

// WithClock overrides the window clock.
func WithClock(now func() time.Time) Option {
	return func(r *redisRateLimiter) { r.now = now }
}

// NewRedisRateLimiter connects to redisURL and returns a limiter admitting
// limit calls per key within window. A disabled limiter admits everything
// without connecting.
func NewRedisRateLimiter(ctx context.Context, redisURL string, limit int, window time.Duration, disabled bool, opts ...Option) (RateLimiter, error) {
	if disabled {
		return &NoOpRateLimiter{}, nil
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d per %s", limit, window)
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	r := NewWithClient(client, limit, window, opts...)
	r.(*redisRateLimiter).owned = true
	return r, nil
}

// NewWithClient builds a limiter over an existing client. Close leaves the
// client open.
func NewWithClient(client redis.UniversalClient, limit int, window time.Duration, opts ...Option) RateLimiter {
	r := &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow implements sliding window rate limiting using Redis.
func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	// Members must be unique so calls in the same nanosecond each count.
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)

	result, err := slidingWindow.Run(ctx, r.client, []string{KeyPrefix + key},
		now, windowStart, r.limit, r.window.Milliseconds(), member).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.RateLimitHits.WithLabelValues(key).Inc()
	}
	return allowed, nil
}

func (r *redisRateLimiter) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}

// NoOpRateLimiter always allows requests (for testing or disabled rate limiting)
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}
