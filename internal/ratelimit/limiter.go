// Package ratelimit implements a Redis-backed sliding window limiter used
// to throttle the credential endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/assignment-tracker/apiserver/config"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "tracker:ratelimit:"

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// slidingWindow trims expired hits, counts the rest and records the new hit
// only when under the limit. Returns {allowed, remaining, reset_at_ms}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':seq')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':seq', expire_seconds)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

// Limiter implements sliding window rate limiting on Redis sorted sets.
type Limiter struct {
	client    redis.Scripter
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewLimiter creates a limiter allowing limit hits per window for each key.
func NewLimiter(client redis.Scripter, keyPrefix string, limit int, window time.Duration) *Limiter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Limiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
	}
}

// Open connects to Redis when cfg.RedisAddr is set. It returns a nil
// limiter, a nil client and no error when rate limiting is disabled.
func Open(ctx context.Context, cfg config.RateLimitConfig) (*Limiter, *redis.Client, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewLimiter(client, defaultKeyPrefix, cfg.Limit, cfg.Window), client, nil
}

// Allow records a hit for key and reports whether it fits in the window.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)

	raw, err := slidingWindow.Run(
		ctx,
		l.client,
		[]string{l.keyPrefix + key},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("redis script error: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("unexpected redis response length: %d", len(raw))
	}

	resetAt := now.Add(l.window)
	if raw[2] > 0 {
		resetAt = time.UnixMilli(raw[2])
	}
	return Result{
		Allowed:   raw[0] == 1,
		Remaining: int(raw[1]),
		ResetAt:   resetAt,
		Limit:     l.limit,
	}, nil
}
