package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter with a fixed window counter per key
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter connects to Redis and returns a fixed-window limiter
func NewRedisLimiter(address, password string, db, limit int, window time.Duration) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLimiter{client: client, limit: limit, window: window}, nil
}

// Allow counts one attempt against the key's window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	counterKey := fmt.Sprintf("verdict:ratelimit:%s", key)

	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, counterKey, l.window).Err(); err != nil {
			slog.Warn("failed to set rate limit window", "key", counterKey, "error", err)
		}
	}

	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, counterKey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return false, ttl, nil
	}

	return true, 0, nil
}

// Close closes the Redis connection
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// RedisGuard implements Guard with SET NX and a TTL safety valve so a
// crashed request cannot wedge a session.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard returns an in-flight guard sharing the limiter's client
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// Client exposes the underlying connection for guard construction
func (l *RedisLimiter) Client() *redis.Client {
	return l.client
}

// Acquire takes the session's mutation slot if free
func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	lockKey := fmt.Sprintf("verdict:inflight:%s", key)
	ok, err := g.client.SetNX(ctx, lockKey, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight guard: %w", err)
	}
	return ok, nil
}

// Release frees the session's mutation slot
func (g *RedisGuard) Release(ctx context.Context, key string) {
	lockKey := fmt.Sprintf("verdict:inflight:%s", key)
	if err := g.client.Del(ctx, lockKey).Err(); err != nil {
		slog.Warn("failed to release in-flight guard", "key", lockKey, "error", err)
	}
}
