package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings. Callers own Close.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Limiter counts failed attempts per key and blocks the key for a cooldown
// once the maximum is reached.
type Limiter interface {
	// Check returns how long key stays blocked, zero when it may proceed.
	Check(ctx context.Context, key string, max int, cooldown time.Duration) (time.Duration, error)
	Fail(ctx context.Context, key string, window time.Duration) error
	Reset(ctx context.Context, key string) error
}

type RedisLimiter struct {
	client redis.Cmdable
}

func NewRedisLimiter(client redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func attemptsKey(key string) string { return key + ":attempts" }
func cooldownKey(key string) string { return key + ":cooldown" }

func (l *RedisLimiter) Check(ctx context.Context, key string, max int, cooldown time.Duration) (time.Duration, error) {
	ttl, err := l.client.TTL(ctx, cooldownKey(key)).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		return ttl, nil
	}

	attempts, err := l.client.Get(ctx, attemptsKey(key)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	if attempts < max {
		return 0, nil
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, cooldownKey(key), "1", cooldown)
	pipe.Del(ctx, attemptsKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cooldown, nil
}

func (l *RedisLimiter) Fail(ctx context.Context, key string, window time.Duration) error {
	pipe := l.client.Pipeline()
	pipe.Incr(ctx, attemptsKey(key))
	pipe.Expire(ctx, attemptsKey(key), window)
	_, err := pipe.Exec(ctx)
	return err
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, attemptsKey(key), cooldownKey(key)).Err()
}

type NopLimiter struct{}

func (NopLimiter) Check(context.Context, string, int, time.Duration) (time.Duration, error) {
	return 0, nil
}
func (NopLimiter) Fail(context.Context, string, time.Duration) error { return nil }
func (NopLimiter) Reset(context.Context, string) error               { return nil }
