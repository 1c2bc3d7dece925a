package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fest:cooldown:"

type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps cooldowns in Redis so every instance sees the same state.
type RedisStore struct {
	client redisClient
}

func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient connects to the Redis server at url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Unix(), window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("set cooldown: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := s.client.PTTL(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("read cooldown ttl: %w", err)
	}
	// Negative TTLs mean the key vanished or has no expiry; report the full window.
	if ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release cooldown: %w", err)
	}
	return nil
}
