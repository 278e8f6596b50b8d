package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore backs buckets with Redis so every instance of the service
// counts against the same window. The increment-and-expire runs as a Lua
// script: INCR is atomic, and the EXPIRE is bound to the same round trip so
// a crashed client can never leave an immortal counter behind.
type RedisStore struct {
	client *goredis.Client
	script *goredis.Script
}

func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		script: goredis.NewScript(`
			local count = redis.call('INCR', KEYS[1])
			if count == 1 then
				redis.call('EXPIRE', KEYS[1], ARGV[1])
			end
			local ttl = redis.call('TTL', KEYS[1])
			if ttl < 0 then
				redis.call('EXPIRE', KEYS[1], ARGV[1])
				ttl = tonumber(ARGV[1])
			end
			return {count, ttl}
		`),
	}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	result, err := s.script.Run(ctx, s.client, []string{key}, int(window.Seconds())).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit result format")
	}

	count := values[0].(int64)
	ttl := time.Duration(values[1].(int64)) * time.Second
	return count, ttl, nil
}

// Reset deletes the bucket for a key (admin operation).
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
