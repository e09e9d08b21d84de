package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const accessTokenKeyPrefix = "access_token:"

// RedisCache backs the access-token store with Redis, so sessions survive
// server restarts and multiple instances see the same state.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (c *RedisCache) Store(ctx context.Context, username, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("cache: ttl must be positive")
	}
	return c.client.Set(ctx, accessTokenKeyPrefix+username, token, ttl).Err()
}

func (c *RedisCache) Lookup(ctx context.Context, username string) (string, error) {
	token, err := c.client.Get(ctx, accessTokenKeyPrefix+username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return token, nil
}

func (c *RedisCache) Remove(ctx context.Context, username string) error {
	return c.client.Del(ctx, accessTokenKeyPrefix+username).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
