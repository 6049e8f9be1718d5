package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/travel_social/internal/apperr"
)

// RedisCache keeps blacklist entries in Redis, shared by every instance.
type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Dial parses a redis:// URL and checks the server answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
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

func (c *RedisCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrNonPositiveTTL
	}
	if err := c.client.Set(ctx, Key(token), Sentinel, ttl).Err(); err != nil {
		return apperr.Wrap(apperr.CodeStoreUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Exists(ctx context.Context, token string) (bool, error) {
	n, err := c.client.Exists(ctx, Key(token)).Result()
	if err != nil {
		return false, apperr.Wrap(apperr.CodeStoreUnavailable, err)
	}
	return n > 0, nil
}
