package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/mmynk/brokewise/internal/currency"
)

const redisKeyPrefix = "brokewise:rates:"

// RedisClient is the part of go-redis the cache needs. *redis.Client satisfies it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache is a SnapshotCache shared between server instances.
type RedisCache struct {
	client RedisClient
}

// NewRedisCache creates a RedisCache on client.
func NewRedisCache(client RedisClient) *RedisCache {
	return &RedisCache{client: client}
}

// OpenRedis connects to the Redis instance at url and verifies it responds.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func redisKey(base currency.Code) string {
	return redisKeyPrefix + string(base)
}

func (c *RedisCache) Get(ctx context.Context, base currency.Code) (*Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(base)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached rates: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached rates: %w", err)
	}
	return &snap, true, nil
}

func (c *RedisCache) Set(ctx context.Context, snap *Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(snap.Base), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rates: %w", err)
	}
	return nil
}
