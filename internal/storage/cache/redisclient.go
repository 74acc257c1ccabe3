// Package cache adds a Redis read-aside layer in front of the user store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 2 * time.Second

// RedisClient adapts go-redis to the CacheClient interface, storing
// values as JSON blobs.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient connects and pings within connectTimeout so a bad
// address surfaces at startup rather than on the first fan-out.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &RedisClient{rdb: rdb}, nil
}

// Get unmarshals the stored blob into dest. Absent keys come back as
// redis.Nil, which callers treat as a miss.
func (c *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	blob, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(blob, dest); err != nil {
		return fmt.Errorf("decode cached value for %s: %w", key, err)
	}
	return nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, blob, ttl).Err()
}

func (c *RedisClient) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
