// Package redis wraps go-redis/v9 for the shared validation result cache:
// byte-valued get/set with TTL, prefix-scoped invalidation and key counts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient connects and PINGs once, giving up after five seconds.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the raw value stored under key. A missing key yields an error
// for which IsNilError is true.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

// Set stores value under key with the given TTL; zero means no expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

const scanBatch = 100

// scan walks the keys matching pattern in SCAN pages, handing each page to fn.
func (c *Client) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// FlushByPattern unlinks every key matching the glob pattern and returns
// how many were removed.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var removed int64
	err := c.scan(ctx, pattern, func(keys []string) error {
		n, err := c.rdb.Unlink(ctx, keys...).Result()
		removed += n
		if err != nil {
			return fmt.Errorf("unlink %d keys: %w", len(keys), err)
		}
		return nil
	})
	return removed, err
}

// CountByPattern counts keys matching the glob pattern. SCAN may report a
// key twice while the keyspace is rehashing, so the count is approximate.
func (c *Client) CountByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := c.scan(ctx, pattern, func(keys []string) error {
		n += int64(len(keys))
		return nil
	})
	return n, err
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
