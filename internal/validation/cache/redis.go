package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	pkgredis "github.com/patrickoleary/vtkapi-mcp/pkg/redis"
	"github.com/patrickoleary/vtkapi-mcp/pkg/resilience"
)

// Redis shares results between replicas. Redis failures never fail a
// validation: reads and writes go through a circuit breaker and a broken
// cache degrades to computing every result.
type Redis struct {
	client  *pkgredis.Client
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// DefaultBreaker is the circuit breaker configuration of NewRedis.
var DefaultBreaker = resilience.CircuitBreakerConfig{
	FailureThreshold: 3,
	ResetTimeout:     15 * time.Second,
}

func NewRedis(client *pkgredis.Client, ttl time.Duration) *Redis {
	return NewRedisWithBreaker(client, ttl, DefaultBreaker)
}

// NewRedisWithBreaker is NewRedis with an explicit breaker configuration,
// typically DefaultBreaker plus an OnStateChange hook.
func NewRedisWithBreaker(client *pkgredis.Client, ttl time.Duration, breaker resilience.CircuitBreakerConfig) *Redis {
	return &Redis{
		client:  client,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", breaker),
		logger:  slog.Default().With("component", "validation-cache", "backend", config.CacheRedis),
	}
}

// Breaker exposes the circuit breaker so its state can be reported.
func (c *Redis) Breaker() *resilience.CircuitBreaker { return c.breaker }

func (c *Redis) get(ctx context.Context, key string) (*validation.Result, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var res validation.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &res, true
}

func (c *Redis) set(ctx context.Context, key string, res *validation.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *Redis) GetOrCompute(ctx context.Context, code string, compute ComputeFunc) (*validation.Result, bool, error) {
	key := buildKey(code)
	if res, ok := c.get(ctx, key); ok {
		c.hits.Add(1)
		c.logger.Debug("cache hit", "key", key)
		return res, true, nil
	}
	c.misses.Add(1)

	val, err, _ := c.group.Do(key, func() (any, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, res)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*validation.Result), false, nil
}

func (c *Redis) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *Redis) Stats(ctx context.Context) Stats {
	st := Stats{Backend: config.CacheRedis, Hits: c.hits.Load(), Misses: c.misses.Load()}
	if n, err := c.client.CountByPattern(ctx, keyPrefix+"*"); err == nil {
		st.Entries = n
	}
	return st
}
