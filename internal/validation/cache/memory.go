package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
)

type memoryEntry struct {
	result  *validation.Result
	expires time.Time
}

// Memory is an in-process LRU cache. Entries older than the TTL are treated
// as misses; a zero TTL keeps entries until they are evicted.
type Memory struct {
	entries *lru.Cache[string, memoryEntry]
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	now     func() time.Time
}

func NewMemory(size int, ttl time.Duration) (*Memory, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &Memory{
		entries: entries,
		ttl:     ttl,
		logger:  slog.Default().With("component", "validation-cache", "backend", config.CacheMemory),
		now:     time.Now,
	}, nil
}

func (c *Memory) get(key string) (*validation.Result, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.entries.Remove(key)
		return nil, false
	}
	return e.result, true
}

func (c *Memory) GetOrCompute(ctx context.Context, code string, compute ComputeFunc) (*validation.Result, bool, error) {
	key := buildKey(code)
	if res, ok := c.get(key); ok {
		c.hits.Add(1)
		return res, true, nil
	}
	c.misses.Add(1)

	val, err, _ := c.group.Do(key, func() (any, error) {
		if res, ok := c.get(key); ok {
			return res, nil
		}
		res, err := compute()
		if err != nil {
			return nil, err
		}
		e := memoryEntry{result: res}
		if c.ttl > 0 {
			e.expires = c.now().Add(c.ttl)
		}
		c.entries.Add(key, e)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*validation.Result), false, nil
}

func (c *Memory) Invalidate(ctx context.Context) error {
	n := c.entries.Len()
	c.entries.Purge()
	c.logger.Info("cache invalidate", "keys_deleted", n)
	return nil
}

func (c *Memory) Stats(ctx context.Context) Stats {
	return Stats{
		Backend: config.CacheMemory,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: int64(c.entries.Len()),
	}
}
