// Package cache memoises validation results keyed by the code sample. The
// engine is deterministic for a given index, so a cached result is only
// stale after the index is reloaded; callers invalidate then.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	pkgredis "github.com/patrickoleary/vtkapi-mcp/pkg/redis"
)

const keyPrefix = "validate:"

// ComputeFunc produces the result for a cache miss.
type ComputeFunc func() (*validation.Result, error)

// Cache is a validation result cache. GetOrCompute reports whether the
// result came from the cache.
type Cache interface {
	GetOrCompute(ctx context.Context, code string, compute ComputeFunc) (*validation.Result, bool, error)
	Invalidate(ctx context.Context) error
	Stats(ctx context.Context) Stats
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Entries int64  `json:"entries"`
}

// New builds the cache selected by cfg.Type. client is only used by the
// redis backend and may be nil otherwise.
func New(cfg config.CacheConfig, client *pkgredis.Client) (Cache, error) {
	switch cfg.Type {
	case config.CacheRedis:
		if client == nil {
			return nil, fmt.Errorf("redis cache requires a redis client")
		}
		return NewRedis(client, cfg.TTL), nil
	case config.CacheMemory:
		return NewMemory(cfg.Size, cfg.TTL)
	case config.CacheNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

func buildKey(code string) string {
	hash := sha256.Sum256([]byte(code))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// Nop never caches.
type Nop struct{}

func (Nop) GetOrCompute(_ context.Context, _ string, compute ComputeFunc) (*validation.Result, bool, error) {
	res, err := compute()
	return res, false, err
}

func (Nop) Invalidate(context.Context) error { return nil }

func (Nop) Stats(context.Context) Stats { return Stats{Backend: config.CacheNone} }
