package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
)

func validResult(code string) ComputeFunc {
	return func() (*validation.Result, error) {
		return &validation.Result{IsValid: true, Errors: []validation.Error{}, Code: code}, nil
	}
}

func TestMemoryHitAndMiss(t *testing.T) {
	c, err := NewMemory(8, time.Minute)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	_, hit, err := c.GetOrCompute(ctx, "a = 1", validResult("a = 1"))
	if err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	res, hit, err := c.GetOrCompute(ctx, "a = 1", func() (*validation.Result, error) {
		t.Fatal("compute called on a cached key")
		return nil, nil
	})
	if err != nil || !hit || res.Code != "a = 1" {
		t.Fatalf("second call: res=%+v hit=%v err=%v", res, hit, err)
	}

	st := c.Stats(ctx)
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 || st.Backend != config.CacheMemory {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c, err := NewMemory(8, time.Second)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.GetOrCompute(ctx, "x", validResult("x"))
	now = now.Add(2 * time.Second)
	if _, hit, _ := c.GetOrCompute(ctx, "x", validResult("x")); hit {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryComputeError(t *testing.T) {
	c, _ := NewMemory(8, 0)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "x", func() (*validation.Result, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if c.Stats(context.Background()).Entries != 0 {
		t.Error("failed computations must not be cached")
	}
}

func TestMemoryCollapsesConcurrentMisses(t *testing.T) {
	c, _ := NewMemory(8, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*validation.Result, error) {
		calls.Add(1)
		<-release
		return &validation.Result{IsValid: true}, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetOrCompute(context.Background(), "same code", compute)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected one computation, got %d", n)
	}
}

func TestMemoryInvalidate(t *testing.T) {
	c, _ := NewMemory(8, time.Minute)
	ctx := context.Background()
	c.GetOrCompute(ctx, "x", validResult("x"))
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, hit, _ := c.GetOrCompute(ctx, "x", validResult("x")); hit {
		t.Error("expected miss after invalidate")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, err := New(config.CacheConfig{Type: config.CacheRedis}, nil); err == nil {
		t.Error("expected error for redis without a client")
	}
	c, err := New(config.CacheConfig{Type: config.CacheNone}, nil)
	if err != nil {
		t.Fatalf("New(none): %v", err)
	}
	if _, hit, _ := c.GetOrCompute(context.Background(), "x", validResult("x")); hit {
		t.Error("nop cache reported a hit")
	}
	if _, err := New(config.CacheConfig{Type: "disk"}, nil); err == nil {
		t.Error("expected error for unknown cache type")
	}
}

func TestBuildKeyStable(t *testing.T) {
	if buildKey("a") != buildKey("a") || buildKey("a") == buildKey("b") {
		t.Error("keys must be deterministic and distinct")
	}
}
