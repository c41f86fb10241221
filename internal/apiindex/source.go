package apiindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/pkg/resilience"
)

// Source yields the documents of an index.
type Source interface {
	Fetch(ctx context.Context) ([]Document, error)
	String() string
}

// Sink stores documents so a Source of the same kind can serve them later.
type Sink interface {
	Store(ctx context.Context, docs []Document) error
	String() string
}

var fetchRetry = resilience.RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// Build fetches the documents of src, retrying transient failures, and
// builds an index from them.
func Build(ctx context.Context, src Source) (*Index, error) {
	var docs []Document
	err := resilience.Retry(ctx, "index-fetch", fetchRetry, func() error {
		d, err := src.Fetch(ctx)
		if err != nil {
			return err
		}
		docs = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading api index from %s: %w", src, err)
	}
	return New(docs), nil
}

// Load is Build without failure: when src cannot be read the error is logged
// and an empty index is returned, so every class is treated as unknown.
func Load(ctx context.Context, src Source) *Index {
	logger := slog.Default().With("component", "apiindex", "source", src.String())
	start := time.Now()
	x, err := Build(ctx, src)
	if err != nil {
		logger.Error("api index unavailable, continuing with an empty index", "error", err)
		return Empty()
	}
	logger.Info("api index loaded",
		"classes", x.Len(),
		"modules", x.ModuleCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return x
}
