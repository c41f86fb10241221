// Package app assembles the pieces shared by the binaries from
// configuration: the .env file, the index source and the validator.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/patrickoleary/vtkapi-mcp/pkg/postgres"
)

// Store is an index location that can be both read and written.
type Store interface {
	apiindex.Source
	apiindex.Sink
}

// LoadConfig reads a .env file from the working directory when present and
// then loads path with environment overrides applied.
func LoadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return config.Load(path)
}

// OpenStore returns the index location selected by cfg.Index.Source. The
// returned close function releases any connection it opened and is never
// nil.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	noop := func() {}
	switch cfg.Index.Source {
	case config.SourceFile:
		return apiindex.FileSource{Path: cfg.Index.DocsPath}, noop, nil
	case config.SourceObject:
		src, err := apiindex.NewObjectSource(cfg.ObjectStore)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		return apiindex.NewPostgresSource(client), func() { client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown index source %q", cfg.Index.Source)
	}
}

// LoadValidator loads the index from the configured source and builds a
// validator over it. An unreachable source degrades to an empty index.
func LoadValidator(ctx context.Context, cfg *config.Config) *validation.CodeValidator {
	store, closeStore, err := OpenStore(ctx, cfg)
	defer closeStore()
	if err != nil {
		slog.Error("index source unavailable, continuing with an empty index",
			"source", cfg.Index.Source,
			"error", err,
		)
		return validation.New(apiindex.Empty(), cfg.Index.BackendModules)
	}
	return validation.LoadValidator(ctx, store, cfg.Index.BackendModules)
}
