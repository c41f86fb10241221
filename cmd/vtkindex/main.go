// Command vtkindex loads an API docs JSONL file into the index store named by
// index.source (a file, an S3/MinIO object or a PostgreSQL table), and then
// drops cached validation results computed against the previous index.
//
// Usage:
//
//	vtkindex -config configs/development.yaml -from data/vtk-python-docs.jsonl
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/app"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation/cache"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
	pkgredis "github.com/patrickoleary/vtkapi-mcp/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	from := flag.String("from", "", "API docs JSONL file to load")
	invalidate := flag.Bool("invalidate-cache", true, "flush the redis result cache after loading")
	flag.Parse()

	if *from == "" {
		fmt.Fprintln(os.Stderr, "vtkindex: -from is required")
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *from, *invalidate); err != nil {
		slog.Error("index load failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, from string, invalidate bool) error {
	start := time.Now()
	src := apiindex.FileSource{Path: from}
	docs, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	x := apiindex.New(docs)
	slog.Info("api docs read", "source", src.String(), "classes", x.Len(), "modules", x.ModuleCount())

	dst, closeStore, err := app.OpenStore(ctx, cfg)
	defer closeStore()
	if err != nil {
		return err
	}
	if dst.String() == src.String() {
		slog.Info("destination is the source file, nothing to store")
	} else if err := dst.Store(ctx, x.Documents()); err != nil {
		return fmt.Errorf("storing index to %s: %w", dst, err)
	}
	slog.Info("api index stored",
		"destination", dst.String(),
		"classes", x.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if !invalidate || cfg.Cache.Type != config.CacheRedis {
		return nil
	}
	client, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, cached results not invalidated", "error", err)
		return nil
	}
	defer client.Close()
	if err := cache.NewRedis(client, cfg.Cache.TTL).Invalidate(ctx); err != nil {
		slog.Warn("cache invalidation failed", "error", err)
		return nil
	}
	slog.Info("validation result cache invalidated", "addr", cfg.Redis.Addr)
	return nil
}
