// Command vtkapi serves the VTK API lookup and validation service over HTTP.
//
// It loads the API index from the configured source (JSONL file, S3/MinIO
// object or PostgreSQL table), caches validation results in memory or Redis,
// publishes validation events to Kafka when enabled and aggregates them for
// GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/vtkapi [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/patrickoleary/vtkapi-mcp/internal/analytics"
	"github.com/patrickoleary/vtkapi-mcp/internal/app"
	"github.com/patrickoleary/vtkapi-mcp/internal/server/handler"
	"github.com/patrickoleary/vtkapi-mcp/internal/server/router"
	"github.com/patrickoleary/vtkapi-mcp/internal/tools"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation/cache"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/patrickoleary/vtkapi-mcp/pkg/health"
	"github.com/patrickoleary/vtkapi-mcp/pkg/kafka"
	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
	"github.com/patrickoleary/vtkapi-mcp/pkg/metrics"
	"github.com/patrickoleary/vtkapi-mcp/pkg/postgres"
	pkgredis "github.com/patrickoleary/vtkapi-mcp/pkg/redis"
	"github.com/patrickoleary/vtkapi-mcp/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting vtkapi service", "port", cfg.Server.Port, "index_source", cfg.Index.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("vtkapi service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("vtkapi service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(nil)
	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		g.Go(func() error { return metrics.Serve(ctx, cfg.Metrics.Port, nil) })
	}

	validator := app.LoadValidator(ctx, cfg)
	checker := health.NewChecker()

	resultCache, closeCache := openCache(ctx, cfg, checker, m)
	defer closeCache()

	aggregator := analytics.NewAggregator()
	var recorder analytics.Recorder = aggregator
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.ValidationEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		recorder = collector

		consumer := kafka.NewConsumer(cfg.Kafka, topic, aggregator.Handler())
		g.Go(func() error { return aggregator.Start(ctx, consumer) })
		checker.RegisterOptional("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}))
		slog.Info("analytics via kafka", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}
	if cfg.Analytics.Persist {
		closeStore := startSnapshots(ctx, cfg, aggregator, checker)
		defer closeStore()
	}

	svc := tools.NewService(validator, tools.Options{
		Cache:      resultCache,
		Recorder:   recorder,
		Metrics:    m,
		MaxResults: cfg.Index.MaxResults,
	})
	checker.Register("api_index", svc.IndexCheck())

	h := handler.New(svc, tools.NewVTKRegistry(svc), cfg.Index.DefaultLimit, cfg.Index.MaxResults)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(h, router.Config{
			Analytics:   analytics.NewHandler(aggregator),
			Checker:     checker,
			Metrics:     m,
			Timeout:     cfg.Server.WriteTimeout,
			RateLimit:   cfg.Server.RateLimit,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("vtkapi service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openCache builds the configured result cache. An unreachable Redis falls
// back to the in-memory cache.
func openCache(ctx context.Context, cfg *config.Config, checker *health.Checker, m *metrics.Metrics) (cache.Cache, func()) {
	noop := func() {}
	if cfg.Cache.Type != config.CacheRedis {
		c, err := cache.New(cfg.Cache, nil)
		if err != nil {
			slog.Warn("result cache disabled", "error", err)
			return cache.Nop{}, noop
		}
		checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: cfg.Cache.Type}
		})
		return c, noop
	}

	client, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory result cache", "error", err)
		memCfg := cfg.Cache
		memCfg.Type = config.CacheMemory
		c, _ := cache.New(memCfg, nil)
		checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "redis unavailable, using memory"}
		})
		return c, noop
	}

	breaker := cache.DefaultBreaker
	breaker.OnStateChange = func(name string, _, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
	rc := cache.NewRedisWithBreaker(client, cfg.Cache.TTL, breaker)
	checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
		state := rc.Breaker().GetState()
		if err := client.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: "circuit " + state.String()}
	})
	slog.Info("redis result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Cache.TTL)
	return rc, func() { client.Close() }
}

// startSnapshots persists aggregated statistics to PostgreSQL. Failing to
// reach the database disables persistence without stopping the service.
func startSnapshots(ctx context.Context, cfg *config.Config, agg *analytics.Aggregator, checker *health.Checker) func() {
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("analytics persistence disabled", "error", err)
		return func() {}
	}
	store := analytics.NewStore(client, cfg.Analytics.SnapshotTable)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("analytics persistence disabled", "error", err)
		client.Close()
		return func() {}
	}
	if last, err := store.LatestSnapshot(ctx); err == nil && last != nil {
		slog.Info("previous analytics snapshot", "total_validations", last.TotalValidations)
	}
	checker.RegisterOptional("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := client.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: client.PoolSummary()}
	})
	store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
	return func() { client.Close() }
}
