// Command vtkapi-mcp serves the VTK API tools to assistant clients over the
// newline-delimited JSON RPC transport.
//
// By default it speaks on stdin/stdout and logs to stderr; with -listen (or
// rpc.listen in the config file) it accepts TCP connections instead.
//
// Usage:
//
//	vtkapi-mcp -api-docs data/vtk-python-docs.jsonl
//	vtkapi-mcp -config configs/development.yaml -listen :7070
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/patrickoleary/vtkapi-mcp/internal/app"
	"github.com/patrickoleary/vtkapi-mcp/internal/tools"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation/cache"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
	"github.com/patrickoleary/vtkapi-mcp/pkg/rpc"
)

const (
	serverName    = "vtkapi-mcp"
	serverVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	apiDocs := flag.String("api-docs", "", "path to the API docs JSONL file (overrides index.source)")
	listen := flag.String("listen", "", "TCP address to serve on instead of stdio")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *apiDocs != "" {
		cfg.Index.Source = config.SourceFile
		cfg.Index.DocsPath = *apiDocs
	}
	if *listen != "" {
		cfg.RPC.Listen = *listen
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator := app.LoadValidator(ctx, cfg)
	resultCache, err := cache.New(cfg.Cache, nil)
	if err != nil {
		slog.Warn("result cache disabled", "error", err)
		resultCache = cache.Nop{}
	}
	svc := tools.NewService(validator, tools.Options{
		Cache:      resultCache,
		MaxResults: cfg.Index.MaxResults,
	})

	server := rpc.NewServer()
	tools.Bind(server, tools.NewVTKRegistry(svc), serverName, serverVersion)
	slog.Info("tool server ready",
		"classes", svc.Index().Len(),
		"methods", server.MethodCount(),
		"transport", transport(cfg.RPC.Listen),
	)

	if cfg.RPC.Listen != "" {
		err = server.Serve(ctx, cfg.RPC.Listen)
	} else {
		err = server.ServeConn(ctx, rpc.Stdio())
	}
	if err != nil {
		slog.Error("tool server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("tool server stopped")
}

func transport(listen string) string {
	if listen == "" {
		return "stdio"
	}
	return "tcp " + listen
}
