// Command vtkcheck validates VTK Python scripts against the API index and
// prints a report per file. It exits with status 1 when any file has errors
// and 2 when a file cannot be read.
//
// Usage:
//
//	vtkcheck -api-docs data/vtk-python-docs.jsonl pipeline.py other.py
//	cat pipeline.py | vtkcheck -json -
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/patrickoleary/vtkapi-mcp/internal/app"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	apiDocs := flag.String("api-docs", "", "path to the API docs JSONL file (overrides index.source)")
	asJSON := flag.Bool("json", false, "print results as JSON")
	concurrency := flag.Int("concurrency", 4, "files validated in parallel")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: vtkcheck [flags] file.py... (use - for stdin)\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}
	if *apiDocs != "" {
		cfg.Index.Source = config.SourceFile
		cfg.Index.DocsPath = *apiDocs
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator := app.LoadValidator(ctx, cfg)
	if validator.Index().Len() == 0 {
		slog.Warn("API index is empty; every toolkit class will be reported")
	}

	results, err := checkFiles(ctx, validator, paths, *concurrency, readInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vtkcheck: %v\n", err)
		os.Exit(2)
	}

	if *asJSON {
		err = writeJSON(os.Stdout, results)
	} else {
		err = writeReport(os.Stdout, results)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "vtkcheck: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode(results))
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
