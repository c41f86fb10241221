package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
)

// fileResult is the outcome for one input path.
type fileResult struct {
	Path   string             `json:"path"`
	Result *validation.Result `json:"result"`
}

type readFunc func(path string) ([]byte, error)

// checkFiles validates paths with at most concurrency files in flight.
// Results keep the order of paths. A read failure aborts the run.
func checkFiles(ctx context.Context, v *validation.CodeValidator, paths []string, concurrency int, read readFunc) ([]fileResult, error) {
	results := make([]fileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := read(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			res := v.ValidateCode(string(data))
			res.Code = ""
			results[i] = fileResult{Path: path, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func exitCode(results []fileResult) int {
	for _, r := range results {
		if !r.Result.IsValid {
			return 1
		}
	}
	return 0
}

func writeJSON(w io.Writer, results []fileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

var (
	pathStyle  = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	detailBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func writeReport(w io.Writer, results []fileResult) error {
	var b strings.Builder
	invalid := 0
	for _, r := range results {
		if r.Result.IsValid {
			fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK  "), pathStyle.Render(r.Path))
			continue
		}
		invalid++
		fmt.Fprintf(&b, "%s %s\n", failStyle.Render("FAIL"), pathStyle.Render(r.Path))
		b.WriteString(detailBox.Render(r.Result.FormatErrors()))
		b.WriteString("\n")
	}
	summary := fmt.Sprintf("%d file(s) checked, %d with errors", len(results), invalid)
	b.WriteString(countStyle.Render(summary))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
