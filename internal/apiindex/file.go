package apiindex

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
	"github.com/patrickoleary/vtkapi-mcp/pkg/resilience"
)

// FileSource reads a JSONL index document from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) String() string { return "file://" + s.Path }

// Fetch reads and decodes the file. Filesystem errors are not retried.
func (s FileSource) Fetch(ctx context.Context) ([]Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resilience.Permanent(fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, s.Path))
		}
		return nil, resilience.Permanent(fmt.Errorf("opening %s: %w", s.Path, err))
	}
	defer f.Close()

	docs, skipped, err := ReadDocuments(f)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	if skipped > 0 {
		slog.Warn("skipped index lines", "source", s.String(), "skipped", skipped)
	}
	return docs, nil
}

// Store writes docs atomically: a temporary file next to Path is renamed
// over it once fully written.
func (s FileSource) Store(ctx context.Context, docs []Document) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".vtkapi-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := WriteDocuments(w, docs); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.Path, err)
	}
	return nil
}
