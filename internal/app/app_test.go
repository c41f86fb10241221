package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
)

const doc = `{"class_name": "vtkActor", "module_name": "vtkmodules.vtkRenderingCore", "content": "vtkActor represents an entity in a rendering scene."}` + "\n"

func TestLoadValidatorFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := config.Default()
	cfg.Index.Source = config.SourceFile
	cfg.Index.DocsPath = path

	v := LoadValidator(context.Background(), cfg)
	if v.Index().Len() != 1 {
		t.Fatalf("expected 1 class, got %d", v.Index().Len())
	}
	if res := v.ValidateCode("actor = vtkActor()\n"); !res.IsValid {
		t.Errorf("expected valid code, got %+v", res.Errors)
	}
}

func TestLoadValidatorDegrades(t *testing.T) {
	cfg := config.Default()
	cfg.Index.Source = "ftp"
	if v := LoadValidator(context.Background(), cfg); v.Index().Len() != 0 {
		t.Error("expected an empty index for an unknown source")
	}

	cfg.Index.Source = config.SourceFile
	cfg.Index.DocsPath = filepath.Join(t.TempDir(), "missing.jsonl")
	if v := LoadValidator(context.Background(), cfg); v.Index().Len() != 0 {
		t.Error("expected an empty index for a missing file")
	}
}

func TestOpenStoreFile(t *testing.T) {
	cfg := config.Default()
	cfg.Index.Source = config.SourceFile
	cfg.Index.DocsPath = filepath.Join(t.TempDir(), "out.jsonl")

	store, closeStore, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer closeStore()
	docs := []apiindex.Document{{ClassName: "vtkActor", ModuleName: "vtkmodules.vtkRenderingCore"}}
	if err := store.Store(context.Background(), docs); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := store.Fetch(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("Fetch = %v, %v", got, err)
	}
}

func TestLoadConfigWithoutDotenv(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := LoadConfig(""); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
}
