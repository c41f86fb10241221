package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
)

const fixtureJSONL = `{"class_name": "vtkActor", "module_name": "vtkmodules.vtkRenderingCore", "content": "vtkActor", "structured_docs": {"sections": {"Methods defined here": {"methods": {"SetMapper": "SetMapper(self, mapper) -> None"}}}}}
`

var sources = map[string]string{
	"good.py": "from vtkmodules.vtkRenderingCore import vtkActor\nactor = vtkActor()\nactor.SetMapper(None)\n",
	"bad.py":  "from vtkmodules.vtkRenderingCore import vtkActor\nactor = vtkActor()\nactor.SetMapperz(None)\n",
}

func readFixture(path string) ([]byte, error) {
	src, ok := sources[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(src), nil
}

func newValidator(t *testing.T) *validation.CodeValidator {
	t.Helper()
	docs, _, err := apiindex.ReadDocuments(strings.NewReader(fixtureJSONL))
	if err != nil {
		t.Fatalf("ReadDocuments: %v", err)
	}
	return validation.New(apiindex.New(docs), config.DefaultBackendModules)
}

func TestCheckFilesKeepsOrder(t *testing.T) {
	results, err := checkFiles(context.Background(), newValidator(t), []string{"bad.py", "good.py"}, 2, readFixture)
	if err != nil {
		t.Fatalf("checkFiles: %v", err)
	}
	if len(results) != 2 || results[0].Path != "bad.py" || results[1].Path != "good.py" {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Result.IsValid || !results[1].Result.IsValid {
		t.Errorf("expected bad.py invalid and good.py valid")
	}
	if code := exitCode(results); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if code := exitCode(results[1:]); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestCheckFilesReadError(t *testing.T) {
	_, err := checkFiles(context.Background(), newValidator(t), []string{"good.py", "missing.py"}, 0, readFixture)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.py") {
		t.Errorf("error %q should name the file", err)
	}
}

func TestWriteReport(t *testing.T) {
	results, err := checkFiles(context.Background(), newValidator(t), []string{"good.py", "bad.py"}, 1, readFixture)
	if err != nil {
		t.Fatalf("checkFiles: %v", err)
	}
	var buf bytes.Buffer
	if err := writeReport(&buf, results); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"good.py", "bad.py", "SetMapperz", "2 file(s) checked, 1 with errors"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	results, err := checkFiles(context.Background(), newValidator(t), []string{"bad.py"}, 1, readFixture)
	if err != nil {
		t.Fatalf("checkFiles: %v", err)
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, results); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	var decoded []struct {
		Path   string `json:"path"`
		Result struct {
			IsValid bool `json:"is_valid"`
			Errors  []struct {
				Type string `json:"error_type"`
			} `json:"errors"`
		} `json:"result"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding %s: %v", buf.String(), err)
	}
	if len(decoded) != 1 || decoded[0].Result.IsValid || len(decoded[0].Result.Errors) != 1 {
		t.Fatalf("unexpected output %s", buf.String())
	}
	if decoded[0].Result.Errors[0].Type != string(validation.ErrorMethod) {
		t.Errorf("unexpected error type %q", decoded[0].Result.Errors[0].Type)
	}
}
