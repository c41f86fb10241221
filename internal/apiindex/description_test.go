package apiindex

import (
	"strings"
	"testing"
)

func TestExtractDescription(t *testing.T) {
	content := "# vtkPolyDataMapper\n\n**Module:** `vtkmodules.vtkRenderingCore`\n\nvtkPolyDataMapper maps polygonal data to graphics primitives. This is a long description."
	desc := ExtractDescription(content)
	if !strings.Contains(desc, "vtkPolyDataMapper maps polygonal data to graphics primitives") {
		t.Errorf("description = %q", desc)
	}

	long := strings.Repeat("x", 300)
	if got := ExtractDescription(long); len([]rune(got)) != maxDescriptionRunes+3 {
		t.Errorf("expected truncation to %d runes plus ellipsis, got %d", maxDescriptionRunes, len([]rune(got)))
	}
	if got := ExtractDescription("# Only a heading"); got != "" {
		t.Errorf("expected empty description, got %q", got)
	}
}

func TestExtractModule(t *testing.T) {
	content := "# vtkPolyDataMapper\n\n**Module:** `vtkmodules.vtkRenderingCore`\n\nDescription here."
	if got := ExtractModule(content); got != "vtkmodules.vtkRenderingCore" {
		t.Errorf("ExtractModule = %q", got)
	}
	if got := ExtractModule("Some content without module info"); got != "" {
		t.Errorf("expected no module, got %q", got)
	}
}
