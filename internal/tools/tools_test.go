package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/patrickoleary/vtkapi-mcp/internal/analytics"
	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation/cache"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
	"github.com/patrickoleary/vtkapi-mcp/pkg/health"
	"github.com/patrickoleary/vtkapi-mcp/pkg/metrics"
)

const fixtureJSONL = `{"class_name": "vtkPolyDataMapper", "module_name": "vtkmodules.vtkRenderingCore", "content": "vtkPolyDataMapper maps polygonal data to graphics primitives.", "structured_docs": {"sections": {"Methods defined here": {"methods": {"SetInputData": "SetInputData(self, input) -> None", "SetInputConnection": "SetInputConnection(self, port) -> None", "Update": "Update(self) -> None"}}}}}
{"class_name": "vtkActor", "module_name": "vtkmodules.vtkRenderingCore", "content": "vtkActor represents an entity in a rendering scene.", "structured_docs": {"sections": {"Methods defined here": {"methods": {"SetMapper": "SetMapper(self, mapper) -> None", "GetMapper": "GetMapper(self) -> vtkMapper"}}}}}
{"class_name": "vtkSTLReader", "module_name": "vtkmodules.vtkIOGeometry", "content": "vtkSTLReader reads STL files.", "structured_docs": {"sections": {"Methods defined here": {"methods": {"SetFileName": "SetFileName(self, filename) -> None", "Update": "Update(self) -> None", "GetOutputPort": "GetOutputPort(self) -> vtkAlgorithmOutput"}}}}}
`

type fixture struct {
	registry   *Registry
	metrics    *metrics.Metrics
	aggregator *analytics.Aggregator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	docs, _, err := apiindex.ReadDocuments(strings.NewReader(fixtureJSONL))
	if err != nil {
		t.Fatalf("ReadDocuments: %v", err)
	}
	c, err := cache.NewMemory(16, 0)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	m := metrics.New(prometheus.NewRegistry())
	agg := analytics.NewAggregator()
	svc := NewService(
		validation.New(apiindex.New(docs), config.DefaultBackendModules),
		Options{Cache: c, Recorder: agg, Metrics: m, MaxResults: 2},
	)
	return fixture{registry: NewVTKRegistry(svc), metrics: m, aggregator: agg}
}

func call(t *testing.T, r *Registry, name string, args any, out any) {
	t.Helper()
	input, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	raw, err := r.Call(context.Background(), name, input)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("%s: decoding output %s: %v", name, raw, err)
	}
}

func TestSpecs(t *testing.T) {
	f := newFixture(t)
	specs := f.registry.Specs()
	want := []string{
		ToolGetClassInfo, ToolGetMethodInfo, ToolGetModuleClasses,
		ToolSearchClasses, ToolValidateCode, ToolValidateImport,
	}
	if len(specs) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(specs))
	}
	for i, s := range specs {
		if s.Name != want[i] {
			t.Errorf("spec %d = %q, want %q", i, s.Name, want[i])
		}
		var schema map[string]any
		if err := json.Unmarshal(s.InputSchema, &schema); err != nil {
			t.Errorf("%s: input schema is not JSON: %v", s.Name, err)
		}
		if schema["type"] != "object" {
			t.Errorf("%s: schema type = %v", s.Name, schema["type"])
		}
	}
}

func TestGetClassInfo(t *testing.T) {
	f := newFixture(t)

	var info ClassInfo
	call(t, f.registry, ToolGetClassInfo, map[string]string{"class_name": "vtkActor"}, &info)
	if info.Module != "vtkmodules.vtkRenderingCore" {
		t.Errorf("module = %q", info.Module)
	}
	if info.ContentPreview != "vtkActor represents an entity in a rendering scene...." {
		t.Errorf("preview = %q", info.ContentPreview)
	}
	if len(info.Methods) != 2 || info.Methods[0] != "GetMapper" {
		t.Errorf("methods = %v", info.Methods)
	}

	var missing notFound
	call(t, f.registry, ToolGetClassInfo, map[string]string{"class_name": "vtkFake"}, &missing)
	if missing.Found || missing.ClassName != "vtkFake" || !strings.Contains(missing.Error, "vtkFake") {
		t.Errorf("unexpected not-found payload %+v", missing)
	}
}

func TestSearchClassesClampsLimit(t *testing.T) {
	f := newFixture(t)
	var results []apiindex.SearchResult
	call(t, f.registry, ToolSearchClasses, map[string]any{"query": "vtk", "limit": 50}, &results)
	if len(results) != 2 {
		t.Fatalf("expected results clamped to 2, got %d", len(results))
	}
	if results[0].ClassName != "vtkPolyDataMapper" || results[0].Description == "" {
		t.Errorf("unexpected first result %+v", results[0])
	}
}

func TestGetModuleClasses(t *testing.T) {
	f := newFixture(t)
	var out ModuleClasses
	call(t, f.registry, ToolGetModuleClasses, map[string]string{"module": "vtkmodules.vtkRenderingCore"}, &out)
	if out.Count != 2 || out.Classes[0] != "vtkPolyDataMapper" {
		t.Errorf("unexpected module classes %+v", out)
	}

	call(t, f.registry, ToolGetModuleClasses, map[string]string{"module": "vtkmodules.vtkNothing"}, &out)
	if out.Count != 0 || out.Classes == nil {
		t.Errorf("expected empty, non-null classes for unknown module: %+v", out)
	}
}

func TestValidateImportTool(t *testing.T) {
	f := newFixture(t)
	var res validation.ImportResult
	call(t, f.registry, ToolValidateImport,
		map[string]string{"import_statement": "from vtkmodules.vtkIOGeometry import vtkActor"}, &res)
	if res.Valid || res.Suggested != "vtkmodules.vtkRenderingCore" {
		t.Errorf("unexpected import result %+v", res)
	}
	if f.aggregator.Stats().ImportValidations != 1 {
		t.Error("expected the import validation to be recorded")
	}
}

func TestGetMethodInfo(t *testing.T) {
	f := newFixture(t)
	var info apiindex.MethodInfo
	call(t, f.registry, ToolGetMethodInfo, map[string]string{"class_name": "vtkSTLReader", "method_name": "SetFileName"}, &info)
	if !strings.HasPrefix(info.Content, "SetFileName(self, filename)") || info.Section != "Methods defined here" {
		t.Errorf("unexpected method info %+v", info)
	}

	var missing notFound
	call(t, f.registry, ToolGetMethodInfo, map[string]string{"class_name": "vtkSTLReader", "method_name": "Nope"}, &missing)
	if missing.Found || missing.MethodName != "Nope" {
		t.Errorf("unexpected not-found payload %+v", missing)
	}
}

func TestValidateCodeTool(t *testing.T) {
	f := newFixture(t)
	code := "actor = vtkActor()\nactor.FakeMethod()\n"

	var first, second CodeReport
	call(t, f.registry, ToolValidateCode, map[string]string{"code": code}, &first)
	call(t, f.registry, ToolValidateCode, map[string]string{"code": code}, &second)

	if first.IsValid || len(first.Errors) != 1 || first.Errors[0].Type != validation.ErrorMethod {
		t.Fatalf("unexpected report %+v", first)
	}
	if !strings.Contains(first.Report, "METHOD ERRORS:") {
		t.Errorf("report = %q", first.Report)
	}
	if first.CacheHit || !second.CacheHit {
		t.Errorf("cache hits = %v, %v; want false, true", first.CacheHit, second.CacheHit)
	}

	if got := testutil.ToFloat64(f.metrics.ValidationsTotal.WithLabelValues("invalid")); got != 2 {
		t.Errorf("validations_total{invalid} = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.CacheHitsTotal); got != 1 {
		t.Errorf("cache_hits_total = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.ToolCallsTotal.WithLabelValues(ToolValidateCode, "ok")); got != 2 {
		t.Errorf("tool_calls_total = %v", got)
	}
	st := f.aggregator.Stats()
	if st.CodeValidations != 2 || len(st.TopMissingMethods) != 1 || st.TopMissingMethods[0].Name != "vtkActor.FakeMethod" {
		t.Errorf("unexpected analytics %+v", st)
	}
}

func TestCallErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.registry.Call(ctx, "vtk_nope", nil); !errors.Is(err, apperrors.ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
	if _, err := f.registry.Call(ctx, ToolGetClassInfo, json.RawMessage(`{}`)); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing class_name, got %v", err)
	}
	if _, err := f.registry.Call(ctx, ToolValidateCode, json.RawMessage(`[1,2]`)); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for malformed input, got %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.ToolCallsTotal.WithLabelValues(ToolGetClassInfo, "error")); got != 1 {
		t.Errorf("tool_calls_total{error} = %v", got)
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", 600)
	if got := preview(long); len([]rune(got)) != previewLen+3 {
		t.Errorf("preview length = %d runes", len([]rune(got)))
	}
}

func TestIndexCheck(t *testing.T) {
	svc := NewService(validation.New(apiindex.Empty(), nil), Options{})
	if st := svc.IndexCheck()(context.Background()).Status; st != health.StatusDegraded {
		t.Errorf("empty index status = %q, want degraded", st)
	}
}
