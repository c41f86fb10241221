package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
)

// Tool names.
const (
	ToolGetClassInfo     = "vtk_get_class_info"
	ToolSearchClasses    = "vtk_search_classes"
	ToolGetModuleClasses = "vtk_get_module_classes"
	ToolValidateImport   = "vtk_validate_import"
	ToolGetMethodInfo    = "vtk_get_method_info"
	ToolValidateCode     = "vtk_validate_code"
)

// NewVTKTools returns the lookup and validation tools backed by svc.
func NewVTKTools(svc *Service) []Tool {
	return []Tool{
		&classInfoTool{svc},
		&searchTool{svc},
		&moduleClassesTool{svc},
		&validateImportTool{svc},
		&methodInfoTool{svc},
		&validateCodeTool{svc},
	}
}

// NewVTKRegistry is NewRegistry over NewVTKTools.
func NewVTKRegistry(svc *Service) *Registry {
	return NewRegistry(svc.metrics, NewVTKTools(svc)...)
}

type notFound struct {
	Error      string `json:"error"`
	ClassName  string `json:"class_name"`
	MethodName string `json:"method_name,omitempty"`
	Found      bool   `json:"found"`
}

func required(tool, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.InvalidInputf("%s: %s is required", tool, field)
	}
	return nil
}

// --------------------- vtk_get_class_info ---------------------

type classInfoTool struct{ svc *Service }

func (t *classInfoTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolGetClassInfo,
		Description: "Get complete information about a VTK class including module path, description, and methods",
		InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "class_name": {"type": "string", "description": "VTK class name (e.g., 'vtkPolyDataMapper')"}
  },
  "required": ["class_name"]
}`),
	}
}

func (t *classInfoTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		ClassName string `json:"class_name"`
	}
	if err := decode(ToolGetClassInfo, input, &in); err != nil {
		return nil, err
	}
	if err := required(ToolGetClassInfo, "class_name", in.ClassName); err != nil {
		return nil, err
	}
	info, ok := t.svc.ClassInfo(in.ClassName)
	if !ok {
		return json.Marshal(notFound{
			Error:     fmt.Sprintf("Class '%s' not found in VTK API", in.ClassName),
			ClassName: in.ClassName,
		})
	}
	return json.Marshal(info)
}

// --------------------- vtk_search_classes ---------------------

type searchTool struct{ svc *Service }

func (t *searchTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolSearchClasses,
		Description: "Search for VTK classes by name or keyword",
		InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Search term (e.g., 'reader', 'mapper', 'actor')"},
    "limit": {"type": "integer", "description": "Maximum number of results (default: 10)", "default": 10}
  },
  "required": ["query"]
}`),
	}
}

func (t *searchTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decode(ToolSearchClasses, input, &in); err != nil {
		return nil, err
	}
	return json.Marshal(t.svc.Search(in.Query, in.Limit))
}

// --------------------- vtk_get_module_classes ---------------------

type moduleClassesTool struct{ svc *Service }

func (t *moduleClassesTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolGetModuleClasses,
		Description: "List all VTK classes in a specific module",
		InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "module": {"type": "string", "description": "Module name (e.g., 'vtkmodules.vtkRenderingCore')"}
  },
  "required": ["module"]
}`),
	}
}

func (t *moduleClassesTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Module string `json:"module"`
	}
	if err := decode(ToolGetModuleClasses, input, &in); err != nil {
		return nil, err
	}
	return json.Marshal(t.svc.ModuleClasses(in.Module))
}

// --------------------- vtk_validate_import ---------------------

type validateImportTool struct{ svc *Service }

func (t *validateImportTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolValidateImport,
		Description: "Validate if a VTK import statement is correct and suggest corrections",
		InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "import_statement": {"type": "string", "description": "Python import statement to validate"}
  },
  "required": ["import_statement"]
}`),
	}
}

func (t *validateImportTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		ImportStatement string `json:"import_statement"`
	}
	if err := decode(ToolValidateImport, input, &in); err != nil {
		return nil, err
	}
	return json.Marshal(t.svc.ValidateImport(ctx, in.ImportStatement))
}

// --------------------- vtk_get_method_info ---------------------

type methodInfoTool struct{ svc *Service }

func (t *methodInfoTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolGetMethodInfo,
		Description: "Get documentation for a specific method of a VTK class",
		InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "class_name": {"type": "string", "description": "VTK class name"},
    "method_name": {"type": "string", "description": "Method name"}
  },
  "required": ["class_name", "method_name"]
}`),
	}
}

func (t *methodInfoTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		ClassName  string `json:"class_name"`
		MethodName string `json:"method_name"`
	}
	if err := decode(ToolGetMethodInfo, input, &in); err != nil {
		return nil, err
	}
	if err := required(ToolGetMethodInfo, "class_name", in.ClassName); err != nil {
		return nil, err
	}
	if err := required(ToolGetMethodInfo, "method_name", in.MethodName); err != nil {
		return nil, err
	}
	info, ok := t.svc.MethodInfo(in.ClassName, in.MethodName)
	if !ok {
		return json.Marshal(notFound{
			Error:      fmt.Sprintf("Method '%s' not found in class '%s'", in.MethodName, in.ClassName),
			ClassName:  in.ClassName,
			MethodName: in.MethodName,
		})
	}
	return json.Marshal(info)
}

// --------------------- vtk_validate_code ---------------------

type validateCodeTool struct{ svc *Service }

func (t *validateCodeTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolValidateCode,
		Description: "Validate Python code against the VTK API: imports, class names and method calls, with suggested fixes",
		InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "code": {"type": "string", "description": "Python source code using VTK"}
  },
  "required": ["code"]
}`),
	}
}

func (t *validateCodeTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Code string `json:"code"`
	}
	if err := decode(ToolValidateCode, input, &in); err != nil {
		return nil, err
	}
	report, err := t.svc.ValidateCode(ctx, in.Code)
	if err != nil {
		return nil, err
	}
	return json.Marshal(report)
}
