package validation

import (
	"fmt"
	"strings"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/extractor"
)

// ImportRule identifies which row of the import decision table produced an
// ImportResult. Every statement maps to exactly one rule.
type ImportRule string

const (
	RuleParseFailure ImportRule = "parse_failure"
	RuleMonolithic   ImportRule = "monolithic"
	RuleModular      ImportRule = "modular_all"
	RuleBackend      ImportRule = "backend"
	RuleDirectImport ImportRule = "direct_import"
	RuleFromAll      ImportRule = "from_all"
	RuleFromModule   ImportRule = "from_module"
	RuleNoNames      ImportRule = "no_names"
)

// ImportResult is the verdict on one import statement.
type ImportResult struct {
	Valid     bool       `json:"valid"`
	Message   string     `json:"message"`
	Suggested string     `json:"suggested,omitempty"`
	Rule      ImportRule `json:"rule"`
}

// ModuleUsage describes a submodule imported as an object whose classes the
// code reaches through it, as in "from vtkmodules import vtkRenderingCore"
// followed by vtkRenderingCore.vtkActor().
type ModuleUsage struct {
	Name       string   `json:"name"`
	ModulePath string   `json:"module_path"`
	Classes    []string `json:"classes"`
}

// ImportValidator checks import statements against the API index. The
// backend allow-list is fixed at construction.
type ImportValidator struct {
	index    *apiindex.Index
	backends map[string]bool
	classes  *ClassValidator
}

// NewImportValidator returns an ImportValidator over index. backends lists
// the modules that may be imported directly for their side effects.
func NewImportValidator(index *apiindex.Index, backends []string) *ImportValidator {
	set := make(map[string]bool, len(backends))
	for _, b := range backends {
		set[strings.TrimSpace(b)] = true
	}
	return &ImportValidator{index: index, backends: set, classes: NewClassValidator(index)}
}

// Kind classifies stmt, refining direct imports of allow-listed modules to
// backend-direct.
func (v *ImportValidator) Kind(stmt extractor.ImportStatement) extractor.ImportKind {
	if stmt.Kind == extractor.KindDirect && v.allBackends(stmt.Names) {
		return extractor.KindBackendDirect
	}
	return stmt.Kind
}

func (v *ImportValidator) allBackends(modules []string) bool {
	if len(modules) == 0 {
		return false
	}
	for _, m := range modules {
		if !v.backends[m] {
			return false
		}
	}
	return true
}

// Validate applies the import decision table to a single statement.
func (v *ImportValidator) Validate(statement string) ImportResult {
	stmt, ok := extractor.ParseImport(statement)
	if !ok {
		if stmt.Raw == "" {
			return ImportResult{Message: "Could not parse import statement: it is empty", Rule: RuleParseFailure}
		}
		return ImportResult{
			Message: fmt.Sprintf("Could not parse import statement %q", stmt.Raw),
			Rule:    RuleParseFailure,
		}
	}
	return v.validateStatement(stmt)
}

func (v *ImportValidator) validateStatement(stmt extractor.ImportStatement) ImportResult {
	switch v.Kind(stmt) {
	case extractor.KindMonolithic:
		return ImportResult{
			Valid:   true,
			Message: "Monolithic import: every class is reachable as vtk.<ClassName>",
			Rule:    RuleMonolithic,
		}
	case extractor.KindModularAll:
		return ImportResult{
			Valid:   true,
			Message: "Modular import of vtkmodules.all: every class is reachable through the alias",
			Rule:    RuleModular,
		}
	case extractor.KindBackendDirect:
		return ImportResult{
			Valid:   true,
			Message: fmt.Sprintf("Backend module import of %s: imported for its side effects", strings.Join(stmt.Names, ", ")),
			Rule:    RuleBackend,
		}
	case extractor.KindDirect:
		forms := make([]string, len(stmt.Names))
		for i, m := range stmt.Names {
			forms[i] = fmt.Sprintf("from %s import <ClassName>", m)
		}
		return ImportResult{
			Message: fmt.Sprintf("Direct module import %q is not allowed: import the classes you need with the from-import form, e.g. %s",
				stmt.Raw, strings.Join(forms, "; ")),
			Rule: RuleDirectImport,
		}
	}
	return v.validateFrom(stmt)
}

func (v *ImportValidator) validateFrom(stmt extractor.ImportStatement) ImportResult {
	if len(stmt.Names) == 0 {
		return ImportResult{
			Message: fmt.Sprintf("Could not parse the imported names of %q", stmt.Raw),
			Rule:    RuleNoNames,
		}
	}
	if stmt.Module == extractor.ModularAll {
		return ImportResult{Valid: true, Message: "Import from vtkmodules.all: any class name is accepted", Rule: RuleFromAll}
	}
	if stmt.Module == extractor.ModularRoot && len(stmt.Names) == 1 && stmt.Names[0] == "all" {
		return ImportResult{Valid: true, Message: "Modular import of vtkmodules.all: every class is reachable through the alias", Rule: RuleModular}
	}

	var (
		problems   []string
		suggested  string
		submodules []ModuleUsage
	)
	for _, name := range stmt.Names {
		if stmt.Module == extractor.ModularRoot && v.IsSubmodule(name) {
			submodules = append(submodules, ModuleUsage{Name: name, ModulePath: extractor.ModularRoot + "." + name})
			continue
		}
		if name == "*" {
			if !v.index.HasModule(stmt.Module) {
				problems = append(problems, fmt.Sprintf("module '%s' not found in the VTK API index", stmt.Module))
			}
			continue
		}
		rec, ok := v.index.Get(name)
		if !ok {
			msg := fmt.Sprintf("'%s' not found in the VTK API index", name)
			if alt, ok := v.classes.Suggest(name); ok {
				msg += fmt.Sprintf(" (did you mean '%s'?)", alt)
			}
			problems = append(problems, msg)
			continue
		}
		if rec.Module != "" && rec.Module != stmt.Module {
			problems = append(problems, fmt.Sprintf("Incorrect module for '%s': it is defined in '%s', not '%s'", name, rec.Module, stmt.Module))
			if suggested == "" {
				suggested = rec.Module
			}
		}
	}
	if len(submodules) > 0 {
		res := v.FormatModuleImportError(stmt.Raw, nil, submodules)
		problems = append([]string{res.Message}, problems...)
	}
	if len(problems) > 0 {
		return ImportResult{Message: strings.Join(problems, "; "), Suggested: suggested, Rule: RuleFromModule}
	}
	return ImportResult{
		Valid:   true,
		Message: fmt.Sprintf("Correct import from %s", stmt.Module),
		Rule:    RuleFromModule,
	}
}

// IsSubmodule reports whether name, imported from the modular root as in
// "from vtkmodules import <name>", is a submodule rather than a class: it is
// not an indexed class, and it is either not class-like or a known module.
func (v *ImportValidator) IsSubmodule(name string) bool {
	if name == "*" || name == "all" {
		return false
	}
	if _, ok := v.index.Get(name); ok {
		return false
	}
	return !extractor.IsClassLike(name) || v.index.HasModule(extractor.ModularRoot+"."+name)
}

// CorrectedImport rewrites a from-import so that every name comes from its
// indexed module. Unknown names are replaced by their closest match or
// dropped. The result holds one statement per module, in first-use order.
func (v *ImportValidator) CorrectedImport(stmt extractor.ImportStatement) string {
	if stmt.Kind != extractor.KindFromImport {
		return ""
	}
	var modules []string
	byModule := make(map[string][]string)
	add := func(module, name string) {
		if _, ok := byModule[module]; !ok {
			modules = append(modules, module)
		}
		for _, n := range byModule[module] {
			if n == name {
				return
			}
		}
		byModule[module] = append(byModule[module], name)
	}
	for _, name := range stmt.Names {
		if name == "*" {
			continue
		}
		if rec, ok := v.index.Get(name); ok {
			module := rec.Module
			if module == "" {
				module = stmt.Module
			}
			add(module, name)
			continue
		}
		if alt, ok := v.classes.Suggest(name); ok {
			if rec, ok := v.index.Get(alt); ok && rec.Module != "" {
				add(rec.Module, alt)
			}
		}
	}
	lines := make([]string, 0, len(modules))
	for _, m := range modules {
		lines = append(lines, fmt.Sprintf("from %s import %s", m, strings.Join(byModule[m], ", ")))
	}
	return strings.Join(lines, "\n")
}

// FormatModuleImportError builds the single diagnostic for a statement that
// imports submodules as objects. Unused submodules are to be deleted; used
// ones are to be replaced by a proper import of the classes reached through
// them. Both lists may be given at once. A usage with no classes, as when
// the statement is checked without its code, gets a placeholder import.
func (v *ImportValidator) FormatModuleImportError(statement string, toDelete []string, withUsage []ModuleUsage) ImportResult {
	if len(toDelete) == 0 && len(withUsage) == 0 {
		return ImportResult{Valid: true, Message: "No module imports to consolidate", Rule: RuleFromModule}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Module import %q imports submodules instead of classes.", strings.TrimSpace(statement))
	if len(toDelete) > 0 && len(withUsage) > 0 {
		used := make([]string, len(withUsage))
		for i, u := range withUsage {
			used[i] = u.Name
		}
		fmt.Fprintf(&b, "\nMIXED: %s NOT USED, %s USED; handle them separately.",
			strings.Join(toDelete, ", "), strings.Join(used, ", "))
	}
	if len(toDelete) > 0 {
		fmt.Fprintf(&b, "\nDELETE (NOT USED): %s", strings.Join(toDelete, ", "))
	}

	var replacements []string
	for _, u := range withUsage {
		if len(u.Classes) == 0 {
			fmt.Fprintf(&b, "\nREPLACE %s with a proper import of the classes you use: from %s import <ClassName>", u.Name, u.ModulePath)
			continue
		}
		for _, line := range v.properImports(u) {
			replacements = append(replacements, line)
			fmt.Fprintf(&b, "\nREPLACE %s with a proper import: %s", u.Name, line)
		}
	}
	return ImportResult{
		Message:   b.String(),
		Suggested: strings.Join(replacements, "\n"),
		Rule:      RuleFromModule,
	}
}

// properImports lists the from-imports that replace a submodule import: one
// per module the used classes live in, falling back to the submodule's own
// path for classes the index does not know.
func (v *ImportValidator) properImports(u ModuleUsage) []string {
	var modules []string
	byModule := make(map[string][]string)
	for _, class := range u.Classes {
		module := u.ModulePath
		if rec, ok := v.index.Get(class); ok && rec.Module != "" {
			module = rec.Module
		}
		if _, ok := byModule[module]; !ok {
			modules = append(modules, module)
		}
		byModule[module] = append(byModule[module], class)
	}
	lines := make([]string, 0, len(modules))
	for _, m := range modules {
		lines = append(lines, fmt.Sprintf("from %s import %s", m, strings.Join(byModule[m], ", ")))
	}
	return lines
}
