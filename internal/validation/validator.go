// Package validation cross-checks Python code written against the VTK API
// with the API index: import statements, instantiated classes and method
// calls. Validation is synchronous and has no side effects; a CodeValidator
// is safe for concurrent use because the index it reads is immutable.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/extractor"
)

// CodeValidator runs the import, class and method validators over a code
// sample and aggregates their findings.
type CodeValidator struct {
	index   *apiindex.Index
	imports *ImportValidator
	classes *ClassValidator
	methods *MethodValidator
}

// New creates a CodeValidator over index. backends is the allow-list of
// modules that may be imported directly for their side effects.
func New(index *apiindex.Index, backends []string) *CodeValidator {
	imports := NewImportValidator(index, backends)
	return &CodeValidator{
		index:   index,
		imports: imports,
		classes: imports.classes,
		methods: NewMethodValidator(index),
	}
}

// LoadValidator loads the index from src and wraps it in a CodeValidator.
// It always returns a validator: an unreadable source yields an empty index.
func LoadValidator(ctx context.Context, src apiindex.Source, backends []string) *CodeValidator {
	return New(apiindex.Load(ctx, src), backends)
}

func (v *CodeValidator) Index() *apiindex.Index { return v.index }
func (v *CodeValidator) Imports() *ImportValidator { return v.imports }
func (v *CodeValidator) Classes() *ClassValidator { return v.classes }
func (v *CodeValidator) Methods() *MethodValidator { return v.methods }

// ValidateImport checks a single import statement.
func (v *CodeValidator) ValidateImport(statement string) ImportResult {
	return v.imports.Validate(statement)
}

// ValidateCode reports every problem found in code. Only imports from the
// toolkit's own namespace are checked; other imports are left alone.
func (v *CodeValidator) ValidateCode(code string) *Result {
	var errs []Error
	for _, stmt := range extractor.ExtractImports(code) {
		if !extractor.IsToolkitImport(stmt) {
			continue
		}
		errs = append(errs, v.checkImport(code, stmt)...)
	}
	errs = append(errs, v.classes.Validate(code)...)
	errs = append(errs, v.methods.Validate(code)...)
	return newResult(code, errs)
}

func (v *CodeValidator) checkImport(code string, stmt extractor.ImportStatement) []Error {
	if stmt.Kind == extractor.KindFromImport && stmt.Module == extractor.ModularRoot {
		if errs, rest, handled := v.checkModuleAliases(code, stmt); handled {
			if len(rest) == 0 {
				return errs
			}
			stmt.Names = rest
			stmt.Raw = fmt.Sprintf("from %s import %s", stmt.Module, strings.Join(rest, ", "))
			return append(errs, v.checkImport(code, stmt)...)
		}
	}

	var res ImportResult
	if stmt.Kind == "" {
		res = v.imports.Validate(stmt.Raw)
	} else {
		res = v.imports.validateStatement(stmt)
	}
	if res.Valid {
		return nil
	}

	e := Error{Type: ErrorImport, Message: res.Message, Line: stmt.Raw}
	switch res.Rule {
	case RuleParseFailure, RuleNoNames:
		e.Type = ErrorParse
	case RuleDirectImport:
		modules := stmt.Names
		if len(modules) == 0 {
			modules = []string{stmt.Module}
		}
		var lines []string
		for _, m := range modules {
			if used := extractor.ExtractUsed(code, v.index.ClassesInModule(m)); len(used) > 0 {
				lines = append(lines, fmt.Sprintf("from %s import %s", m, strings.Join(used, ", ")))
			}
		}
		e.Suggestion = strings.Join(lines, "\n")
	case RuleFromModule:
		e.Suggestion = v.imports.CorrectedImport(stmt)
		if e.Suggestion == "" {
			e.Suggestion = res.Suggested
		}
	}
	return []Error{e}
}

// checkModuleAliases handles "from vtkmodules import <submodule>, ...".
// A name is a submodule when it is not an indexed class and is either a
// known module or used as an alias (name.vtkSomething) in code. rest holds
// the other names, which are validated as an ordinary from-import.
func (v *CodeValidator) checkModuleAliases(code string, stmt extractor.ImportStatement) (errs []Error, rest []string, handled bool) {
	var (
		toDelete  []string
		withUsage []ModuleUsage
	)
	for _, name := range stmt.Names {
		if name == "*" || name == "all" {
			rest = append(rest, name)
			continue
		}
		if _, indexed := v.index.Get(name); indexed {
			rest = append(rest, name)
			continue
		}
		classes := aliasUsage(code, name)
		if len(classes) == 0 && !v.imports.IsSubmodule(name) {
			rest = append(rest, name)
			continue
		}
		if len(classes) == 0 {
			toDelete = append(toDelete, name)
			continue
		}
		withUsage = append(withUsage, ModuleUsage{
			Name:       name,
			ModulePath: extractor.ModularRoot + "." + name,
			Classes:    classes,
		})
	}
	if len(toDelete) == 0 && len(withUsage) == 0 {
		return nil, rest, false
	}
	res := v.imports.FormatModuleImportError(stmt.Raw, toDelete, withUsage)
	errs = []Error{{Type: ErrorImport, Message: res.Message, Line: stmt.Raw, Suggestion: res.Suggested}}
	return errs, rest, true
}

// aliasUsage returns the class-like names reached through alias, as in
// alias.vtkActor, in order of first use.
func aliasUsage(code, alias string) []string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `\.([A-Za-z_]\w*)`)
	var classes []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(code, -1) {
		if name := m[1]; extractor.IsClassLike(name) && !seen[name] {
			seen[name] = true
			classes = append(classes, name)
		}
	}
	return classes
}
