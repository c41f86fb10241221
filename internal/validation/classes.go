package validation

import (
	"fmt"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/extractor"
)

// ClassValidator reports instantiated class-like names that are not in the
// index. Names the code defines itself are not checked.
type ClassValidator struct {
	index *apiindex.Index
	names []string
}

// NewClassValidator returns a ClassValidator over index. Suggestions are
// drawn from the class names present at construction.
func NewClassValidator(index *apiindex.Index) *ClassValidator {
	return &ClassValidator{index: index, names: index.ClassNames()}
}

// Validate returns one unknown_class error per distinct unknown name.
func (v *ClassValidator) Validate(code string) []Error {
	defined := extractor.DefinedNames(code)
	reported := make(map[string]bool)

	var errs []Error
	for _, site := range extractor.InstantiationSites(code) {
		name := site.Name
		if reported[name] || defined[name] || !extractor.IsClassLike(name) {
			continue
		}
		if _, ok := v.index.Get(name); ok {
			continue
		}
		reported[name] = true

		e := Error{Type: ErrorUnknownClass, Line: site.Raw, Identifier: name}
		if alt, ok := v.Suggest(name); ok {
			e.Message = fmt.Sprintf("Unknown class '%s' is not in the VTK API. Did you mean '%s'? SMALLEST CHANGE: replace '%s' with '%s'.",
				name, alt, name, alt)
			e.Suggestion = replaceIdentifier(site.Raw, name, alt)
		} else {
			e.Message = fmt.Sprintf("Unknown class '%s' is not in the VTK API. SMALLEST CHANGE: replace '%s' with an existing class; search the API index for the intended name.",
				name, name)
		}
		errs = append(errs, e)
	}
	return errs
}

// Suggest returns the indexed class name closest to name.
func (v *ClassValidator) Suggest(name string) (string, bool) {
	return closestMatch(name, v.names)
}
