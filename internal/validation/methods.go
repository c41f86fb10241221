package validation

import (
	"fmt"
	"regexp"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/extractor"
)

// MethodValidator checks calls made on variables bound to a known class.
// Calls on unbound receivers, unknown classes, or classes with no documented
// methods cannot be judged and are skipped.
type MethodValidator struct {
	index *apiindex.Index
}

// NewMethodValidator returns a MethodValidator reading index.
func NewMethodValidator(index *apiindex.Index) *MethodValidator {
	return &MethodValidator{index: index}
}

type callKey struct {
	class, receiver, method string
}

// Validate returns one method error per distinct class, receiver and method.
// A receiver rebound to another class is judged against each class in turn.
// Membership is decided by the index's method lookup.
func (v *MethodValidator) Validate(code string) []Error {
	seen := make(map[callKey]bool)
	var errs []Error
	for _, call := range extractor.ExtractMethodCalls(code) {
		if call.Class == "" {
			continue
		}
		rec, ok := v.index.Get(call.Class)
		if !ok || len(rec.Methods()) == 0 {
			continue
		}
		if _, found := v.index.GetMethod(call.Class, call.Method); found {
			continue
		}
		key := callKey{call.Class, call.Receiver, call.Method}
		if seen[key] {
			continue
		}
		seen[key] = true

		e := Error{
			Type:       ErrorMethod,
			Message:    fmt.Sprintf("Method '%s' not found on %s (called on '%s')", call.Method, call.Class, call.Receiver),
			Line:       call.Raw,
			Identifier: call.Class + "." + call.Method,
		}
		if alt, ok := v.Suggest(call.Class, call.Method); ok {
			e.Message += fmt.Sprintf(". Did you mean '%s'?", alt)
			e.Suggestion = replaceIdentifier(call.Raw, call.Method, alt)
		}
		errs = append(errs, e)
	}
	return errs
}

// Suggest returns the documented method of className closest to attempted.
// There is no suggestion for unknown classes or classes without methods.
func (v *MethodValidator) Suggest(className, attempted string) (string, bool) {
	rec, ok := v.index.Get(className)
	if !ok {
		return "", false
	}
	return closestMatch(attempted, rec.Methods())
}

// replaceIdentifier replaces whole-word occurrences of old in line.
func replaceIdentifier(line, old, replacement string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)
	return re.ReplaceAllLiteralString(line, replacement)
}
