package validation

import (
	"fmt"
	"strings"
)

// ErrorType names a family of validation problems.
type ErrorType string

const (
	ErrorParse        ErrorType = "parse_error"
	ErrorImport       ErrorType = "import"
	ErrorUnknownClass ErrorType = "unknown_class"
	ErrorMethod       ErrorType = "method"
)

// Error is one problem found in a code sample. Message always contains the
// offending identifier verbatim; Identifier repeats it for class errors
// ("vtkFakeReader") and method errors ("vtkActor.FakeMethod").
type Error struct {
	Type       ErrorType `json:"error_type"`
	Message    string    `json:"message"`
	Line       string    `json:"line,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
}

// Result is the outcome of validating one code sample. Errors are ordered
// imports first, then classes, then methods.
type Result struct {
	IsValid bool    `json:"is_valid"`
	Errors  []Error `json:"errors"`
	Code    string  `json:"code,omitempty"`
}

func newResult(code string, errs []Error) *Result {
	if errs == nil {
		errs = []Error{}
	}
	return &Result{IsValid: len(errs) == 0, Errors: errs, Code: code}
}

// HasErrors reports whether any problem was found.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// CountByType returns how many errors of each type were found.
func (r *Result) CountByType() map[ErrorType]int {
	counts := make(map[ErrorType]int)
	for _, e := range r.Errors {
		counts[e.Type]++
	}
	return counts
}

// FormatErrors renders the report shown to users: one block per error type
// in order of first appearance, headed by the upper-cased type.
func (r *Result) FormatErrors() string {
	if !r.HasErrors() {
		return "No errors found."
	}

	var order []ErrorType
	groups := make(map[ErrorType][]Error)
	for _, e := range r.Errors {
		if _, ok := groups[e.Type]; !ok {
			order = append(order, e.Type)
		}
		groups[e.Type] = append(groups[e.Type], e)
	}

	var b strings.Builder
	noun := "errors"
	if len(r.Errors) == 1 {
		noun = "error"
	}
	fmt.Fprintf(&b, "Found %d %s:\n", len(r.Errors), noun)
	for _, t := range order {
		fmt.Fprintf(&b, "\n%s ERRORS:\n", strings.ToUpper(string(t)))
		for i, e := range groups[t] {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, e.Message)
			if e.Line != "" {
				fmt.Fprintf(&b, "     Line: %s\n", e.Line)
			}
			if e.Suggestion != "" {
				fmt.Fprintf(&b, "     Suggestion: %s\n", indentContinuation(e.Suggestion, "                 "))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func indentContinuation(s, pad string) string {
	return strings.ReplaceAll(s, "\n", "\n"+pad)
}
