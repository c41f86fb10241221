// Package extractor recognises the toolkit constructs in Python source text:
// import statements, constructor calls, variable-to-class bindings and
// method-call sites. It is pattern based, never parses a full grammar, and
// knows nothing about the API index.
package extractor

import (
	"regexp"
	"strings"
)

var (
	classLikeRe = regexp.MustCompile(`^vtk[A-Z][A-Za-z0-9_]*$`)

	// name( at statement position, bare or assigned: "x = Widget(", "show(".
	statementCallRe = regexp.MustCompile(`^(?:[A-Za-z_][\w.]*(?:\s*,\s*[A-Za-z_][\w.]*)*\s*=\s*)?([A-Za-z_]\w*)\s*\(`)

	// class-like name( anywhere in an expression, qualified or not.
	classCallRe = regexp.MustCompile(`\b(vtk[A-Z][A-Za-z0-9_]*)\s*\(`)

	assignRe = regexp.MustCompile(`^([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*)\s*=([^=].*)$`)
	ctorRe   = regexp.MustCompile(`^\s*(?:([A-Za-z_]\w*)\.)?([A-Za-z_]\w*)\s*\(`)

	methodCallRe = regexp.MustCompile(`([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*)\.([A-Za-z_]\w*)\s*\(`)

	definitionRe = regexp.MustCompile(`^(?:async\s+)?(?:def|class)\s+([A-Za-z_]\w*)`)
)

var keywords = map[string]bool{
	"and": true, "as": true, "assert": true, "await": true, "del": true, "elif": true,
	"except": true, "for": true, "if": true, "in": true, "is": true, "lambda": true,
	"not": true, "or": true, "return": true, "while": true, "with": true, "yield": true,
}

// IsClassLike reports whether name follows the toolkit's class naming
// convention: the "vtk" prefix followed by an upper-case camel-case name.
func IsClassLike(name string) bool {
	return classLikeRe.MatchString(name)
}

// Instantiation is one constructor-style call.
type Instantiation struct {
	Name string
	Line int
	Raw  string
}

// InstantiationSites returns every call at statement position (assigned or
// bare) and every class-like call anywhere in an expression, in source order.
// Import lines and def/class headers are not scanned.
func InstantiationSites(code string) []Instantiation {
	var sites []Instantiation
	for _, ln := range logicalLines(code) {
		if isImportLine(ln.Text) || definitionRe.MatchString(ln.Text) {
			continue
		}
		seen := make(map[int]bool)
		if m := statementCallRe.FindStringSubmatchIndex(ln.Text); m != nil {
			name := ln.Text[m[2]:m[3]]
			if !keywords[name] {
				sites = append(sites, Instantiation{Name: name, Line: ln.No, Raw: ln.Raw})
				seen[m[2]] = true
			}
		}
		for _, m := range classCallRe.FindAllStringSubmatchIndex(ln.Text, -1) {
			if seen[m[2]] {
				continue
			}
			sites = append(sites, Instantiation{Name: ln.Text[m[2]:m[3]], Line: ln.No, Raw: ln.Raw})
		}
	}
	return sites
}

// ExtractInstantiations returns the distinct names used as constructor
// calls, in order of first appearance.
func ExtractInstantiations(code string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, s := range InstantiationSites(code) {
		if !seen[s.Name] {
			seen[s.Name] = true
			names = append(names, s.Name)
		}
	}
	return names
}

// ExtractUsed returns the instantiated names that appear in available.
func ExtractUsed(code string, available []string) []string {
	known := make(map[string]bool, len(available))
	for _, n := range available {
		known[n] = true
	}
	var used []string
	for _, n := range ExtractInstantiations(code) {
		if known[n] {
			used = append(used, n)
		}
	}
	return used
}

// DefinedNames returns the functions and classes the code defines itself.
func DefinedNames(code string) map[string]bool {
	names := make(map[string]bool)
	for _, ln := range logicalLines(code) {
		if m := definitionRe.FindStringSubmatch(ln.Text); m != nil {
			names[m[1]] = true
		}
	}
	return names
}

// binding returns the variable bound by an assignment line and the class it
// is bound to. class is empty when the variable is assigned anything other
// than a single class-like constructor call.
func binding(text string) (variable, class string, ok bool) {
	m := assignRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	variable, rhs := m[1], m[2]
	c := ctorRe.FindStringSubmatchIndex(rhs)
	if c == nil {
		return variable, "", true
	}
	name := rhs[c[4]:c[5]]
	if !IsClassLike(name) {
		return variable, "", true
	}
	end := closingParen(rhs, c[1]-1)
	if end < 0 || strings.TrimSpace(rhs[end+1:]) != "" {
		return variable, "", true
	}
	return variable, name, true
}

// TrackVariableTypes maps each variable assigned a class-like constructor
// call ("v = vtkActor()" or "v = vtk.vtkActor()") to the class name. A later
// assignment of anything else removes the binding.
func TrackVariableTypes(code string) map[string]string {
	types := make(map[string]string)
	for _, ln := range logicalLines(code) {
		variable, class, ok := binding(ln.Text)
		if !ok {
			continue
		}
		if class == "" {
			delete(types, variable)
			continue
		}
		types[variable] = class
	}
	return types
}

// MethodCallSite is one "receiver.Method(" call. Class is the class the
// receiver was bound to at that point in the code, or empty.
type MethodCallSite struct {
	Receiver string
	Method   string
	Raw      string
	Line     int
	Class    string
}

// ExtractMethodCalls returns every call made through a named receiver, in
// source order. Calls on the result of another call are not followed.
func ExtractMethodCalls(code string) []MethodCallSite {
	var calls []MethodCallSite
	types := make(map[string]string)
	for _, ln := range logicalLines(code) {
		if isImportLine(ln.Text) {
			continue
		}
		for _, m := range methodCallRe.FindAllStringSubmatchIndex(ln.Text, -1) {
			if m[0] > 0 {
				switch ln.Text[m[0]-1] {
				case '.', ')', ']':
					continue
				}
			}
			receiver := ln.Text[m[2]:m[3]]
			calls = append(calls, MethodCallSite{
				Receiver: receiver,
				Method:   ln.Text[m[4]:m[5]],
				Raw:      ln.Raw,
				Line:     ln.No,
				Class:    types[receiver],
			})
		}
		if variable, class, ok := binding(ln.Text); ok {
			if class == "" {
				delete(types, variable)
			} else {
				types[variable] = class
			}
		}
	}
	return calls
}

// closingParen returns the index of the parenthesis closing the one at open.
func closingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isImportLine(text string) bool {
	return strings.HasPrefix(text, "import ") || strings.HasPrefix(text, "from ")
}
