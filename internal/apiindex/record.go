package apiindex

import (
	"sort"
	"strings"
	"sync"
)

// MethodsMarker starts the methods part of a class's free-text documentation.
const MethodsMarker = "## |  Methods defined here:"

// ClassRecord is the indexed documentation of one class. Records are built
// once when the index is loaded and never modified afterwards.
type ClassRecord struct {
	ClassName string
	Module    string
	Content   string
	Sections  map[string]Section

	methodsOnce sync.Once
	methods     []string
}

func newRecord(doc Document) *ClassRecord {
	r := &ClassRecord{
		ClassName: doc.ClassName,
		Module:    doc.ModuleName,
		Content:   doc.Content,
	}
	if r.Module == "" {
		r.Module = ExtractModule(doc.Content)
	}
	if doc.StructuredDocs != nil {
		r.Sections = doc.StructuredDocs.Sections
	}
	return r
}

// Structured reports whether the record carries at least one section with a
// method table.
func (r *ClassRecord) Structured() bool {
	for _, s := range r.Sections {
		if len(s.Methods) > 0 {
			return true
		}
	}
	return false
}

// Methods returns the documented method names in alphabetical order: the
// union of the structured sections and the "### Name" headings under the
// methods marker of the content.
func (r *ClassRecord) Methods() []string {
	r.methodsOnce.Do(func() {
		seen := make(map[string]struct{})
		for _, s := range r.Sections {
			for name := range s.Methods {
				seen[name] = struct{}{}
			}
		}
		for _, name := range contentMethodHeadings(r.Content) {
			seen[name] = struct{}{}
		}
		r.methods = make([]string, 0, len(seen))
		for name := range seen {
			r.methods = append(r.methods, name)
		}
		sort.Strings(r.methods)
	})
	return r.methods
}

// HasMethod reports whether name is one of the documented methods.
func (r *ClassRecord) HasMethod(name string) bool {
	methods := r.Methods()
	i := sort.SearchStrings(methods, name)
	return i < len(methods) && methods[i] == name
}

// Document converts the record back into its source form.
func (r *ClassRecord) Document() Document {
	doc := Document{
		ClassName:  r.ClassName,
		ModuleName: r.Module,
		Content:    r.Content,
	}
	if len(r.Sections) > 0 {
		doc.StructuredDocs = &StructuredDocs{Sections: r.Sections}
	}
	return doc
}

func contentMethodHeadings(content string) []string {
	idx := strings.Index(content, MethodsMarker)
	if idx < 0 {
		return nil
	}
	var names []string
	for _, line := range strings.Split(content[idx+len(MethodsMarker):], "\n") {
		if !strings.HasPrefix(line, "###") {
			continue
		}
		if name := headingName(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// headingName extracts the method identifier from a heading such as
// "### SetInputData(self, input) -> None" or "### `Update`".
func headingName(line string) string {
	s := strings.TrimSpace(strings.TrimLeft(line, "#"))
	s = strings.Trim(s, "`* ")
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end >= 0 {
		s = s[:end]
	}
	return s
}
