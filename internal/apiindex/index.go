// Package apiindex holds the in-memory API index: class records in source
// document order, the module table, substring search and the two-tier method
// lookup. An Index is immutable once built and safe for concurrent readers.
package apiindex

import (
	"sort"
	"strings"
)

// DefaultSearchLimit applies when Search is called with a non-positive limit.
const DefaultSearchLimit = 10

// UnknownModule is reported by Search for classes without a module path.
const UnknownModule = "Unknown"

// SearchResult is one Search hit.
type SearchResult struct {
	ClassName   string `json:"class_name"`
	Module      string `json:"module"`
	Description string `json:"description"`
}

// MethodInfo is the documentation of one method of a class.
type MethodInfo struct {
	ClassName  string `json:"class_name"`
	MethodName string `json:"method_name"`
	Content    string `json:"content"`
	Section    string `json:"section,omitempty"`
}

// Index is the read-only API index.
type Index struct {
	records  []*ClassRecord
	byName   map[string]int
	modules  []string
	byModule map[string][]string
}

// Empty returns an index with no classes and no modules.
func Empty() *Index {
	return New(nil)
}

// New builds an index from docs in order. Documents without a class name
// are skipped. A repeated class name replaces the earlier record but keeps
// its original position.
func New(docs []Document) *Index {
	x := &Index{
		byName:   make(map[string]int, len(docs)),
		byModule: make(map[string][]string),
	}
	for _, doc := range docs {
		if doc.ClassName == "" {
			continue
		}
		rec := newRecord(doc)
		if pos, ok := x.byName[rec.ClassName]; ok {
			old := x.records[pos]
			x.records[pos] = rec
			if old.Module == rec.Module {
				continue
			}
			x.removeFromModule(old.Module, old.ClassName)
		} else {
			x.byName[rec.ClassName] = len(x.records)
			x.records = append(x.records, rec)
		}
		if rec.Module != "" {
			if _, ok := x.byModule[rec.Module]; !ok {
				x.modules = append(x.modules, rec.Module)
			}
			x.byModule[rec.Module] = append(x.byModule[rec.Module], rec.ClassName)
		}
	}
	return x
}

func (x *Index) removeFromModule(module, className string) {
	names := x.byModule[module]
	for i, n := range names {
		if n == className {
			names = append(names[:i:i], names[i+1:]...)
			break
		}
	}
	if len(names) > 0 {
		x.byModule[module] = names
		return
	}
	delete(x.byModule, module)
	for i, m := range x.modules {
		if m == module {
			x.modules = append(x.modules[:i:i], x.modules[i+1:]...)
			break
		}
	}
}

// Len returns the number of indexed classes.
func (x *Index) Len() int { return len(x.records) }

// ModuleCount returns the number of modules that declare at least one class.
func (x *Index) ModuleCount() int { return len(x.modules) }

// Modules returns the module paths in order of first appearance.
func (x *Index) Modules() []string {
	return append([]string(nil), x.modules...)
}

// HasModule reports whether any class is declared in module.
func (x *Index) HasModule(module string) bool {
	_, ok := x.byModule[module]
	return ok
}

// ClassNames returns every class name in source document order.
func (x *Index) ClassNames() []string {
	names := make([]string, len(x.records))
	for i, r := range x.records {
		names[i] = r.ClassName
	}
	return names
}

// Get returns the record of the named class.
func (x *Index) Get(className string) (*ClassRecord, bool) {
	pos, ok := x.byName[className]
	if !ok {
		return nil, false
	}
	return x.records[pos], true
}

// Search returns the classes whose name contains query, ignoring case, in
// source document order and at most limit of them.
func (x *Index) Search(query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := strings.ToLower(query)
	results := make([]SearchResult, 0, min(limit, 16))
	for _, r := range x.records {
		if !strings.Contains(strings.ToLower(r.ClassName), q) {
			continue
		}
		module := r.Module
		if module == "" {
			module = UnknownModule
		}
		results = append(results, SearchResult{
			ClassName:   r.ClassName,
			Module:      module,
			Description: ExtractDescription(r.Content),
		})
		if len(results) == limit {
			break
		}
	}
	return results
}

// ClassesInModule returns the classes declared in module in source order.
// An unknown or empty module yields an empty slice.
func (x *Index) ClassesInModule(module string) []string {
	return append([]string{}, x.byModule[module]...)
}

// GetMethod looks a method up in the structured sections of the class, in
// section-name order, and falls back to scanning the methods part of the
// free-text documentation.
func (x *Index) GetMethod(className, methodName string) (MethodInfo, bool) {
	rec, ok := x.Get(className)
	if !ok || methodName == "" {
		return MethodInfo{}, false
	}

	if len(rec.Sections) > 0 {
		names := make([]string, 0, len(rec.Sections))
		for name := range rec.Sections {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if doc, ok := rec.Sections[name].Methods[methodName]; ok {
				return MethodInfo{
					ClassName:  className,
					MethodName: methodName,
					Content:    doc,
					Section:    name,
				}, true
			}
		}
	}

	content, ok := scanMethodContent(rec.Content, methodName)
	if !ok {
		return MethodInfo{}, false
	}
	return MethodInfo{ClassName: className, MethodName: methodName, Content: content}, true
}

// scanMethodContent collects the lines after the methods marker up to the
// first heading that does not mention methodName.
func scanMethodContent(content, methodName string) (string, bool) {
	var (
		collected []string
		inMethods bool
		nonBlank  bool
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, MethodsMarker) {
			inMethods = true
			continue
		}
		if !inMethods {
			continue
		}
		if strings.HasPrefix(line, "###") && !strings.Contains(line, methodName) {
			break
		}
		collected = append(collected, line)
		if strings.TrimSpace(line) != "" {
			nonBlank = true
		}
	}
	if !nonBlank {
		return "", false
	}
	return strings.Join(collected, "\n"), true
}

// Documents returns the index contents as source documents, in order.
func (x *Index) Documents() []Document {
	docs := make([]Document, len(x.records))
	for i, r := range x.records {
		docs[i] = r.Document()
	}
	return docs
}
