package extractor

import (
	"regexp"
	"strings"
)

// ImportKind classifies an import statement.
type ImportKind string

const (
	KindMonolithic    ImportKind = "monolithic"
	KindModularAll    ImportKind = "modular-all"
	KindBackendDirect ImportKind = "backend-direct"
	KindDirect        ImportKind = "other-direct"
	KindFromImport    ImportKind = "from-import"
)

// ToolkitRoot is the umbrella module; ModularRoot holds the submodules and
// ModularAll re-exports every class.
const (
	ToolkitRoot = "vtk"
	ModularRoot = "vtkmodules"
	ModularAll  = "vtkmodules.all"
)

// ImportStatement is one logical import statement. For direct imports
// Names lists the imported modules; for from-imports the imported names
// (aliases dropped), or nil when the name list is missing or malformed.
type ImportStatement struct {
	Raw    string     `json:"raw"`
	Line   int        `json:"line,omitempty"`
	Kind   ImportKind `json:"kind"`
	Module string     `json:"module,omitempty"`
	Names  []string   `json:"names,omitempty"`
	Alias  string     `json:"alias,omitempty"`
}

var (
	dottedRe     = regexp.MustCompile(`^[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*$`)
	identRe      = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	importPartRe = regexp.MustCompile(`^([A-Za-z_][\w.]*)(?:\s+as\s+([A-Za-z_]\w*))?$`)
	fromRe       = regexp.MustCompile(`^from\s+(\.*[A-Za-z_][\w.]*|\.+)(?:\s+import\b\s*(.*))?$`)
)

// ExtractImports returns one entry per logical import statement. A
// parenthesised from-import spread over several lines is one entry.
func ExtractImports(code string) []ImportStatement {
	var out []ImportStatement
	for _, ln := range logicalLines(code) {
		if !isImportLine(ln.Text) && ln.Text != "import" && ln.Text != "from" {
			continue
		}
		stmt, ok := ParseImport(ln.Raw)
		if !ok {
			stmt = ImportStatement{Raw: ln.Raw}
		}
		stmt.Line = ln.No
		out = append(out, stmt)
	}
	return out
}

// ParseImport decomposes a single import statement. A trailing comment and
// surrounding whitespace are ignored. ok is false when the text is not an
// import statement at all; a from-statement whose name list is missing or
// malformed parses with nil Names.
func ParseImport(statement string) (ImportStatement, bool) {
	raw := strings.TrimSpace(stripComment(statement))
	stmt := ImportStatement{Raw: raw}
	text := strings.Join(strings.Fields(strings.ReplaceAll(raw, "\\\n", " ")), " ")

	switch {
	case strings.HasPrefix(text, "import "):
		return parseDirect(stmt, strings.TrimPrefix(text, "import "))
	case strings.HasPrefix(text, "from "):
		m := fromRe.FindStringSubmatch(text)
		if m == nil {
			return stmt, false
		}
		stmt.Kind = KindFromImport
		stmt.Module = m[1]
		stmt.Names = parseNames(m[2])
		return stmt, true
	}
	return stmt, false
}

func parseDirect(stmt ImportStatement, rest string) (ImportStatement, bool) {
	for _, part := range strings.Split(rest, ",") {
		m := importPartRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil || !dottedRe.MatchString(m[1]) {
			return stmt, false
		}
		stmt.Names = append(stmt.Names, m[1])
		if stmt.Module == "" {
			stmt.Module = m[1]
			stmt.Alias = m[2]
		}
	}
	stmt.Kind = KindDirect
	if len(stmt.Names) == 1 {
		switch stmt.Module {
		case ToolkitRoot:
			stmt.Kind = KindMonolithic
		case ModularAll:
			stmt.Kind = KindModularAll
		}
	}
	return stmt, true
}

// parseNames splits "a, b as c" or "(a,\n b,)" into the imported names.
func parseNames(list string) []string {
	list = strings.TrimSpace(list)
	if strings.HasPrefix(list, "(") {
		if !strings.HasSuffix(list, ")") {
			return nil
		}
		list = strings.TrimSuffix(strings.TrimPrefix(list, "("), ")")
	}
	if strings.TrimSpace(list) == "*" {
		return []string{"*"}
	}
	var names []string
	parts := strings.Split(list, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			// a trailing comma is allowed, an empty entry elsewhere is not
			if i == len(parts)-1 && i > 0 {
				continue
			}
			return nil
		}
		fields := strings.Fields(part)
		switch {
		case len(fields) == 1 && identRe.MatchString(fields[0]):
		case len(fields) == 3 && fields[1] == "as" && identRe.MatchString(fields[0]) && identRe.MatchString(fields[2]):
		default:
			return nil
		}
		names = append(names, fields[0])
	}
	return names
}

// IsToolkitImport reports whether stmt imports from the toolkit's own
// namespace: the umbrella module, the modular package, or any vtk* module.
func IsToolkitImport(stmt ImportStatement) bool {
	if stmt.Kind == KindFromImport {
		return isToolkitModule(stmt.Module)
	}
	if stmt.Kind == "" {
		// unparsed; judge by the first word after the keyword
		fields := strings.Fields(strings.TrimPrefix(strings.TrimPrefix(stmt.Raw, "import"), "from"))
		return len(fields) > 0 && isToolkitModule(strings.TrimRight(fields[0], ",("))
	}
	for _, n := range stmt.Names {
		if isToolkitModule(n) {
			return true
		}
	}
	return false
}

func isToolkitModule(module string) bool {
	root, _, _ := strings.Cut(module, ".")
	return strings.HasPrefix(root, ToolkitRoot)
}
