package apiindex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// Document is one line of the index source: the documentation of a single
// toolkit class.
type Document struct {
	ClassName      string          `json:"class_name"`
	ModuleName     string          `json:"module_name,omitempty"`
	Content        string          `json:"content,omitempty"`
	StructuredDocs *StructuredDocs `json:"structured_docs,omitempty"`
}

// StructuredDocs groups method documentation by section title, such as
// "Methods defined here".
type StructuredDocs struct {
	Sections map[string]Section `json:"sections"`
}

// Section holds the documented methods of one section.
type Section struct {
	Methods MethodDocs `json:"methods,omitempty"`
}

// MethodDocs maps a method name to its documentation text. Non-string values
// are kept as their raw JSON text rather than failing the whole line.
type MethodDocs map[string]string

func (m *MethodDocs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(MethodDocs, len(raw))
	for name, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[name] = s
			continue
		}
		out[name] = string(v)
	}
	*m = out
	return nil
}

// maxLineSize bounds a single JSONL line; class documentation for the largest
// toolkit classes runs to a few hundred kilobytes.
const maxLineSize = 16 << 20

// ReadDocuments decodes a JSONL stream. Blank lines, malformed lines and
// lines without a class_name are skipped; the number skipped is returned.
func ReadDocuments(r io.Reader) ([]Document, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		docs    []Document
		skipped int
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(line, &doc); err != nil {
			slog.Warn("skipping malformed index line", "line", lineNo, "error", err)
			skipped++
			continue
		}
		if doc.ClassName == "" {
			skipped++
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return docs, skipped, fmt.Errorf("reading index documents at line %d: %w", lineNo+1, err)
	}
	return docs, skipped, nil
}

// WriteDocuments encodes docs as JSONL, one document per line.
func WriteDocuments(w io.Writer, docs []Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range docs {
		if err := enc.Encode(&docs[i]); err != nil {
			return fmt.Errorf("encoding %s: %w", docs[i].ClassName, err)
		}
	}
	return nil
}
