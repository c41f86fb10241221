package apiindex

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxDescriptionRunes = 200

var moduleMarker = regexp.MustCompile("\\*\\*Module:\\*\\*\\s*`([^`]+)`")

// ExtractModule returns the module path named by the "**Module:** `...`"
// marker of a class's documentation, or "" when there is none.
func ExtractModule(content string) string {
	m := moduleMarker.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractDescription returns the first prose line of the documentation,
// skipping headings and the module marker, cut to 200 characters.
func ExtractDescription(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**Module:**") {
			continue
		}
		if utf8.RuneCountInString(line) > maxDescriptionRunes {
			runes := []rune(line)
			return string(runes[:maxDescriptionRunes]) + "..."
		}
		return line
	}
	return ""
}
