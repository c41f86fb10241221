package extractor

import "strings"

// logicalLine is one statement of source text. Text has comments removed and
// string literal contents blanked so patterns never match inside strings;
// Raw keeps the literals. Bracketed and backslash continuations are folded
// into a single line.
type logicalLine struct {
	No   int
	Text string
	Raw  string
}

func logicalLines(code string) []logicalLine {
	var (
		out        []logicalLine
		text, raw  strings.Builder
		depth      int
		quote      byte
		triple     bool
		lineNo     = 1
		start      = 1
		skipIndent bool
	)
	flush := func() {
		t := strings.TrimSpace(text.String())
		if t != "" {
			out = append(out, logicalLine{No: start, Text: t, Raw: strings.TrimSpace(raw.String())})
		}
		text.Reset()
		raw.Reset()
		depth = 0
	}
	join := func() {
		skipIndent = true
		if t := text.String(); t != "" && strings.IndexByte("([{", t[len(t)-1]) >= 0 {
			return
		}
		text.WriteByte(' ')
		raw.WriteByte(' ')
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		if c == '\r' {
			continue
		}
		if skipIndent {
			if c == ' ' || c == '\t' {
				continue
			}
			skipIndent = false
		}

		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(code):
				text.WriteString("  ")
				raw.WriteByte(c)
				raw.WriteByte(code[i+1])
				if code[i+1] == '\n' {
					lineNo++
				}
				i++
			case c == quote && (!triple || strings.HasPrefix(code[i:], strings.Repeat(string(quote), 3))):
				n := 1
				if triple {
					n = 3
				}
				text.WriteString(code[i : i+n])
				raw.WriteString(code[i : i+n])
				i += n - 1
				quote, triple = 0, false
			case c == '\n' && triple:
				lineNo++
				text.WriteByte(' ')
				raw.WriteByte(' ')
			case c == '\n':
				// unterminated string literal ends with its line
				quote = 0
				lineNo++
				flush()
				start = lineNo
			default:
				text.WriteByte(' ')
				raw.WriteByte(c)
			}
			continue
		}

		switch c {
		case '#':
			for i+1 < len(code) && code[i+1] != '\n' {
				i++
			}
		case '\'', '"':
			quote = c
			n := 1
			if strings.HasPrefix(code[i:], strings.Repeat(string(c), 3)) {
				triple = true
				n = 3
			}
			text.WriteString(code[i : i+n])
			raw.WriteString(code[i : i+n])
			i += n - 1
		case '\\':
			if i+1 < len(code) && (code[i+1] == '\n' || code[i+1] == '\r') {
				for i+1 < len(code) && code[i+1] != '\n' {
					i++
				}
				i++
				lineNo++
				join()
				continue
			}
			text.WriteByte(c)
			raw.WriteByte(c)
		case '(', '[', '{':
			depth++
			text.WriteByte(c)
			raw.WriteByte(c)
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
			text.WriteByte(c)
			raw.WriteByte(c)
		case '\n':
			lineNo++
			if depth > 0 {
				join()
				continue
			}
			flush()
			start = lineNo
		case ';':
			// statements separated on one line are scanned separately
			if depth == 0 {
				flush()
				start = lineNo
				continue
			}
			text.WriteByte(c)
			raw.WriteByte(c)
		default:
			text.WriteByte(c)
			raw.WriteByte(c)
		}
	}
	flush()
	return out
}

// stripComment removes a trailing comment from a single line, ignoring '#'
// inside string literals.
func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return s[:i]
		}
	}
	return s
}
