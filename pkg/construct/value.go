package construct

import "strings"

// Value returns the raw right-hand-side text at the start of s. The text
// ends at the first line break, or at the first ";" that is not nested in
// brackets or a string literal. Surrounding whitespace is trimmed.
func Value(s string) string {
	s = strings.TrimLeft(s, " \t")
	depth := 0
	var quote byte
	escaped := false

	end := len(s)
scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || c == '\r' {
			end = i
			break
		}
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				end = i
				break scan
			}
		}
	}
	return strings.TrimSpace(s[:end])
}
