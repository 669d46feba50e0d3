package format

// ScanLine walks line from left to right and calls visit for every byte that
// sits outside a double-quoted string literal. Quote bytes and bytes inside a
// string are never passed to visit. A backslash escapes the following byte
// only inside a string; outside a string it is skipped. Returning false from
// visit stops the scan. String state never carries over to another line; the
// returned value reports whether the scan ended inside an unterminated string.
func ScanLine(line string, visit func(i int, ch byte) bool) (inString bool) {
	escape := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escape {
			escape = false
			continue
		}
		if ch == '\\' {
			if inString {
				escape = true
			}
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if !visit(i, ch) {
			return false
		}
	}
	return inString
}

// SplitComment splits line at the first comment marker outside a string.
// The comment keeps its marker; it is empty when the line has none.
func SplitComment(line string) (code, comment string) {
	at := -1
	ScanLine(line, func(i int, ch byte) bool {
		if ch == ';' {
			at = i
			return false
		}
		return true
	})
	if at < 0 {
		return line, ""
	}
	return line[:at], line[at:]
}

// IsOpener reports whether ch opens a nesting level.
func IsOpener(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloser reports whether ch closes a nesting level.
func IsCloser(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// MatchingOpen returns the opener closed by ch.
func MatchingOpen(ch byte) byte {
	switch ch {
	case ')':
		return '('
	case ']':
		return '['
	default:
		return '{'
	}
}

func isBlank(ch byte) bool {
	return ch == ' ' || ch == '\t'
}
