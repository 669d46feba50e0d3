package format

import (
	"strings"
	"unicode"
)

// splitSegments breaks trimmed code into the pieces that go on separate output
// lines. With stacking enabled, or fewer than two trailing closers behind
// other code, the code stays whole.
func splitSegments(code string, stackClosers bool) []string {
	if code == "" {
		return []string{""}
	}
	if stackClosers {
		return []string{code}
	}

	end := len(code) - 1
	var closers []byte
	for end >= 0 {
		ch := code[end]
		if IsCloser(ch) {
			closers = append(closers, ch)
			end--
			continue
		}
		if isBlank(ch) {
			end--
			continue
		}
		break
	}

	base := strings.TrimRightFunc(code[:end+1], unicode.IsSpace)
	if base == "" {
		if len(closers) == 0 {
			return []string{""}
		}
		return appendReversed(make([]string, 0, len(closers)), closers)
	}
	if len(closers) <= 1 {
		return []string{code}
	}
	segments := make([]string, 0, len(closers)+1)
	segments = append(segments, base)
	return appendReversed(segments, closers)
}

// closers were collected right to left.
func appendReversed(dst []string, closers []byte) []string {
	for i := len(closers) - 1; i >= 0; i-- {
		dst = append(dst, string(closers[i]))
	}
	return dst
}
