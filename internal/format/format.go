// Package format re-indents LispBM source from the nesting of its delimiters.
//
// Formatting is a single pass over the lines of the input. The only state
// carried from one line to the next is a Stack of open delimiters; every call
// to Format starts from an empty stack, so Format is safe for concurrent use.
// Malformed input is never rejected: unmatched closers are ignored and
// unterminated strings end with their line.
package format

import "strings"

// Options controls layout choices of Format.
type Options struct {
	// StackClosingBrackets keeps runs of trailing closers on the line they
	// end. When false, each closer of such a run moves to its own line.
	StackClosingBrackets bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{StackClosingBrackets: true}
}

// Format returns text with every line re-indented. Line endings are
// normalized to "\n" and the output ends with a newline iff text does.
func Format(text string, opts Options) string {
	lines := SplitLines(text)

	out := make([]string, 0, len(lines))
	var stack Stack
	for _, line := range lines {
		out = formatLine(out, line, &stack, opts)
	}

	// A trailing newline leaves an empty last line, which joins back into
	// exactly one trailing "\n".
	return strings.Join(out, "\n")
}

func formatLine(out []string, line string, stack *Stack, opts Options) []string {
	if strings.TrimSpace(line) == "" {
		return append(out, "")
	}

	code, comment := SplitComment(line)
	code = strings.TrimSpace(code)
	hasComment := strings.TrimSpace(comment) != ""
	if code == "" && !hasComment {
		return append(out, "")
	}
	if code == "" {
		return append(out, buildLine("", comment, lineIndent("", *stack)))
	}

	for i, segment := range splitSegments(code, opts.StackClosingBrackets) {
		attached := ""
		if i == 0 {
			attached = comment
		}
		indent := lineIndent(segment, *stack)
		out = append(out, buildLine(segment, attached, indent))
		updateStack(segment, indent, stack)
	}
	return out
}

// SplitLines splits text at "\n", "\r\n" and a lone "\r". The line
// breaks are not part of the returned lines.
func SplitLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
