package lsp

import (
	"fmt"

	"github.com/lispbm/lbmfmt/internal/format"
)

const (
	severityWarning = 2
	diagSource      = "lbmfmt"
)

type openDelim struct {
	ch   byte
	line int
	col  int
}

// collectDiagnostics reports delimiter problems the formatter recovers from.
// Closers resolve the same way the formatter does: the nearest opener of the
// same kind wins and openers of other kinds above it are dropped.
func collectDiagnostics(text string) []Diagnostic {
	diags := []Diagnostic{}
	var open []openDelim

	lines := format.SplitLines(text)

	for lineNo, line := range lines {
		unterminated := format.ScanLine(line, func(i int, ch byte) bool {
			if ch == ';' {
				return false
			}
			switch {
			case format.IsOpener(ch):
				open = append(open, openDelim{ch: ch, line: lineNo, col: i})
			case format.IsCloser(ch):
				want := format.MatchingOpen(ch)
				match := -1
				for j := len(open) - 1; j >= 0; j-- {
					if open[j].ch == want {
						match = j
						break
					}
				}
				if match < 0 {
					diags = append(diags, newDiagnostic(line, lineNo, i, 1, fmt.Sprintf("unmatched '%c'", ch)))
					return true
				}
				for _, dropped := range open[match+1:] {
					diags = append(diags, newDiagnostic(lines[dropped.line], dropped.line, dropped.col, 1,
						fmt.Sprintf("'%c' is closed by '%c' on line %d", dropped.ch, ch, lineNo+1)))
				}
				open = open[:match]
			}
			return true
		})
		if unterminated {
			start := openQuote(line)
			diags = append(diags, newDiagnostic(line, lineNo, start, len(line)-start, "unterminated string literal"))
		}
	}

	for _, o := range open {
		diags = append(diags, newDiagnostic(lines[o.line], o.line, o.col, 1, fmt.Sprintf("unclosed '%c'", o.ch)))
	}
	return diags
}

// openQuote returns the index of the quote that opens the string still
// unterminated at the end of line.
func openQuote(line string) int {
	start := -1
	inString, escape := false, false
	for i := 0; i < len(line); i++ {
		switch {
		case escape:
			escape = false
		case inString && line[i] == '\\':
			escape = true
		case line[i] == '"':
			inString = !inString
			if inString {
				start = i
			}
		}
	}
	return start
}

// newDiagnostic converts a byte span of line into a UTF-16 range.
func newDiagnostic(line string, lineNo, col, length int, msg string) Diagnostic {
	start := utf16Len(line[:col])
	end := start + utf16Len(line[col:col+length])
	return Diagnostic{
		Range: Range{
			Start: Position{Line: lineNo, Character: start},
			End:   Position{Line: lineNo, Character: end},
		},
		Severity: severityWarning,
		Source:   diagSource,
		Message:  msg,
	}
}
