package format

import (
	"strings"
	"unicode"
)

const commentGap = "  "

// buildLine renders one output line from its code, comment and indent width.
func buildLine(code, comment string, indent int) string {
	indentation := strings.Repeat(" ", indent)
	hasCode := strings.TrimSpace(code) != ""

	var text string
	if hasCode {
		text = indentation + strings.TrimSpace(code)
	}
	if strings.TrimSpace(comment) != "" {
		cleaned := strings.TrimLeftFunc(comment, unicode.IsSpace)
		if hasCode {
			if !strings.HasSuffix(text, " ") {
				text += commentGap
			}
			text += cleaned
		} else {
			text = indentation + cleaned
		}
	}
	return strings.TrimRightFunc(text, unicode.IsSpace)
}
