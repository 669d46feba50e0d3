package format

import "strings"

// lineIndent resolves the indentation of a comment-free code segment against
// stack. Only leading closers influence the result; stack is not modified.
func lineIndent(code string, stack Stack) int {
	if strings.TrimSpace(code) == "" {
		return stack.ChildIndent()
	}

	preview := stack.Clone()
	indent := preview.ChildIndent()
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if isBlank(ch) {
			continue
		}
		if !IsCloser(ch) {
			break
		}
		indent = 0
		if ctx, ok := preview.PopMatching(ch); ok {
			indent = ctx.Indent
		}
	}
	return indent
}

// updateStack applies the delimiters of code, a line indented by indent, to stack.
func updateStack(code string, indent int, stack *Stack) {
	if code == "" {
		return
	}
	ScanLine(code, func(_ int, ch byte) bool {
		switch {
		case ch == ';':
			return false
		case IsOpener(ch):
			stack.Push(NewContext(ch, indent))
		case IsCloser(ch):
			stack.PopMatching(ch)
		}
		return true
	})
}
