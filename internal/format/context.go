package format

const (
	indentSize          = 4
	braceChildIncrement = 4
	braceMinChildIndent = 8
)

// Context is one open delimiter on the nesting path.
type Context struct {
	Open        byte
	Indent      int
	ChildIndent int
}

// NewContext builds the context for open appearing on a line indented by indent.
func NewContext(open byte, indent int) Context {
	child := indent + indentSize
	if open == '{' {
		child = max(indent+braceChildIncrement, braceMinChildIndent)
	}
	return Context{Open: open, Indent: indent, ChildIndent: child}
}

// Stack is the ordered set of contexts enclosing the scan position, innermost last.
type Stack []Context

// ChildIndent is the indent for a line nested directly inside the innermost context.
func (s Stack) ChildIndent() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].ChildIndent
}

func (s Stack) Clone() Stack {
	if s == nil {
		return nil
	}
	out := make(Stack, len(s))
	copy(out, s)
	return out
}

func (s *Stack) Push(ctx Context) {
	*s = append(*s, ctx)
}

// PopMatching closes the nearest context opened by the counterpart of closer.
// Contexts of another type above it are discarded with it. When no context on
// the stack matches, the stack is left as is and ok is false. On success the
// returned context is the innermost one removed, which is the matching context
// unless mismatched contexts were discarded on the way. An unmatched closer
// never drains the stack, so one stray closer cannot flatten the rest of a file.
func (s *Stack) PopMatching(closer byte) (first Context, ok bool) {
	open := MatchingOpen(closer)
	cur := *s
	for i := len(cur) - 1; i >= 0; i-- {
		if cur[i].Open != open {
			continue
		}
		first = cur[len(cur)-1]
		*s = cur[:i]
		return first, true
	}
	return Context{}, false
}
