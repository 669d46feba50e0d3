package lsp

import (
	"fortio.org/safecast"

	"github.com/lispbm/lbmfmt/internal/format"
)

const (
	semanticTypeComment = iota
	semanticTypeString
	semanticTypeNumber
	semanticTypeOperator
)

var semanticTokenLegendTypes = []string{
	"comment",
	"string",
	"number",
	"operator",
}

type semanticTokensLegend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`
}

type semanticTokensOptions struct {
	Legend semanticTokensLegend `json:"legend"`
	Full   bool                 `json:"full"`
}

type semanticTokens struct {
	Data []uint32 `json:"data"`
}

type semanticTokensParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type semanticLexKind int

const (
	semanticLexSymbol semanticLexKind = iota
	semanticLexString
	semanticLexNumber
	semanticLexComment
	semanticLexDelimiter
	semanticLexQuote
)

type semanticLexToken struct {
	kind   semanticLexKind
	text   string
	line   int
	col    int
	length int
}

type semanticSpan struct {
	line   int
	start  int
	length int
	typ    int
}

func semanticTokensFull(text string) semanticTokens {
	spans := classifySemanticSpans(text)
	return semanticTokens{Data: encodeSemanticSpans(toUTF16Spans(text, spans))}
}

// classifySemanticSpans types lexical classes only; symbols stay untyped.
func classifySemanticSpans(text string) []semanticSpan {
	toks := lexSemantic(text)
	spans := make([]semanticSpan, 0, len(toks))
	for _, tok := range toks {
		typ := -1
		switch tok.kind {
		case semanticLexComment:
			typ = semanticTypeComment
		case semanticLexString:
			typ = semanticTypeString
		case semanticLexNumber:
			typ = semanticTypeNumber
		case semanticLexDelimiter, semanticLexQuote:
			typ = semanticTypeOperator
		}
		if typ < 0 {
			continue
		}
		spans = append(spans, semanticSpan{line: tok.line, start: tok.col, length: tok.length, typ: typ})
	}
	return spans
}

// toUTF16Spans converts byte columns and lengths into UTF-16 units.
func toUTF16Spans(text string, spans []semanticSpan) []semanticSpan {
	if len(spans) == 0 {
		return spans
	}
	lines := format.SplitLines(text)
	out := make([]semanticSpan, len(spans))
	for i, s := range spans {
		line := lines[s.line]
		out[i] = semanticSpan{
			line:   s.line,
			start:  utf16Len(line[:s.start]),
			length: utf16Len(line[s.start : s.start+s.length]),
			typ:    s.typ,
		}
	}
	return out
}

func encodeSemanticSpans(spans []semanticSpan) []uint32 {
	if len(spans) == 0 {
		return nil
	}
	data := make([]uint32, 0, len(spans)*5)
	prevLine := 0
	prevStart := 0
	for i, s := range spans {
		lineDelta := s.line
		startDelta := s.start
		if i > 0 {
			lineDelta = s.line - prevLine
			if lineDelta == 0 {
				startDelta = s.start - prevStart
			}
		}
		data = append(data, toUint32(lineDelta), toUint32(startDelta), toUint32(s.length), toUint32(s.typ), 0)
		prevLine = s.line
		prevStart = s.start
	}
	return data
}

func toUint32(v int) uint32 {
	n, err := safecast.Conv[uint32](v)
	if err != nil {
		return 0
	}
	return n
}

func lexSemantic(input string) []semanticLexToken {
	state := semanticLexState{
		input: input,
		out:   make([]semanticLexToken, 0, len(input)/3),
	}
	for state.i < len(state.input) {
		if state.scanWhitespaceOrNewline() || state.scanComment() || state.scanSingleChar() || state.scanString() || state.scanAtom() {
			continue
		}
		state.i++
		state.col++
	}
	return state.out
}

type semanticLexState struct {
	input string
	out   []semanticLexToken
	i     int
	line  int
	col   int
}

func (s *semanticLexState) emit(kind semanticLexKind, text string, line, col int) {
	s.out = append(s.out, semanticLexToken{
		kind:   kind,
		text:   text,
		line:   line,
		col:    col,
		length: len(text),
	})
}

func (s *semanticLexState) scanWhitespaceOrNewline() bool {
	ch := s.input[s.i]
	if ch == '\r' || ch == '\n' {
		if ch == '\r' && s.i+1 < len(s.input) && s.input[s.i+1] == '\n' {
			s.i++
		}
		s.line++
		s.col = 0
		s.i++
		return true
	}
	if ch == ' ' || ch == '\t' {
		s.col++
		s.i++
		return true
	}
	return false
}

func (s *semanticLexState) scanComment() bool {
	if s.input[s.i] != ';' {
		return false
	}
	startLine, startCol, j := s.line, s.col, s.i
	for j < len(s.input) && !isLineBreak(s.input[j]) {
		j++
	}
	s.emit(semanticLexComment, s.input[s.i:j], startLine, startCol)
	s.col += j - s.i
	s.i = j
	return true
}

func (s *semanticLexState) scanSingleChar() bool {
	ch := s.input[s.i]
	kind := semanticLexDelimiter
	switch {
	case ch == '(' || ch == ')' || ch == '[' || ch == ']' || ch == '{' || ch == '}':
	case ch == '\'' || ch == '`':
		kind = semanticLexQuote
	case ch == ',':
		kind = semanticLexQuote
		if s.i+1 < len(s.input) && s.input[s.i+1] == '@' {
			s.emit(kind, ",@", s.line, s.col)
			s.i += 2
			s.col += 2
			return true
		}
	default:
		return false
	}
	s.emit(kind, string(ch), s.line, s.col)
	s.i++
	s.col++
	return true
}

// scanString stops at the end of the line, matching how the formatter treats
// unterminated strings.
func (s *semanticLexState) scanString() bool {
	if s.input[s.i] != '"' {
		return false
	}
	startLine, startCol := s.line, s.col
	j := s.i + 1
	for j < len(s.input) {
		if s.input[j] == '\\' && j+1 < len(s.input) && !isLineBreak(s.input[j+1]) {
			j += 2
			continue
		}
		if s.input[j] == '"' {
			j++
			break
		}
		if isLineBreak(s.input[j]) {
			break
		}
		j++
	}
	s.emit(semanticLexString, s.input[s.i:j], startLine, startCol)
	s.col += j - s.i
	s.i = j
	return true
}

// scanAtom reads a symbol or number up to the next delimiter.
func (s *semanticLexState) scanAtom() bool {
	j := s.i
	for j < len(s.input) && !isAtomBoundary(s.input[j]) {
		j++
	}
	if j == s.i {
		return false
	}
	text := s.input[s.i:j]
	kind := semanticLexSymbol
	if isNumberLiteral(text) {
		kind = semanticLexNumber
	}
	s.emit(kind, text, s.line, s.col)
	s.col += j - s.i
	s.i = j
	return true
}

func isAtomBoundary(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '(', ')', '[', ']', '{', '}', '"', ';', '\'', '`', ',':
		return true
	}
	return false
}

// isNumberLiteral accepts an optional sign, a leading digit and any type
// suffix or radix letters after it, e.g. 42, -1.5, 0xFFu8, 10u32.
func isNumberLiteral(text string) bool {
	if text[0] == '-' || text[0] == '+' {
		text = text[1:]
	}
	return text != "" && text[0] >= '0' && text[0] <= '9'
}

func isLineBreak(ch byte) bool {
	return ch == '\n' || ch == '\r'
}
