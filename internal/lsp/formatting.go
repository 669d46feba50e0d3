package lsp

import (
	"encoding/json"
	"unicode/utf16"

	"github.com/lispbm/lbmfmt/internal/format"
)

type formattingOptions struct {
	TabSize      int  `json:"tabSize"`
	InsertSpaces bool `json:"insertSpaces"`
}

type documentFormattingParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Options      formattingOptions      `json:"options"`
}

// handleFormatting replaces the whole document with its formatted text. The
// client's tab options are ignored: indentation widths are fixed.
func (s *Server) handleFormatting(id *json.RawMessage, params json.RawMessage) error {
	var p documentFormattingParams
	if err := json.Unmarshal(params, &p); err != nil {
		return s.replyError(id, codeInvalidParams, "invalid params for formatting")
	}
	text, ok := s.document(p.TextDocument.URI)
	if !ok {
		return s.reply(id, []TextEdit{})
	}
	return s.reply(id, formatEdits(text, s.formatOptions()))
}

func (s *Server) formatOptions() format.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formatOpts
}

func formatEdits(text string, opts format.Options) []TextEdit {
	return []TextEdit{{
		Range: Range{
			Start: Position{Line: 0, Character: 0},
			End:   endPosition(text),
		},
		NewText: format.Format(text, opts),
	}}
}

// endPosition is the position just past the last character, in UTF-16 units.
// Line breaks are counted the way the engine and LSP clients count them.
func endPosition(text string) Position {
	lines := format.SplitLines(text)
	last := len(lines) - 1
	return Position{Line: last, Character: utf16Len(lines[last])}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += max(utf16.RuneLen(r), 1)
	}
	return n
}
