package lsp

import "encoding/json"

// lspSettings mirrors the client configuration section read by the server:
// {"lispbm": {"format": {"stackClosingBrackets": false}}}.
type lspSettings struct {
	LispBM struct {
		Format struct {
			StackClosingBrackets *bool `json:"stackClosingBrackets"`
		} `json:"format"`
	} `json:"lispbm"`
}

type didChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

func (s *Server) handleDidChangeConfiguration(params json.RawMessage) error {
	if len(params) == 0 {
		return nil
	}
	var p didChangeConfigurationParams
	if err := json.Unmarshal(params, &p); err != nil {
		return err
	}
	s.applySettings(p.Settings)
	return nil
}

// applySettings ignores malformed settings and keeps values the client omits.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("ignoring malformed settings", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := settings.LispBM.Format.StackClosingBrackets; v != nil {
		s.formatOpts.StackClosingBrackets = *v
		s.logger.Debug("settings applied", "stackClosingBrackets", *v)
	}
}
