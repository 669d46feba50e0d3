// Package cli exposes the lbmfmt command line for embedding in other binaries.
package cli

import internalcli "github.com/lispbm/lbmfmt/internal/cli"

type BuildInfo = internalcli.BuildInfo
type Options = internalcli.Options

// ErrFormattingRequired is returned by "format --check" when input would change.
var ErrFormattingRequired = internalcli.ErrFormattingRequired

// ErrAmbiguousOutput is returned by "format" when several files would be
// printed to stdout.
var ErrAmbiguousOutput = internalcli.ErrAmbiguousOutput

func Run(args []string, opts Options) error {
	return internalcli.Run(args, opts)
}
