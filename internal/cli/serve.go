package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lispbm/lbmfmt/internal/config"
	"github.com/lispbm/lbmfmt/internal/format"
	"github.com/lispbm/lbmfmt/internal/logging"
	"github.com/lispbm/lbmfmt/internal/lsp"
)

type ServeRuntimeOptions struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	BuildInfo BuildInfo
	Verbose   bool
	// LogFile redirects server logs to a rotated file instead of Stderr.
	LogFile string
}

type ServeRunner func(opts ServeRuntimeOptions) error

func newServeCmd(opts Options, root *rootFlags) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the LispBM language server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeWithOptions(opts, root, logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	return cmd
}

func runServeWithOptions(opts Options, root *rootFlags, logFile string) error {
	return opts.ServeRunner(ServeRuntimeOptions{
		Stdin:     opts.Stdin,
		Stdout:    opts.Stdout,
		Stderr:    opts.Stderr,
		BuildInfo: opts.BuildInfo,
		Verbose:   root.verbose,
		LogFile:   logFile,
	})
}

func defaultServeRunner(opts ServeRuntimeOptions) error {
	logger := logging.New(opts.Stderr, opts.Verbose)
	if opts.LogFile != "" {
		fileLogger, closer, err := logging.NewFile(opts.LogFile, opts.Verbose)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = fileLogger
	}

	if opts.BuildInfo.Version != "" {
		lsp.ServerVersion = opts.BuildInfo.Version
	}
	srv := lsp.NewServer(opts.Stdin, opts.Stdout, logger, serverDefaults(logger))
	logger.Info("language server started", "version", lsp.ServerVersion)
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	return nil
}

// serverDefaults reads the config files around the working directory. A
// broken config must not keep the editor from getting a server, so errors
// fall back to the built-in defaults.
func serverDefaults(logger *slog.Logger) format.Options {
	wd, err := os.Getwd()
	if err != nil {
		logger.Warn("cannot determine working directory", "error", err)
		return format.DefaultOptions()
	}
	settings, err := config.Resolve("", wd)
	if err != nil {
		logger.Warn("ignoring config", "error", err)
		return format.DefaultOptions()
	}
	for _, src := range settings.Sources {
		logger.Debug("config loaded", "file", src)
	}
	return format.Options{StackClosingBrackets: settings.StackClosingBrackets}
}
