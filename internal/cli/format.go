package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lispbm/lbmfmt/internal/config"
	"github.com/lispbm/lbmfmt/internal/driver"
	"github.com/lispbm/lbmfmt/internal/format"
	"github.com/lispbm/lbmfmt/internal/logging"
)

// ErrFormattingRequired is returned by format --check when some input is not
// formatted.
var ErrFormattingRequired = errors.New("formatting required")

// ErrAmbiguousOutput is returned when several files would be printed to
// stdout, where their contents could not be told apart.
var ErrAmbiguousOutput = errors.New("several files need --write, --check or --diff")

const stdinName = "<stdin>"

type formatFlags struct {
	write                bool
	check                bool
	diff                 bool
	stackClosingBrackets bool
	config               string
	jobs                 int
	include              []string
	exclude              []string
	cache                bool
}

func newFormatCmd(opts Options, root *rootFlags) *cobra.Command {
	flags := &formatFlags{}
	cmd := &cobra.Command{
		Use:   "format [path|-]...",
		Short: "Re-indent LispBM source files",
		Long: "Re-indent LispBM source files. Directories are searched recursively.\n" +
			"Without paths, or with -, source is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(opts.Stderr, root.verbose)
			settings, err := resolveSettings(cmd.Flags(), flags, logger)
			if err != nil {
				return err
			}

			paths, stdin, err := splitFormatArgs(args)
			if err != nil {
				return err
			}
			dopts := driver.Options{
				Format:  format.Options{StackClosingBrackets: settings.StackClosingBrackets},
				Check:   flags.check,
				Diff:    flags.diff,
				Write:   flags.write,
				Include: settings.Include,
				Exclude: settings.Exclude,
				Jobs:    settings.Jobs,
				Logger:  logger,
			}
			if stdin {
				return formatStdin(opts, dopts)
			}
			if settings.Cache {
				dopts.Cache = openCache(logger)
			}
			return formatFiles(cmd, opts, paths, dopts)
		},
	}

	fs := cmd.Flags()
	fs.BoolVarP(&flags.write, "write", "w", false, "write result back to the source files")
	fs.BoolVar(&flags.check, "check", false, "list files that need formatting and fail if any do")
	fs.BoolVarP(&flags.diff, "diff", "d", false, "print a unified diff instead of the formatted source")
	fs.BoolVar(&flags.stackClosingBrackets, "stack-closing-brackets", true, "keep trailing closing brackets on one line")
	fs.StringVar(&flags.config, "config", "", "config file to use instead of the project config")
	fs.IntVarP(&flags.jobs, "jobs", "j", 0, "number of files formatted in parallel (default GOMAXPROCS)")
	fs.StringSliceVar(&flags.include, "include", nil, "glob of files to format when walking directories")
	fs.StringSliceVar(&flags.exclude, "exclude", nil, "glob of files or directories to skip")
	fs.BoolVar(&flags.cache, "cache", false, "skip files already known to be formatted")
	return cmd
}

// resolveSettings layers explicitly set flags over the config files.
func resolveSettings(fs *pflag.FlagSet, flags *formatFlags, logger *slog.Logger) (config.Settings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Settings{}, fmt.Errorf("get working directory: %w", err)
	}
	settings, err := config.Resolve(flags.config, wd)
	if err != nil {
		return config.Settings{}, fmt.Errorf("load config: %w", err)
	}
	for _, src := range settings.Sources {
		logger.Debug("config loaded", "file", src)
	}

	if fs.Changed("stack-closing-brackets") {
		settings.StackClosingBrackets = flags.stackClosingBrackets
	}
	if fs.Changed("jobs") {
		settings.Jobs = flags.jobs
	}
	if fs.Changed("include") {
		settings.Include = flags.include
	}
	if fs.Changed("exclude") {
		settings.Exclude = append(settings.Exclude, flags.exclude...)
	}
	if fs.Changed("cache") {
		settings.Cache = flags.cache
	}
	return settings, nil
}

// splitFormatArgs reports whether input comes from stdin, which is the case
// for no arguments or a single "-".
func splitFormatArgs(args []string) ([]string, bool, error) {
	paths := make([]string, 0, len(args))
	stdin := false
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		switch arg {
		case "":
			continue
		case "-":
			stdin = true
		default:
			paths = append(paths, arg)
		}
	}
	if stdin && len(paths) > 0 {
		return nil, false, errors.New("stdin (-) cannot be combined with file paths")
	}
	return paths, len(paths) == 0, nil
}

func formatStdin(opts Options, dopts driver.Options) error {
	if dopts.Write {
		return errors.New("--write requires a file path")
	}
	src, err := io.ReadAll(opts.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	res := driver.FormatSource(stdinName, src, dopts)
	if res.Err != nil {
		return res.Err
	}

	switch {
	case dopts.Check:
		if res.Changed {
			reportUnformatted(opts.Stdout, stdinName)
			return ErrFormattingRequired
		}
		return nil
	case dopts.Diff:
		_, err = io.WriteString(opts.Stdout, res.Diff)
	default:
		_, err = opts.Stdout.Write(res.Formatted)
	}
	return err
}

func formatFiles(cmd *cobra.Command, opts Options, paths []string, dopts driver.Options) error {
	results, err := driver.FormatPaths(cmd.Context(), paths, dopts)
	if err != nil {
		return err
	}
	if err := dopts.Cache.Save(); err != nil {
		dopts.Logger.Warn("cannot save format cache", "error", err)
	}
	if !dopts.Check && !dopts.Diff && !dopts.Write && len(results) > 1 {
		return fmt.Errorf("%w: %d files matched", ErrAmbiguousOutput, len(results))
	}

	failed, unformatted := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			dopts.Logger.Error("format failed", "file", res.Path, "error", res.Err)
			continue
		}
		switch {
		case dopts.Check:
			if res.Changed {
				unformatted++
				reportUnformatted(opts.Stdout, res.Path)
			}
		case dopts.Diff:
			if _, err := io.WriteString(opts.Stdout, res.Diff); err != nil {
				return err
			}
		case dopts.Write:
			if res.Changed {
				dopts.Logger.Info("formatted", "file", res.Path)
			}
		default:
			if _, err := opts.Stdout.Write(res.Formatted); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be formatted", failed)
	}
	if unformatted > 0 {
		return fmt.Errorf("%w: %d file(s)", ErrFormattingRequired, unformatted)
	}
	return nil
}

func openCache(logger *slog.Logger) *driver.Cache {
	path, err := driver.DefaultCachePath("lbmfmt")
	if err != nil {
		logger.Warn("format cache disabled", "error", err)
		return nil
	}
	cache, err := driver.OpenCache(path)
	if err != nil {
		logger.Warn("format cache disabled", "error", err)
		return nil
	}
	logger.Debug("format cache opened", "file", path)
	return cache
}

func reportUnformatted(w io.Writer, name string) {
	c := color.New(color.FgYellow)
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		c.DisableColor()
	}
	_, _ = c.Fprintln(w, name)
}
