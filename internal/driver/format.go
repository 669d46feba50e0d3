// Package driver formats sets of files on disk.
package driver

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"github.com/lispbm/lbmfmt/internal/format"
)

// Options configures FormatPaths.
type Options struct {
	Format format.Options

	// Check reports which files would change without touching them.
	Check bool
	// Diff fills FormatResult.Diff with a unified diff.
	Diff bool
	// Write rewrites changed files in place. Ignored with Check or Diff.
	Write bool

	Include []string
	Exclude []string
	// Jobs bounds concurrency; zero or less uses GOMAXPROCS.
	Jobs int

	Cache  *Cache
	Logger *slog.Logger
}

// FormatResult captures the outcome for a single file.
type FormatResult struct {
	Path      string
	Changed   bool
	Err       error
	Formatted []byte
	Diff      string
}

// FormatPaths formats the files found under paths. Results follow the order
// of CollectSourceFiles. Failures reading or writing a file are reported in
// its result and do not stop the others.
func FormatPaths(ctx context.Context, paths []string, opts Options) ([]FormatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := CollectSourceFiles(ctx, paths, opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoSourceFiles
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]FormatResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = formatFile(path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// FormatSource formats src in memory. name labels the diff headers.
func FormatSource(name string, src []byte, opts Options) FormatResult {
	formatted := []byte(format.Format(string(src), opts.Format))
	res := FormatResult{
		Path:      name,
		Changed:   !bytes.Equal(src, formatted),
		Formatted: formatted,
	}
	if opts.Diff && res.Changed {
		res.Diff, res.Err = unifiedDiff(name, src, formatted)
	}
	return res
}

func formatFile(path string, opts Options) FormatResult {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return FormatResult{Path: path, Err: err}
	}

	digest := Digest(src, opts.Format)
	if opts.Cache.Known(path, digest) {
		logger.Debug("cached as formatted", "file", path)
		return FormatResult{Path: path, Formatted: src}
	}

	res := FormatSource(path, src, opts)
	if res.Err != nil {
		return res
	}
	if !res.Changed {
		opts.Cache.Remember(path, digest)
		return res
	}
	if opts.Check || opts.Diff || !opts.Write {
		return res
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, res.Formatted, mode); err != nil {
		res.Err = err
		return res
	}
	logger.Debug("rewrote file", "file", path)
	opts.Cache.Remember(path, Digest(res.Formatted, opts.Format))
	return res
}

func unifiedDiff(name string, before, after []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: name + ".orig",
		ToFile:   name,
		Context:  3,
	})
}
