package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lispbm/lbmfmt/internal/config"
	"github.com/lispbm/lbmfmt/internal/format"
	"github.com/lispbm/lbmfmt/internal/logging"
)

const (
	unformatted = "(define (f x)\n(+ x 1))\n"
	formatted   = "(define (f x)\n    (+ x 1))\n"
)

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
}

func baseOptions() Options {
	return Options{
		Format:  format.DefaultOptions(),
		Include: config.DefaultInclude,
		Jobs:    2,
		Logger:  logging.Discard(),
	}
}

func TestCollectSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, filepath.Join(root, "a.lisp"), "")
	writeSource(t, filepath.Join(root, "sub", "b.lbm"), "")
	writeSource(t, filepath.Join(root, "sub", "notes.txt"), "")
	writeSource(t, filepath.Join(root, ".git", "c.lisp"), "")
	writeSource(t, filepath.Join(root, "vendor", "d.lisp"), "")
	explicit := filepath.Join(root, "script.txt")
	writeSource(t, explicit, "")

	files, err := CollectSourceFiles(context.Background(), []string{root, explicit, root}, config.DefaultInclude, []string{"vendor/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.lisp"),
		explicit,
		filepath.Join(root, "sub", "b.lbm"),
	}, files)
}

func TestCollectSourceFilesMissingPath(t *testing.T) {
	_, err := CollectSourceFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, nil, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatPathsWrite(t *testing.T) {
	root := t.TempDir()
	dirty := filepath.Join(root, "dirty.lisp")
	clean := filepath.Join(root, "clean.lisp")
	writeSource(t, dirty, unformatted)
	writeSource(t, clean, formatted)

	opts := baseOptions()
	opts.Write = true
	results, err := FormatPaths(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, clean, results[0].Path)
	assert.False(t, results[0].Changed)
	assert.Equal(t, dirty, results[1].Path)
	assert.True(t, results[1].Changed)

	got, err := os.ReadFile(dirty)
	require.NoError(t, err)
	assert.Equal(t, formatted, string(got))

	info, err := os.Stat(dirty)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestFormatPathsCheckLeavesFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "dirty.lisp")
	writeSource(t, path, unformatted)

	opts := baseOptions()
	opts.Check = true
	opts.Write = true
	results, err := FormatPaths(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Changed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, unformatted, string(got))
}

func TestFormatPathsDiff(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "dirty.lisp")
	writeSource(t, path, unformatted)

	opts := baseOptions()
	opts.Diff = true
	results, err := FormatPaths(context.Background(), []string{path}, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Diff, "--- "+path+".orig")
	assert.Contains(t, results[0].Diff, "-(+ x 1))")
	assert.Contains(t, results[0].Diff, "+    (+ x 1))")
}

func TestFormatPathsNoFiles(t *testing.T) {
	_, err := FormatPaths(context.Background(), []string{t.TempDir()}, baseOptions())
	assert.ErrorIs(t, err, ErrNoSourceFiles)
}

func TestFormatPathsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FormatPaths(ctx, []string{t.TempDir()}, baseOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatPathsReportsUnreadableFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "trap.lisp")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	explicit := filepath.Join(root, "ok.lisp")
	writeSource(t, explicit, formatted)

	results, err := FormatPaths(context.Background(), []string{explicit}, baseOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	res := formatFile(dir, baseOptions())
	assert.Error(t, res.Err)
}

func TestFormatSourceSplitMode(t *testing.T) {
	opts := baseOptions()
	opts.Format = format.Options{StackClosingBrackets: false}
	res := FormatSource("<stdin>", []byte("(a (b c))"), opts)
	assert.True(t, res.Changed)
	assert.Equal(t, "(a (b c\n)\n)", string(res.Formatted))
	assert.Empty(t, res.Diff)
}
