package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	unformattedSrc = "(define (f x)\n(+ x 1))\n"
	formattedSrc   = "(define (f x)\n    (+ x 1))\n"
)

// isolateConfig keeps the user's global config and cache out of the test.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func runFormat(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(append([]string{"format"}, args...), Options{
		Stdin:       strings.NewReader(stdin),
		Stdout:      &out,
		Stderr:      &bytes.Buffer{},
		ServeRunner: func(opts ServeRuntimeOptions) error { return nil },
	})
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(got)
}

func TestFormatStdinToStdout(t *testing.T) {
	isolateConfig(t)

	for _, args := range [][]string{nil, {"-"}} {
		got, err := runFormat(t, unformattedSrc, args...)
		require.NoError(t, err, "args %v", args)
		assert.Equal(t, formattedSrc, got, "args %v", args)
	}
}

func TestFormatStackClosingBracketsFlag(t *testing.T) {
	isolateConfig(t)

	got, err := runFormat(t, "(a (b c))", "--stack-closing-brackets=false")
	require.NoError(t, err)
	assert.Equal(t, "(a (b c\n)\n)", got)
}

func TestFormatSingleFileToStdout(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "main.lisp")
	writeFile(t, path, unformattedSrc)

	got, err := runFormat(t, "", path)
	require.NoError(t, err)
	assert.Equal(t, formattedSrc, got)
	assert.Equal(t, unformattedSrc, readFile(t, path))
}

func TestFormatSeveralFilesToStdoutRejected(t *testing.T) {
	isolateConfig(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.lisp"), unformattedSrc)
	writeFile(t, filepath.Join(dir, "b.lisp"), formattedSrc)

	got, err := runFormat(t, "", dir)
	require.ErrorIs(t, err, ErrAmbiguousOutput)
	assert.Empty(t, got)

	_, err = runFormat(t, "", "--check", dir)
	assert.ErrorIs(t, err, ErrFormattingRequired)
}

func TestFormatWriteFile(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "main.lisp")
	writeFile(t, path, unformattedSrc)

	_, err := runFormat(t, "", "--write", path)
	require.NoError(t, err)
	assert.Equal(t, formattedSrc, readFile(t, path))
}

func TestFormatWriteRequiresFilePath(t *testing.T) {
	isolateConfig(t)

	_, err := runFormat(t, "(a)", "--write")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--write requires a file path")
}

func TestFormatRejectsStdinWithPaths(t *testing.T) {
	isolateConfig(t)

	_, err := runFormat(t, "", "-", "a.lisp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be combined")
}

func TestFormatCheckDirectory(t *testing.T) {
	isolateConfig(t)

	dir := t.TempDir()
	dirty := filepath.Join(dir, "dirty.lisp")
	clean := filepath.Join(dir, "sub", "clean.lbm")
	writeFile(t, dirty, unformattedSrc)
	writeFile(t, clean, formattedSrc)

	out, err := runFormat(t, "", "--check", dir)
	require.ErrorIs(t, err, ErrFormattingRequired)
	assert.Equal(t, dirty, strings.TrimSpace(out))
	assert.Equal(t, unformattedSrc, readFile(t, dirty), "--check must not modify files")

	_, err = runFormat(t, "", "--check", clean)
	assert.NoError(t, err)
}

func TestFormatCheckStdin(t *testing.T) {
	isolateConfig(t)

	out, err := runFormat(t, unformattedSrc, "--check")
	require.ErrorIs(t, err, ErrFormattingRequired)
	assert.Equal(t, stdinName, strings.TrimSpace(out))
}

func TestFormatDiff(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "main.lisp")
	writeFile(t, path, unformattedSrc)

	out, err := runFormat(t, "", "--diff", path)
	require.NoError(t, err)
	assert.Contains(t, out, "+    (+ x 1))")
	assert.Contains(t, out, "-(+ x 1))")
	assert.Equal(t, unformattedSrc, readFile(t, path), "--diff must not modify files")
}

func TestFormatExcludeFlag(t *testing.T) {
	isolateConfig(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.lisp"), unformattedSrc)
	writeFile(t, filepath.Join(dir, "gen", "skip.lisp"), unformattedSrc)

	out, err := runFormat(t, "", "--check", "--exclude", "gen/**", dir)
	require.ErrorIs(t, err, ErrFormattingRequired)
	assert.NotContains(t, out, "skip.lisp")
}

func TestFormatUsesProjectConfig(t *testing.T) {
	isolateConfig(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".lbmfmt.yml"), "stack_closing_brackets: false\n")
	t.Chdir(dir)

	got, err := runFormat(t, "(a (b c))")
	require.NoError(t, err)
	assert.Equal(t, "(a (b c\n)\n)", got, "project config not applied")

	got, err = runFormat(t, "(a (b c))", "--stack-closing-brackets")
	require.NoError(t, err)
	assert.Equal(t, "(a (b c))", got, "flag should override config")
}

func TestFormatExplicitConfigTOML(t *testing.T) {
	isolateConfig(t)

	cfg := filepath.Join(t.TempDir(), "lbmfmt.toml")
	writeFile(t, cfg, "stack_closing_brackets = false\n")

	got, err := runFormat(t, "(a (b c))", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "(a (b c\n)\n)", got)

	_, err = runFormat(t, "(a)", "--config", filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestFormatWithCache(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "main.lisp")
	writeFile(t, path, unformattedSrc)

	_, err := runFormat(t, "", "--cache", "--write", path)
	require.NoError(t, err)
	cachePath := filepath.Join(os.Getenv("XDG_CACHE_HOME"), "lbmfmt", "format.mp")
	assert.FileExists(t, cachePath)

	_, err = runFormat(t, "", "--cache", "--check", path)
	assert.NoError(t, err, "cached file should pass --check")
}

func TestFormatMissingPath(t *testing.T) {
	isolateConfig(t)

	_, err := runFormat(t, "", filepath.Join(t.TempDir(), "nope.lisp"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
