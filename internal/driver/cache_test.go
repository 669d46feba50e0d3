package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lispbm/lbmfmt/internal/format"
)

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "format.mp")
	c, err := OpenCache(path)
	require.NoError(t, err)

	d := Digest([]byte("(a)"), format.DefaultOptions())
	assert.False(t, c.Known("a.lisp", d))
	c.Remember("a.lisp", d)
	require.NoError(t, c.Save())

	reopened, err := OpenCache(path)
	require.NoError(t, err)
	assert.True(t, reopened.Known("a.lisp", d))
	assert.False(t, reopened.Known("a.lisp", Digest([]byte("(a)"), format.Options{})))
}

func TestCacheIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.mp")
	require.NoError(t, os.WriteFile(path, []byte("not msgpack"), 0o600))

	c, err := OpenCache(path)
	require.NoError(t, err)
	assert.False(t, c.Known("a.lisp", 1))
}

func TestNilCacheIsInert(t *testing.T) {
	var c *Cache
	c.Remember("a.lisp", 1)
	assert.False(t, c.Known("a.lisp", 1))
	assert.NoError(t, c.Save())
}

func TestFormatPathsRemembersFormattedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "dirty.lisp")
	writeSource(t, path, unformatted)

	cache, err := OpenCache(filepath.Join(root, "cache.mp"))
	require.NoError(t, err)

	opts := baseOptions()
	opts.Write = true
	opts.Cache = cache
	_, err = FormatPaths(context.Background(), []string{path}, opts)
	require.NoError(t, err)
	assert.True(t, cache.Known(path, Digest([]byte(formatted), opts.Format)))

	results, err := FormatPaths(context.Background(), []string{path}, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed)
}

func TestDefaultCachePathUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	got, err := DefaultCachePath("lbmfmt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lbmfmt", "format.mp"), got)
}
