package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// ErrNoSourceFiles is returned when the given paths contain nothing to format.
var ErrNoSourceFiles = errors.New("no source files found")

// CollectSourceFiles expands paths into a sorted, duplicate-free list of
// files. Directories are walked recursively and their files kept when they
// match an include glob and no exclude glob, relative to the directory.
// Hidden directories are skipped. Files named directly are always kept
// unless excluded.
func CollectSourceFiles(ctx context.Context, paths, include, exclude []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		files = append(files, clean)
	}

	for _, root := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", root, err)
		}
		if !info.IsDir() {
			if !matchesAny(exclude, filepath.ToSlash(root)) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				if rel != "." && matchesAny(exclude, rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if matchesAny(include, rel) && !matchesAny(exclude, rel) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func matchesAny(globs []string, name string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(name)); ok {
			return true
		}
	}
	return false
}
