// Package layout turns a path pattern into a grid of block files.
//
// A layout is a directory of files. Files directly under the base directory
// form a single ungrouped column group; each first level subdirectory is a
// column group (cgroup) of its own. Within a cgroup every file is one row
// group (rgroup), identified by its file stem:
//
//	data/
//	  g0/part_00000.csv  g0/part_00001.csv
//	  g1/part_00000.csv  g1/part_00001.csv
package layout

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
	"github.com/kartikbazzad/bunbase/blocks/storage"
)

// HasMeta reports whether pattern contains glob metacharacters.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{\\")
}

// Expand normalises pattern: it is cleaned, and a bare path that is not an
// existing file is treated as a directory whose whole subtree is wanted.
func Expand(ctx context.Context, fs storage.FileSystem, pattern string) (string, error) {
	if pattern == "" {
		return "", blockerrs.Invalid("empty pattern")
	}
	p := path.Clean(pattern)
	if HasMeta(p) {
		if !doublestar.ValidatePattern(p) {
			return "", blockerrs.Invalid("bad pattern %q", pattern)
		}
		return p, nil
	}
	ok, err := fs.Exists(ctx, p)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", p, err)
	}
	if ok {
		return p, nil
	}
	if p == "/" {
		return "/**", nil
	}
	return p + "/**", nil
}

// Base returns the directory that grouping is relative to: the longest
// leading part of pattern without metacharacters. pattern should already
// be expanded.
func Base(pattern string) string {
	base, _ := doublestar.SplitPattern(path.Clean(pattern))
	if base == "" {
		return "."
	}
	return base
}

// Match expands pattern and returns the regular files it matches, sorted.
// Directories never match. Zero matches is a NoMatchError.
func Match(ctx context.Context, fs storage.FileSystem, pattern string) ([]string, error) {
	p, err := Expand(ctx, fs, pattern)
	if err != nil {
		return nil, err
	}
	if !HasMeta(p) {
		return []string{p}, nil
	}

	candidates, err := fs.List(ctx, Base(p))
	if err != nil {
		return nil, err
	}

	var out []string
	for _, c := range candidates {
		ok, err := doublestar.Match(p, c)
		if err != nil {
			return nil, blockerrs.Invalid("bad pattern %q: %v", pattern, err)
		}
		if ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, &blockerrs.NoMatchError{Pattern: pattern}
	}
	return out, nil
}
