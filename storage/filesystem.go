// Package storage provides the filesystem capability used to find, read and
// write block files. Two backends implement it: Local (an afero filesystem,
// the OS by default) and ObjectStore (an S3-compatible bucket via MinIO).
//
// Paths are slash separated. For ObjectStore the first path segment is the
// bucket name and the rest is the object key.
package storage

import (
	"context"
	"io"
	"path"
	"sort"
)

// FileSystem is the set of operations the block engine needs from storage.
// Handles returned by Open and Create must be closed by the caller; nothing
// is written to a final path before Create's handle is closed successfully.
type FileSystem interface {
	// List returns every regular file at or below dir, recursively.
	// A missing dir yields no paths and no error.
	List(ctx context.Context, dir string) ([]string, error)

	// Exists reports whether a regular file (not a directory) exists at p.
	Exists(ctx context.Context, p string) (bool, error)

	// Open opens p for reading.
	Open(ctx context.Context, p string) (io.ReadCloser, error)

	// Create opens p for writing, replacing any existing file on Close.
	Create(ctx context.Context, p string) (io.WriteCloser, error)

	// MkdirAll makes sure dir can hold files.
	MkdirAll(ctx context.Context, dir string) error
}

// Dir is path.Dir for storage paths.
func Dir(p string) string {
	return path.Dir(p)
}

// Join is path.Join for storage paths.
func Join(elem ...string) string {
	return path.Join(elem...)
}

func sortedUnique(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	for _, p := range paths {
		if len(out) > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Abort discards a handle returned by Create without committing it, when the
// backend supports that, and closes it otherwise.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(interface{ Abort() error }); ok {
		return a.Abort()
	}
	return w.Close()
}
