package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const stagingPrefix = ".blocks-staging-"

// Local is a FileSystem over an afero filesystem.
type Local struct {
	fs afero.Fs
}

// NewLocal returns a Local backed by the operating system.
func NewLocal() *Local {
	return &Local{fs: afero.NewOsFs()}
}

// NewMemory returns a Local backed by an in-memory filesystem.
func NewMemory() *Local {
	return &Local{fs: afero.NewMemMapFs()}
}

// Fs exposes the underlying afero filesystem.
func (l *Local) Fs() afero.Fs {
	return l.fs
}

func (l *Local) List(ctx context.Context, dir string) ([]string, error) {
	root := filepath.FromSlash(dir)
	if root == "" {
		root = "."
	}
	info, err := l.fs.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return []string{filepath.ToSlash(root)}, nil
	}

	var out []string
	err = afero.Walk(l.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(info.Name(), stagingPrefix) {
			return nil
		}
		// Walk does not follow symlinks; a link to a regular file is a block.
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := l.fs.Stat(p)
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			info = target
		}
		if info.Mode().IsRegular() {
			out = append(out, filepath.ToSlash(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	return sortedUnique(out), nil
}

func (l *Local) Exists(_ context.Context, p string) (bool, error) {
	info, err := l.fs.Stat(filepath.FromSlash(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (l *Local) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := l.fs.Open(filepath.FromSlash(p))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create writes to a staging file next to p and renames it into place on
// Close, so readers never observe a partially written block.
func (l *Local) Create(_ context.Context, p string) (io.WriteCloser, error) {
	final := filepath.FromSlash(p)
	dir := filepath.Dir(final)
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	staging := filepath.Join(dir, stagingPrefix+uuid.NewString()+"-"+path.Base(p))
	f, err := l.fs.OpenFile(staging, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &stagedFile{fs: l.fs, f: f, staging: staging, final: final}, nil
}

func (l *Local) MkdirAll(_ context.Context, dir string) error {
	return l.fs.MkdirAll(filepath.FromSlash(dir), 0o755)
}

type stagedFile struct {
	fs      afero.Fs
	f       afero.File
	staging string
	final   string
	closed  bool
}

func (s *stagedFile) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

func (s *stagedFile) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.f.Close(); err != nil {
		s.fs.Remove(s.staging)
		return err
	}
	if err := s.fs.Rename(s.staging, s.final); err != nil {
		s.fs.Remove(s.staging)
		return fmt.Errorf("rename %s: %w", s.final, err)
	}
	return nil
}

// Abort discards the staging file without touching the final path.
func (s *stagedFile) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.f.Close()
	return s.fs.Remove(s.staging)
}
