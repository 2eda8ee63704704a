// Package localfs narrows an fs.Filesystem to the read side of a sync run:
// a flat, sorted listing of one directory and random-access file handles.
package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
)

// FS reads the local side of a sync run through an fs.Filesystem.
type FS struct {
	fs fs.Filesystem
}

// New wraps fsys. A nil fsys selects the operating system filesystem.
func New(fsys fs.Filesystem) *FS {
	if fsys == nil {
		return NewOSFS()
	}
	return &FS{fs: fsys}
}

// NewOSFS creates a filesystem rooted at "/". Relative paths must be made
// absolute by the caller.
func NewOSFS() *FS {
	return &FS{fs: billy.NewOSFS("/")}
}

// NewInMemoryFS creates a new in-memory filesystem.
func NewInMemoryFS() *FS {
	return &FS{fs: billy.NewInMemoryFS()}
}

// List returns the entries directly inside dir, sorted by name. Entries are
// reported without following symlinks.
func (f *FS) List(dir string) ([]os.FileInfo, error) {
	list, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("localfs: list %q: %w", dir, err)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list, nil
}

// Stat returns file info, following symlinks.
func (f *FS) Stat(name string) (os.FileInfo, error) {
	return f.fs.Stat(name)
}

// Open opens name for reading.
//
//nolint:ireturn // fs.File is the handle type of the underlying filesystem.
func (f *FS) Open(name string) (fs.File, error) {
	return f.fs.Open(name)
}

// WriteFile writes data to name, creating parent directories as needed.
func (f *FS) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := f.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return f.fs.WriteFile(name, data, perm)
}

// MkdirAll creates a directory and its parents.
func (f *FS) MkdirAll(path string, perm os.FileMode) error {
	return f.fs.MkdirAll(path, perm)
}

// Filesystem returns the wrapped filesystem.
//
//nolint:ireturn // exposes the adapter target.
func (f *FS) Filesystem() fs.Filesystem {
	return f.fs
}
