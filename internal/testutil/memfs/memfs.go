// Package memfs provides an in-memory ports.Storage for tests.
package memfs

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/derive/internal/core/ports"
)

var _ ports.Storage = (*FS)(nil)

// Op names a Storage operation for failure injection.
type Op string

// Storage operations.
const (
	OpCreateContainer Op = "create_container"
	OpCreateFile      Op = "create_file"
	OpFileExists      Op = "file_exists"
	OpTouch           Op = "touch"
	OpDelete          Op = "delete"
	OpList            Op = "list"
)

type node struct {
	dir     bool
	touches int
}

// FS is a concurrency-safe in-memory tree of directories and empty files.
type FS struct {
	mu       sync.Mutex
	nodes    map[string]*node
	failures map[Op]map[string]error
	calls    map[Op]int
}

// New creates an FS holding the given directories and their parents.
func New(dirs ...string) *FS {
	f := &FS{
		nodes:    map[string]*node{},
		failures: map[Op]map[string]error{},
		calls:    map[Op]int{},
	}
	for _, d := range dirs {
		f.MkdirAll(d)
	}
	return f
}

// MkdirAll creates dir and every missing parent.
func (f *FS) MkdirAll(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := filepath.Clean(dir); ; p = filepath.Dir(p) {
		if _, ok := f.nodes[p]; !ok {
			f.nodes[p] = &node{dir: true}
		}
		if filepath.Dir(p) == p {
			return
		}
	}
}

// WriteFile creates a file and its parents.
func (f *FS) WriteFile(path string) {
	path = filepath.Clean(path)
	f.MkdirAll(filepath.Dir(path))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[path] = &node{}
}

// Fail makes op on path return err until cleared with a nil err.
func (f *FS) Fail(op Op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[op] == nil {
		f.failures[op] = map[string]error{}
	}
	if err == nil {
		delete(f.failures[op], filepath.Clean(path))
		return
	}
	f.failures[op][filepath.Clean(path)] = err
}

// Calls returns how many times op was invoked.
func (f *FS) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Touches returns how many times path was touched.
func (f *FS) Touches(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[filepath.Clean(path)]; ok {
		return n.touches
	}
	return 0
}

// Exists reports whether anything exists at path.
func (f *FS) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[filepath.Clean(path)]
	return ok
}

// Files returns every file below root, relative to root and slash separated, sorted.
func (f *FS) Files(root string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	root = filepath.Clean(root)
	var out []string
	for p, n := range f.nodes {
		if n.dir {
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	slices.Sort(out)
	return out
}

func (f *FS) fault(op Op, path string) error {
	f.calls[op]++
	return f.failures[op][path]
}

// ContainerExists implements ports.Storage.
func (f *FS) ContainerExists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[filepath.Clean(path)]
	return ok && n.dir, nil
}

// CreateContainer implements ports.Storage.
func (f *FS) CreateContainer(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.fault(OpCreateContainer, path); err != nil {
		return err
	}
	if n, ok := f.nodes[path]; ok {
		if n.dir {
			return nil
		}
		return fs.ErrExist
	}
	if p, ok := f.nodes[filepath.Dir(path)]; !ok || !p.dir {
		return fs.ErrNotExist
	}
	f.nodes[path] = &node{dir: true}
	return nil
}

// FileExists implements ports.Storage.
func (f *FS) FileExists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.fault(OpFileExists, path); err != nil {
		return false, err
	}
	n, ok := f.nodes[path]
	return ok && !n.dir, nil
}

// CreateFile implements ports.Storage.
func (f *FS) CreateFile(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.fault(OpCreateFile, path); err != nil {
		return false, err
	}
	if n, ok := f.nodes[path]; ok {
		if n.dir {
			return false, fs.ErrExist
		}
		return false, nil
	}
	if p, ok := f.nodes[filepath.Dir(path)]; !ok || !p.dir {
		return false, fs.ErrNotExist
	}
	f.nodes[path] = &node{}
	return true, nil
}

// Touch implements ports.Storage.
func (f *FS) Touch(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.fault(OpTouch, path); err != nil {
		return err
	}
	n, ok := f.nodes[path]
	if !ok {
		return fs.ErrNotExist
	}
	n.touches++
	return nil
}

// Delete implements ports.Storage.
func (f *FS) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.fault(OpDelete, path); err != nil {
		return err
	}
	n, ok := f.nodes[path]
	if !ok {
		return fs.ErrNotExist
	}
	if n.dir {
		for p := range f.nodes {
			if p != path && filepath.Dir(p) == path {
				return fs.ErrInvalid
			}
		}
	}
	delete(f.nodes, path)
	return nil
}

// ListChildren implements ports.Storage.
func (f *FS) ListChildren(_ context.Context, path string) ([]ports.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.fault(OpList, path); err != nil {
		return nil, err
	}
	n, ok := f.nodes[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	if !n.dir {
		return nil, fs.ErrInvalid
	}
	var out []ports.Child
	for p, c := range f.nodes {
		if p != path && filepath.Dir(p) == path {
			out = append(out, ports.Child{Name: filepath.Base(p), IsContainer: c.dir})
		}
	}
	slices.SortFunc(out, func(a, b ports.Child) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
