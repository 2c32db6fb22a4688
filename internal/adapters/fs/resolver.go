package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceResolver = (*Resolver)(nil)

// Resolver finds source units by walking the configured source directories.
type Resolver struct {
	walker  *Walker
	root    string
	sources domain.SourcesConfig
}

// NewResolver creates a Resolver for the project at root.
// Source directories may be absolute or relative to root.
func NewResolver(walker *Walker, root string, sources domain.SourcesConfig) *Resolver {
	return &Resolver{walker: walker, root: root, sources: sources}
}

// Resolve implements ports.SourceResolver. Units are root-relative, slash separated and sorted.
func (r *Resolver) Resolve(ctx context.Context) ([]domain.SourceUnit, error) {
	seen := make(map[string]struct{})
	for _, dir := range r.dirs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "cannot read source directory"), "dir", dir)
		}
		if !info.IsDir() {
			return nil, zerr.With(zerr.New("source path is not a directory"), "dir", dir)
		}

		for path := range r.walker.WalkFiles(dir, r.sources.Ignore) {
			if !r.included(filepath.Base(path)) {
				continue
			}
			rel, err := r.UnitPath(path)
			if err != nil {
				return nil, err
			}
			seen[rel] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	units := make([]domain.SourceUnit, len(paths))
	for i, p := range paths {
		units[i] = domain.NewSourceUnit(p)
	}
	return units, nil
}

// Dirs returns the absolute source directories.
func (r *Resolver) Dirs() []string {
	return r.dirs()
}

// UnitPath converts an absolute file path into its unit identity.
func (r *Resolver) UnitPath(path string) (string, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "source file is outside the project root"), "path", path)
	}
	return filepath.ToSlash(rel), nil
}

// Matches reports whether path would be resolved as a source unit.
func (r *Resolver) Matches(path string) bool {
	if !r.included(filepath.Base(path)) {
		return false
	}
	for _, dir := range r.dirs() {
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return !r.ignoredBelow(dir, path)
	}
	return false
}

// ignoredBelow reports whether any path element between dir and path is skipped by the walker.
func (r *Resolver) ignoredBelow(dir, path string) bool {
	for p := path; p != dir && p != filepath.Dir(p); p = filepath.Dir(p) {
		if r.walker.shouldSkip(filepath.Base(p), r.sources.Ignore) {
			return true
		}
	}
	return false
}

func (r *Resolver) included(name string) bool {
	if len(r.sources.Include) == 0 {
		return true
	}
	for _, pattern := range r.sources.Include {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func (r *Resolver) dirs() []string {
	dirs := r.sources.Dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(r.root, d)
		}
		out = append(out, filepath.Clean(d))
	}
	return out
}
