package pass

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/zerr"
)

// createdPaths collects the storage paths a pass created.
type createdPaths struct {
	mu    sync.Mutex
	paths []string
}

func (c *createdPaths) add(paths ...string) {
	if len(paths) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, paths...)
}

// deepestFirst returns the collected paths without duplicates, children before parents.
func (c *createdPaths) deepestFirst() []string {
	c.mu.Lock()
	paths := slices.Clone(c.paths)
	c.mu.Unlock()

	slices.SortFunc(paths, func(a, b string) int {
		if d := cmp.Compare(depth(b), depth(a)); d != 0 {
			return d
		}
		return strings.Compare(b, a)
	})
	return slices.Compact(paths)
}

func depth(p string) int {
	return strings.Count(filepath.Clean(p), string(filepath.Separator))
}

// rollback removes what an abandoned pass created. It is best effort: failures are logged
// and the remaining paths are still attempted.
func (r *Runner) rollback(ctx context.Context, created *createdPaths) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range created.deepestFirst() {
		if err := r.storage.Delete(ctx, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Error(errors.Join(domain.ErrRollbackFailed, zerr.With(err, "path", p)))
		}
	}
}
