// Package collector removes artifacts that no source unit produces anymore.
package collector

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/zerr"
)

// Entries reports the committed contributors of an artifact.
type Entries interface {
	Contributors(artifact domain.ArtifactPath) (domain.SourceSet, bool)
}

// Result summarizes one collection run.
type Result struct {
	// Scanned is the number of files visited.
	Scanned int
	// Deleted are the orphans that were removed.
	Deleted []domain.ArtifactPath
	// Failed are the orphans that could not be removed.
	Failed []domain.ArtifactPath
	// Pruned is the number of empty containers removed.
	Pruned int
}

// Collector deletes every file under the output root that has no registry entry.
type Collector struct {
	storage    ports.Storage
	entries    Entries
	logger     ports.Logger
	pruneEmpty bool
}

// New creates a Collector.
func New(storage ports.Storage, entries Entries, logger ports.Logger, pruneEmpty bool) *Collector {
	return &Collector{
		storage:    storage,
		entries:    entries,
		logger:     logger,
		pruneEmpty: pruneEmpty,
	}
}

type frame struct {
	dir string
	rel string
}

// Collect scans root and deletes orphaned files. Deletion and listing failures below the
// root are logged and recorded but do not stop the scan. A missing root is not an error.
func (c *Collector) Collect(ctx context.Context, root string) (Result, error) {
	var res Result
	root = filepath.Clean(root)

	// Containers in visit order; reversed for deepest-first pruning.
	var containers []string
	stack := []frame{{dir: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := c.storage.ListChildren(ctx, f.dir)
		if err != nil && f.dir == root {
			if errors.Is(err, fs.ErrNotExist) {
				return res, nil
			}
			return res, errors.Join(domain.ErrListFailed, zerr.With(err, "path", root))
		}
		if err != nil {
			c.logger.Error(errors.Join(domain.ErrListFailed, zerr.With(err, "path", f.dir)))
			continue
		}
		if f.dir != root {
			containers = append(containers, f.dir)
		}

		for _, child := range children {
			rel := child.Name
			if f.rel != "" {
				rel = f.rel + "/" + child.Name
			}
			full := filepath.Join(f.dir, child.Name)
			if child.IsContainer {
				stack = append(stack, frame{dir: full, rel: rel})
				continue
			}

			res.Scanned++
			artifact := domain.ArtifactPath(rel)
			if _, ok := c.entries.Contributors(artifact); ok {
				continue
			}
			if err := c.storage.Delete(ctx, full); err != nil {
				c.logger.Error(errors.Join(domain.ErrDeleteFailed,
					zerr.With(zerr.With(err, "path", full), "artifact", artifact.String())))
				res.Failed = append(res.Failed, artifact)
				continue
			}
			res.Deleted = append(res.Deleted, artifact)
		}
	}

	if c.pruneEmpty {
		res.Pruned = c.prune(ctx, containers)
	}
	return res, nil
}

// prune removes containers that are empty, children before parents.
func (c *Collector) prune(ctx context.Context, containers []string) int {
	pruned := 0
	for i := len(containers) - 1; i >= 0; i-- {
		dir := containers[i]
		children, err := c.storage.ListChildren(ctx, dir)
		if err != nil || len(children) > 0 {
			continue
		}
		if err := c.storage.Delete(ctx, dir); err != nil {
			c.logger.Error(errors.Join(domain.ErrPruneFailed, zerr.With(err, "path", dir)))
			continue
		}
		pruned++
	}
	return pruned
}
