// Package registry holds the session mapping from artifacts to the source units that
// produce them.
package registry

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.trai.ch/derive/internal/core/domain"
)

type committed map[domain.ArtifactPath]domain.SourceSet

// Registry maps each artifact to its contributor set.
//
// Readers see the state published by the last Commit. A pass stages its rebuild with
// ClearAll and Put, then publishes it with Commit or abandons it with Discard. Committed
// maps are never mutated after publication, so reads take no lock.
type Registry struct {
	current atomic.Pointer[committed]

	mu      sync.Mutex
	staging committed
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	empty := committed{}
	r.current.Store(&empty)
	return r
}

// Snapshot returns a copy of the committed contributors of artifact.
// Unknown artifacts yield an empty set.
func (r *Registry) Snapshot(artifact domain.ArtifactPath) domain.SourceSet {
	return (*r.current.Load())[artifact].Clone()
}

// Contributors reports the committed contributors of artifact and whether it has any.
func (r *Registry) Contributors(artifact domain.ArtifactPath) (domain.SourceSet, bool) {
	set, ok := (*r.current.Load())[artifact]
	if !ok || set.Len() == 0 {
		return domain.NewSourceSet(), false
	}
	return set.Clone(), true
}

// AllEntries returns every committed entry ordered by artifact path.
func (r *Registry) AllEntries() []domain.Entry {
	m := *r.current.Load()
	out := make([]domain.Entry, 0, len(m))
	for a, set := range m {
		out = append(out, domain.Entry{Artifact: a, Contributors: set.Clone()})
	}
	slices.SortFunc(out, func(a, b domain.Entry) int {
		return strings.Compare(string(a.Artifact), string(b.Artifact))
	})
	return out
}

// Len returns the number of committed entries.
func (r *Registry) Len() int {
	return len(*r.current.Load())
}

// ClearAll opens a fresh, empty staged rebuild, dropping anything staged before.
// The committed state stays readable until Commit.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staging = committed{}
}

// Put stages contributors for artifact, replacing any association staged earlier in the
// same rebuild. It opens a rebuild if none is open.
func (r *Registry) Put(artifact domain.ArtifactPath, contributors domain.SourceSet) {
	set := contributors.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staging == nil {
		r.staging = committed{}
	}
	r.staging[artifact] = set
}

// Staging reports whether a rebuild is open.
func (r *Registry) Staging() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.staging != nil
}

// Commit publishes the staged rebuild and returns the number of committed entries.
// Entries with no contributors are dropped. Without an open rebuild Commit keeps the
// current state.
func (r *Registry) Commit() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staging == nil {
		return r.Len()
	}

	next := make(committed, len(r.staging))
	for a, set := range r.staging {
		if set.Len() == 0 {
			continue
		}
		next[a] = set
	}
	r.staging = nil
	r.current.Store(&next)
	return len(next)
}

// Discard abandons the staged rebuild. The committed state is left untouched.
func (r *Registry) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staging = nil
}
