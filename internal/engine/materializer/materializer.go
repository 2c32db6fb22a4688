// Package materializer makes sure every artifact exists in storage before it is touched.
package materializer

import (
	"context"
	"errors"
	"path/filepath"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/zerr"
)

// Handle locates a materialized artifact in storage.
type Handle struct {
	Artifact domain.ArtifactPath
	Path     string
}

// Result describes what Materialize had to create.
type Result struct {
	// Created is true when the artifact file did not exist before.
	Created bool
	// Containers is the number of directories created on the way.
	Containers int
	// Paths are the containers and the file this call created, in creation order.
	// They are set even when Materialize fails partway.
	Paths []string
}

// Materializer creates artifact files and their parent containers under an output root.
type Materializer struct {
	storage ports.Storage
	root    string
}

// New creates a Materializer rooted at root.
func New(storage ports.Storage, root string) *Materializer {
	return &Materializer{storage: storage, root: filepath.Clean(root)}
}

// Root returns the output root.
func (m *Materializer) Root() string {
	return m.root
}

// Path returns the storage path of an artifact.
func (m *Materializer) Path(artifact domain.ArtifactPath) string {
	return filepath.Join(m.root, filepath.FromSlash(string(artifact)))
}

// Materialize ensures the artifact file and all of its parent containers exist.
// It is idempotent and safe to call concurrently for artifacts sharing parents.
func (m *Materializer) Materialize(ctx context.Context, artifact domain.ArtifactPath) (Handle, Result, error) {
	var res Result
	if err := artifact.Validate(); err != nil {
		return Handle{}, res, zerr.With(zerr.Wrap(err, "cannot materialize artifact"), "artifact", artifact.String())
	}

	h := Handle{Artifact: artifact, Path: m.Path(artifact)}

	// Walk up until an existing container is found, remembering what is missing.
	var missing []string
	for dir := filepath.Dir(h.Path); ; dir = filepath.Dir(dir) {
		ok, err := m.storage.ContainerExists(ctx, dir)
		if err != nil {
			return h, res, containerError(err, dir)
		}
		if ok {
			break
		}
		missing = append(missing, dir)
		if filepath.Dir(dir) == dir {
			break
		}
	}

	// Create parents first.
	for i := len(missing) - 1; i >= 0; i-- {
		if err := m.storage.CreateContainer(ctx, missing[i]); err != nil {
			return h, res, containerError(err, missing[i])
		}
		res.Containers++
		res.Paths = append(res.Paths, missing[i])
	}

	created, err := m.storage.CreateFile(ctx, h.Path)
	if err != nil {
		return h, res, errors.Join(domain.ErrFileCreateFailed, zerr.With(err, "path", h.Path))
	}
	res.Created = created
	if created {
		res.Paths = append(res.Paths, h.Path)
	}
	return h, res, nil
}

// Touch marks a materialized artifact as modified without rewriting it.
func (m *Materializer) Touch(ctx context.Context, h Handle) error {
	if err := m.storage.Touch(ctx, h.Path); err != nil {
		return errors.Join(domain.ErrTouchFailed, zerr.With(err, "path", h.Path))
	}
	return nil
}

func containerError(err error, dir string) error {
	return errors.Join(domain.ErrContainerCreateFailed, zerr.With(err, "path", dir))
}
