package ports

import "go.trai.ch/derive/internal/core/domain"

// ContentStore keeps the bytes the backend produced for each artifact.
//
// It follows the same staged discipline as the artifact registry: Begin opens an empty
// staged index, Stage records content for the pass in progress, Commit publishes the staged
// index, Discard drops it.
//
//go:generate go run go.uber.org/mock/mockgen -source=content_store.go -destination=mocks/mock_content_store.go -package=mocks
type ContentStore interface {
	// Begin opens an empty staged index. Artifacts not staged before Commit leave the index.
	Begin()
	// Stage stores content for the artifact and returns its digest.
	Stage(artifact domain.ArtifactPath, content []byte) (string, error)
	// Commit publishes the staged index and releases content nothing references anymore.
	// The index is published even when releasing fails.
	Commit() error
	// Discard drops everything staged since the last Commit or Discard.
	Discard()
	// Get returns the committed content of an artifact.
	Get(artifact domain.ArtifactPath) ([]byte, bool, error)
}
