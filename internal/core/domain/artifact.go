package domain

import (
	"path"
	"strings"

	"go.trai.ch/zerr"
)

// ArtifactPath is the identity of a derived artifact: a clean, slash-separated path
// relative to the output root.
type ArtifactPath string

// NewArtifactPath normalizes raw into an ArtifactPath and rejects paths that would
// leave the output root.
func NewArtifactPath(raw string) (ArtifactPath, error) {
	if raw == "" {
		return "", ErrEmptyArtifactPath
	}
	p := ArtifactPath(path.Clean(strings.ReplaceAll(raw, "\\", "/")))
	if err := p.Validate(); err != nil {
		return "", zerr.With(zerr.Wrap(err, "invalid artifact path"), "artifact", raw)
	}
	return p, nil
}

// Validate checks that p is relative, clean and stays inside the output root.
func (p ArtifactPath) Validate() error {
	s := string(p)
	switch {
	case s == "" || s == ".":
		return ErrEmptyArtifactPath
	case strings.HasPrefix(s, "/"), s == "..", strings.HasPrefix(s, "../"), path.Clean(s) != s:
		return ErrArtifactOutsideRoot
	}
	return nil
}

// String returns the path.
func (p ArtifactPath) String() string { return string(p) }

// Output is one artifact produced by the backend in a pass.
type Output struct {
	// Path is the artifact identity.
	Path ArtifactPath
	// Contributors are the source units whose compilation produced the artifact.
	Contributors SourceSet
	// Content is the raw artifact bytes. It is stored, never interpreted.
	Content []byte
}

// UnitFailure records a source unit the backend could not compile.
type UnitFailure struct {
	Unit    SourceUnit
	Message string
}

// CompileResult is everything the backend returns for one pass.
type CompileResult struct {
	Outputs  []Output
	Failures []UnitFailure
}

// Entry pairs an artifact with the source units that currently produce it.
type Entry struct {
	Artifact     ArtifactPath
	Contributors SourceSet
}
