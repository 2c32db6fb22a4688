// Package cas implements a content addressable store for artifact bytes.
package cas

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ContentStore = (*Store)(nil)

const blobExt = ".bin"

// Store implements ports.ContentStore. Blobs are written once under their xxhash digest;
// the artifact to digest index is staged and committed together with the registry.
type Store struct {
	dir string

	mu        sync.RWMutex
	committed map[domain.ArtifactPath]string
	staged    map[domain.ArtifactPath]string
	written   map[string]struct{}
}

// NewStore creates a Store writing blobs into dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:       filepath.Clean(dir),
		committed: make(map[domain.ArtifactPath]string),
		written:   make(map[string]struct{}),
	}
}

// Digest returns the content address of data.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Dir returns the blob directory.
func (s *Store) Dir() string {
	return s.dir
}

// Stage implements ports.ContentStore.
func (s *Store) Stage(artifact domain.ArtifactPath, content []byte) (string, error) {
	digest := Digest(content)
	if err := s.writeBlob(digest, content); err != nil {
		return "", errors.Join(domain.ErrContentStoreWriteFailed,
			zerr.With(zerr.With(err, "artifact", artifact.String()), "digest", digest))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		s.staged = make(map[domain.ArtifactPath]string)
	}
	s.staged[artifact] = digest
	return digest, nil
}

// Begin implements ports.ContentStore.
func (s *Store) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = make(map[domain.ArtifactPath]string)
}

// Commit implements ports.ContentStore. Blobs no committed artifact references are removed.
// Without an open staged index the committed index is kept.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return nil
	}
	s.committed = s.staged
	s.staged = nil
	return s.prune()
}

// Reset forgets the committed index and every blob this store knows about.
// It is used after the blob directory was removed from under the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = make(map[domain.ArtifactPath]string)
	s.staged = nil
	s.written = make(map[string]struct{})
}

// Discard implements ports.ContentStore.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
}

// Get implements ports.ContentStore.
func (s *Store) Get(artifact domain.ArtifactPath) ([]byte, bool, error) {
	data, _, ok, err := s.lookup(artifact)
	return data, ok, err
}

func (s *Store) lookup(artifact domain.ArtifactPath) ([]byte, string, bool, error) {
	s.mu.RLock()
	digest, ok := s.committed[artifact]
	s.mu.RUnlock()
	if !ok {
		return nil, "", false, nil
	}

	//nolint:gosec // digest is produced by this store
	data, err := os.ReadFile(s.blobPath(digest))
	if err != nil {
		return nil, "", false, errors.Join(domain.ErrContentStoreReadFailed,
			zerr.With(zerr.With(err, "artifact", artifact.String()), "digest", digest))
	}
	return data, digest, true, nil
}

// DigestOf returns the committed digest of an artifact.
func (s *Store) DigestOf(artifact domain.ArtifactPath) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.committed[artifact]
	return d, ok
}

// prune removes blobs the committed index does not reference. Callers hold s.mu.
func (s *Store) prune() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Join(domain.ErrContentStorePruneFailed, zerr.With(err, "path", s.dir))
	}

	live := make(map[string]struct{}, len(s.committed))
	for _, d := range s.committed {
		live[d] = struct{}{}
	}

	var errs []error
	for _, e := range entries {
		digest, ok := strings.CutSuffix(e.Name(), blobExt)
		if !ok || e.IsDir() {
			continue
		}
		if _, ok := live[digest]; ok {
			continue
		}
		path := s.blobPath(digest)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, zerr.With(err, "path", path))
			continue
		}
		delete(s.written, digest)
	}
	if len(errs) > 0 {
		return errors.Join(domain.ErrContentStorePruneFailed, errors.Join(errs...))
	}
	return nil
}

func (s *Store) blobPath(digest string) string {
	return filepath.Join(s.dir, digest+blobExt)
}

func (s *Store) writeBlob(digest string, content []byte) error {
	s.mu.RLock()
	_, done := s.written[digest]
	s.mu.RUnlock()
	if done {
		return nil
	}

	path := s.blobPath(digest)
	if _, err := os.Stat(path); err == nil {
		s.markWritten(digest)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create content store directory")
	}

	tmp, err := os.CreateTemp(s.dir, digest+".*.tmp")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary blob")
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to write blob")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to close blob")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to publish blob")
	}

	s.markWritten(digest)
	return nil
}

func (s *Store) markWritten(digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[digest] = struct{}{}
}
