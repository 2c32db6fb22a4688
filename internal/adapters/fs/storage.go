package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
)

var _ ports.Storage = (*Storage)(nil)

// Storage implements ports.Storage on the local file system.
type Storage struct {
	now func() time.Time
}

// NewStorage creates a new Storage.
func NewStorage() *Storage {
	return &Storage{now: time.Now}
}

// ContainerExists implements ports.Storage.
func (s *Storage) ContainerExists(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// CreateContainer implements ports.Storage.
func (s *Storage) CreateContainer(_ context.Context, path string) error {
	err := os.Mkdir(path, domain.DirPerm)
	if errors.Is(err, fs.ErrExist) {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			return nil
		}
	}
	return err
}

// FileExists implements ports.Storage.
func (s *Storage) FileExists(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// CreateFile implements ports.Storage.
func (s *Storage) CreateFile(_ context.Context, path string) (bool, error) {
	//nolint:gosec // artifact paths are validated against the output root
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, domain.FilePerm)
	if errors.Is(err, fs.ErrExist) {
		info, statErr := os.Stat(path)
		if statErr == nil && info.Mode().IsRegular() {
			return false, nil
		}
		return false, err
	}
	if err != nil {
		return false, err
	}
	return true, f.Close()
}

// Touch implements ports.Storage.
func (s *Storage) Touch(_ context.Context, path string) error {
	now := s.now()
	return os.Chtimes(path, now, now)
}

// Delete implements ports.Storage.
func (s *Storage) Delete(_ context.Context, path string) error {
	return os.Remove(path)
}

// ListChildren implements ports.Storage.
func (s *Storage) ListChildren(_ context.Context, path string) ([]ports.Child, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	children := make([]ports.Child, len(entries))
	for i, e := range entries {
		children[i] = ports.Child{Name: e.Name(), IsContainer: e.IsDir()}
	}
	return children, nil
}
