package ports

import "context"

// Child is a single entry returned by Storage.ListChildren.
type Child struct {
	// Name is the base name of the entry.
	Name string
	// IsContainer reports whether the entry is a directory.
	IsContainer bool
}

// Storage is the hierarchical store that artifacts are materialized into.
//
// Paths are host paths. Creation operations tolerate concurrent creation of the same path.
//
//go:generate go run go.uber.org/mock/mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks
type Storage interface {
	// ContainerExists reports whether a directory exists at path.
	ContainerExists(ctx context.Context, path string) (bool, error)
	// CreateContainer creates a single directory. Its parent must exist.
	// It succeeds if the directory already exists.
	CreateContainer(ctx context.Context, path string) error
	// FileExists reports whether a regular file exists at path.
	FileExists(ctx context.Context, path string) (bool, error)
	// CreateFile creates an empty file if none exists and reports whether it did.
	CreateFile(ctx context.Context, path string) (bool, error)
	// Touch updates the modification time of path without changing its content.
	Touch(ctx context.Context, path string) error
	// Delete removes a file or an empty directory.
	Delete(ctx context.Context, path string) error
	// ListChildren returns the direct children of the directory at path.
	ListChildren(ctx context.Context, path string) ([]Child, error)
}
