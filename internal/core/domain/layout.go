package domain

import "path/filepath"

const (
	// DeriveDirName is the name of the internal state directory.
	DeriveDirName = ".derive"

	// StoreDirName is the name of the content addressable store directory.
	StoreDirName = "store"

	// OutDirName is the default name of the artifact output directory.
	OutDirName = "out"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "derive.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultOutputDir returns the default artifact root relative to the project root.
func DefaultOutputDir() string {
	return filepath.Join(DeriveDirName, OutDirName)
}

// DefaultStorePath returns the content store directory under root.
func DefaultStorePath(root string) string {
	return filepath.Join(root, DeriveDirName, StoreDirName)
}
