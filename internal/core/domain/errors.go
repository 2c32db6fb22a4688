package domain

import "go.trai.ch/zerr"

var (
	// ErrPassInProgress is returned when a pass is triggered while another one has not returned to Idle.
	ErrPassInProgress = zerr.New("build pass already in progress")

	// ErrSourceResolutionFailed is returned when the set of source units cannot be resolved.
	ErrSourceResolutionFailed = zerr.New("failed to resolve source units")

	// ErrBackendFailed is returned when the compiler backend itself fails to run.
	ErrBackendFailed = zerr.New("compiler backend failed")

	// ErrBackendProtocol is returned when the backend emits output that cannot be decoded.
	ErrBackendProtocol = zerr.New("malformed backend output")

	// ErrCompilationUnitFailed marks a single source unit that failed to compile.
	// Unit failures are reported but never abort a pass.
	ErrCompilationUnitFailed = zerr.New("source unit failed to compile")

	// ErrUnknownContributor is returned when an artifact names a contributor that is not a resolved source unit.
	ErrUnknownContributor = zerr.New("artifact contributor is not a known source unit")

	// ErrArtifactOutsideRoot is returned when an artifact path is absolute or escapes the output root.
	ErrArtifactOutsideRoot = zerr.New("artifact path is outside the output root")

	// ErrEmptyArtifactPath is returned when the backend produces an artifact without a path.
	ErrEmptyArtifactPath = zerr.New("artifact path is empty")

	// ErrContainerCreateFailed is returned when a parent directory of an artifact cannot be created.
	ErrContainerCreateFailed = zerr.New("failed to create artifact container")

	// ErrFileCreateFailed is returned when the backing file of an artifact cannot be created.
	ErrFileCreateFailed = zerr.New("failed to create artifact file")

	// ErrTouchFailed is returned when the modification time of an artifact cannot be updated.
	ErrTouchFailed = zerr.New("failed to touch artifact")

	// ErrDeleteFailed is returned when an orphaned artifact cannot be deleted.
	ErrDeleteFailed = zerr.New("failed to delete orphaned artifact")

	// ErrPruneFailed is returned when a container left empty by orphan collection cannot be removed.
	ErrPruneFailed = zerr.New("failed to remove empty container")

	// ErrRollbackFailed is returned when a path created by an abandoned pass cannot be removed.
	ErrRollbackFailed = zerr.New("failed to roll back created path")

	// ErrListFailed is returned when the children of a container cannot be listed.
	ErrListFailed = zerr.New("failed to list container")

	// ErrContentStoreWriteFailed is returned when artifact content cannot be written to the store.
	ErrContentStoreWriteFailed = zerr.New("failed to write artifact content")

	// ErrContentStoreReadFailed is returned when artifact content cannot be read from the store.
	ErrContentStoreReadFailed = zerr.New("failed to read artifact content")

	// ErrContentStorePruneFailed is returned when unreferenced blobs cannot be removed from the store.
	ErrContentStorePruneFailed = zerr.New("failed to prune artifact content")

	// ErrConfigNotFound is returned when no derive.yaml can be found.
	ErrConfigNotFound = zerr.New("could not find derive.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a config value is out of range or inconsistent.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrWatcherFailed is returned when the file watcher cannot be started.
	ErrWatcherFailed = zerr.New("failed to start file watcher")

	// ErrMetricsListenFailed is returned when the metrics endpoint cannot bind its address.
	ErrMetricsListenFailed = zerr.New("failed to listen for metrics")

	// ErrBuildPassFailed is returned by the application when a pass was abandoned.
	ErrBuildPassFailed = zerr.New("build pass failed")

	// ErrCleanFailed is returned when derived state cannot be removed.
	ErrCleanFailed = zerr.New("failed to clean derived state")
)
