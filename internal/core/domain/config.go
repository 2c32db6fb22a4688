package domain

import "time"

// Config is the resolved project configuration. All paths are absolute.
type Config struct {
	// Path is the config file the values were read from.
	Path string
	// Root is the project root; source unit identities are relative to it.
	Root string

	Sources SourcesConfig
	Output  OutputConfig
	Backend BackendConfig

	// Parallelism bounds concurrent per-artifact reconciliation. Always >= 1 once loaded.
	Parallelism int

	Watch   WatchConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// SourcesConfig selects the source units handed to the backend.
type SourcesConfig struct {
	// Dirs are walked recursively.
	Dirs []string
	// Include patterns are matched against file base names. Empty means every file.
	Include []string
	// Ignore names are skipped while walking.
	Ignore []string
}

// OutputConfig describes the artifact root.
type OutputConfig struct {
	Dir string
	// Enabled is false when the project has no linked output root; passes are then skipped.
	Enabled bool
	// PruneEmptyDirs removes containers left empty by orphan collection.
	PruneEmptyDirs bool
}

// BackendConfig describes the command backend.
type BackendConfig struct {
	Command []string
	Env     map[string]string
}

// WatchConfig configures the watch trigger.
type WatchConfig struct {
	Debounce time.Duration
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Addr string
}

// LogConfig configures the logger.
type LogConfig struct {
	JSON bool
}
