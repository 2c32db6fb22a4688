package config

// Derivefile represents the structure of the derive.yaml configuration file.
type Derivefile struct {
	Version     string     `yaml:"version"`
	Root        string     `yaml:"root"`
	Sources     SourcesDTO `yaml:"sources"`
	Output      OutputDTO  `yaml:"output"`
	Backend     BackendDTO `yaml:"backend"`
	Parallelism int        `yaml:"parallelism"`
	Watch       WatchDTO   `yaml:"watch"`
	Metrics     MetricsDTO `yaml:"metrics"`
	Log         LogDTO     `yaml:"log"`
}

// SourcesDTO selects the source units.
type SourcesDTO struct {
	Dirs    []string `yaml:"dirs"`
	Include []string `yaml:"include"`
	Ignore  []string `yaml:"ignore"`
}

// OutputDTO describes the artifact root.
type OutputDTO struct {
	Dir            string `yaml:"dir"`
	Enabled        *bool  `yaml:"enabled"`
	PruneEmptyDirs *bool  `yaml:"prune_empty_dirs"`
}

// BackendDTO describes the compiler backend command.
type BackendDTO struct {
	Command []string          `yaml:"command"`
	Env     map[string]string `yaml:"env"`
}

// WatchDTO configures watch mode.
type WatchDTO struct {
	Debounce string `yaml:"debounce"`
}

// MetricsDTO configures the metrics endpoint.
type MetricsDTO struct {
	Addr string `yaml:"addr"`
}

// LogDTO configures logging.
type LogDTO struct {
	JSON bool `yaml:"json"`
}
