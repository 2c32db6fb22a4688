// Package config provides the configuration loader for derive.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// SupportedVersion is the only config schema version understood by this loader.
const SupportedVersion = "1"

// DefaultDebounce is the watch debounce window used when none is configured.
const DefaultDebounce = 50 * time.Millisecond

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds derive.yaml starting at cwd and walking up, and resolves it.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "cannot resolve working directory"), "cwd", cwd)
	}

	configPath, err := l.findConfiguration(abs)
	if err != nil {
		return nil, err
	}

	var file Derivefile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	return l.resolve(configPath, &file)
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "no configuration"), "cwd", cwd)
}

func (l *Loader) resolve(configPath string, file *Derivefile) (*domain.Config, error) {
	if file.Version != "" && file.Version != SupportedVersion {
		return nil, invalid("version", file.Version, "unsupported config version")
	}

	root := resolveRoot(configPath, file.Root)
	cfg := &domain.Config{
		Path: configPath,
		Root: root,
		Sources: domain.SourcesConfig{
			Dirs:    make([]string, 0, len(file.Sources.Dirs)),
			Include: file.Sources.Include,
			Ignore:  file.Sources.Ignore,
		},
		Output: domain.OutputConfig{
			Dir:            resolveDir(root, file.Output.Dir, domain.DefaultOutputDir()),
			Enabled:        boolOr(file.Output.Enabled, true),
			PruneEmptyDirs: boolOr(file.Output.PruneEmptyDirs, true),
		},
		Backend: domain.BackendConfig{
			Command: file.Backend.Command,
			Env:     file.Backend.Env,
		},
		Parallelism: file.Parallelism,
		Watch:       domain.WatchConfig{Debounce: DefaultDebounce},
		Metrics:     domain.MetricsConfig{Addr: file.Metrics.Addr},
		Log:         domain.LogConfig{JSON: file.Log.JSON},
	}

	for _, dir := range file.Sources.Dirs {
		if strings.TrimSpace(dir) == "" {
			return nil, invalid("sources.dirs", dir, "source directory must not be empty")
		}
		cfg.Sources.Dirs = append(cfg.Sources.Dirs, resolveDir(root, dir, "."))
	}
	if len(cfg.Sources.Dirs) == 0 {
		cfg.Sources.Dirs = append(cfg.Sources.Dirs, root)
	}

	for _, pattern := range slices.Concat(file.Sources.Include, file.Sources.Ignore) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, invalid("sources", pattern, "malformed pattern")
		}
	}

	if rel, err := filepath.Rel(root, cfg.Output.Dir); err == nil && rel == "." {
		return nil, invalid("output.dir", file.Output.Dir, "output directory must not be the project root")
	}
	for _, dir := range cfg.Sources.Dirs {
		if isWithin(cfg.Output.Dir, dir) {
			return nil, invalid("output.dir", file.Output.Dir, "output directory must not contain a source directory")
		}
	}

	if cfg.Output.Enabled && len(cfg.Backend.Command) == 0 {
		return nil, invalid("backend.command", "", "a backend command is required")
	}

	switch {
	case cfg.Parallelism < 0:
		return nil, invalid("parallelism", fmt.Sprint(cfg.Parallelism), "parallelism must not be negative")
	case cfg.Parallelism == 0:
		cfg.Parallelism = runtime.NumCPU()
	}

	if file.Watch.Debounce != "" {
		d, err := time.ParseDuration(file.Watch.Debounce)
		if err != nil || d < 0 {
			return nil, invalid("watch.debounce", file.Watch.Debounce, "debounce must be a non-negative duration")
		}
		cfg.Watch.Debounce = d
	}

	if !cfg.Output.Enabled && l.Logger != nil {
		l.Logger.Warn(fmt.Sprintf("output is disabled in %s, build passes will be skipped", configPath))
	}

	return cfg, nil
}

func invalid(field, value, reason string) error {
	err := zerr.With(zerr.Wrap(domain.ErrInvalidConfig, reason), "field", field)
	return zerr.With(err, "value", value)
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

func resolveDir(root, dir, fallback string) string {
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Clean(filepath.Join(root, dir))
}

// isWithin reports whether path is parent or a descendant of it.
func isWithin(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Join(domain.ErrConfigReadFailed, err)
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return errors.Join(domain.ErrConfigParseFailed, parseErr)
	}

	return nil
}
