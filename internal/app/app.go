// Package app implements the application layer for derive.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/derive/internal/adapters/backend"
	"go.trai.ch/derive/internal/adapters/cas"
	"go.trai.ch/derive/internal/adapters/fs"
	"go.trai.ch/derive/internal/adapters/metrics"
	"go.trai.ch/derive/internal/adapters/report"
	"go.trai.ch/derive/internal/adapters/telemetry"
	"go.trai.ch/derive/internal/adapters/watcher"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/derive/internal/engine/pass"
	"go.trai.ch/derive/internal/engine/registry"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	storage      ports.Storage
	walker       *fs.Walker
	registry     *registry.Registry
	metrics      *metrics.PrometheusRecorder
	newWatcher   watcher.Factory
	logger       ports.Logger

	out     io.Writer
	backend ports.Backend

	mu      sync.Mutex
	content *cas.Store
}

// New creates a new App instance. A nil rec disables metrics.
func New(
	loader ports.ConfigLoader,
	storage ports.Storage,
	walker *fs.Walker,
	reg *registry.Registry,
	rec *metrics.PrometheusRecorder,
	newWatcher watcher.Factory,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		storage:      storage,
		walker:       walker,
		registry:     reg,
		metrics:      rec,
		newWatcher:   newWatcher,
		logger:       log,
		out:          os.Stdout,
	}
}

// WithOutput redirects pass reports.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// WithBackend replaces the configured command backend. Used by tests.
func (a *App) WithBackend(b ports.Backend) *App {
	a.backend = b
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// Affected are the changed source files. Empty means every source unit is affected.
	Affected []string
	// Verbose logs phase timings.
	Verbose bool
	// JSON switches the logger to JSON output.
	JSON bool
}

// Run executes one build pass.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	s, err := a.open(opts.Verbose, opts.JSON)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	affected, err := s.affected(ctx, opts.Affected)
	if err != nil {
		return err
	}

	return s.runPass(ctx, affected)
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// KeepStore leaves the content store in place.
	KeepStore bool
}

// Clean removes every artifact and the content store, and forgets all registry entries.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error
	remove := func(path, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "failed to remove "+name), "path", path))
			return
		}
		a.logger.Info("removed " + name)
	}

	remove(cfg.Output.Dir, "artifacts")
	if !options.KeepStore {
		remove(domain.DefaultStorePath(cfg.Root), "content store")
	}

	a.registry.ClearAll()
	a.registry.Commit()
	a.mu.Lock()
	if a.content != nil {
		a.content.Reset()
	}
	a.mu.Unlock()

	if errs != nil {
		return errors.Join(domain.ErrCleanFailed, errs)
	}
	return nil
}

// session is everything built from one loaded configuration.
type session struct {
	app      *App
	cfg      *domain.Config
	content  *cas.Store
	resolver *fs.Resolver
	runner   *pass.Runner
	renderer *report.Renderer
	tp       *sdktrace.TracerProvider
}

func (a *App) open(verbose, jsonLogs bool) (*session, error) {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok && (jsonLogs || cfg.Log.JSON) {
		l.SetJSON(true)
	}

	resolver := fs.NewResolver(a.walker, cfg.Root, cfg.Sources)

	be := a.backend
	if be == nil {
		be = backend.NewCommand(cfg.Backend, cfg.Root, a.logger)
	}

	var rec ports.Metrics = metrics.NoopRecorder{}
	if a.metrics != nil {
		rec = a.metrics
	}

	tp := setupOTel(a.logger, verbose)
	tracer := telemetry.NewOTelTracer(tp, "derive")

	content := a.contentStore(domain.DefaultStorePath(cfg.Root))
	runner := pass.NewRunner(
		be,
		resolver,
		a.storage,
		content,
		a.registry,
		tracer,
		rec,
		a.logger,
		pass.Options{
			OutputRoot:  cfg.Output.Dir,
			Enabled:     cfg.Output.Enabled,
			Parallelism: cfg.Parallelism,
			PruneEmpty:  cfg.Output.PruneEmptyDirs,
		},
	)

	return &session{
		app:      a,
		cfg:      cfg,
		content:  content,
		resolver: resolver,
		runner:   runner,
		renderer: report.NewRenderer(a.out),
		tp:       tp,
	}, nil
}

// contentStore returns the store for dir. Its index lives as long as the App, like the registry.
func (a *App) contentStore(dir string) *cas.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.content == nil || a.content.Dir() != filepath.Clean(dir) {
		a.content = cas.NewStore(dir)
	}
	return a.content
}

func (s *session) close(ctx context.Context) {
	_ = s.tp.Shutdown(context.WithoutCancel(ctx))
}

// affected converts file paths into source units. Without paths every resolved unit is affected.
func (s *session) affected(ctx context.Context, paths []string) (domain.SourceSet, error) {
	if len(paths) == 0 {
		units, err := s.resolver.Resolve(ctx)
		if err != nil {
			return nil, errors.Join(domain.ErrSourceResolutionFailed, err)
		}
		return domain.NewSourceSet(units...), nil
	}

	set := domain.NewSourceSet()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "invalid affected path"), "path", p)
		}
		unit, err := s.resolver.UnitPath(abs)
		if err != nil {
			return nil, err
		}
		set.Add(domain.NewSourceUnit(unit))
	}
	return set, nil
}

func (s *session) runPass(ctx context.Context, affected domain.SourceSet) error {
	rep, err := s.runner.RunPass(ctx, affected)
	if err != nil {
		return errors.Join(domain.ErrBuildPassFailed, err)
	}
	if err := s.renderer.Render(rep); err != nil {
		return zerr.Wrap(err, "failed to write pass report")
	}
	return nil
}

// setupOTel creates the tracer provider for a session. Verbose sessions log
// every finished span through the telemetry bridge.
func setupOTel(log ports.Logger, verbose bool) *sdktrace.TracerProvider {
	var opts []sdktrace.TracerProviderOption
	if verbose {
		opts = append(opts, sdktrace.WithSpanProcessor(telemetry.NewBridge(log)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}
