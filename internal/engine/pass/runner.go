// Package pass runs build passes: compile, reconcile, commit and collect orphans.
package pass

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/derive/internal/engine/collector"
	"go.trai.ch/derive/internal/engine/invalidation"
	"go.trai.ch/derive/internal/engine/materializer"
	"go.trai.ch/derive/internal/engine/registry"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Phase names used for spans and metrics.
const (
	PhaseCompile   = "compile"
	PhaseReconcile = "reconcile"
	PhaseCommit    = "commit"
	PhaseCollect   = "collect"
)

// Options configures a Runner.
type Options struct {
	// OutputRoot is the directory artifacts are materialized into.
	OutputRoot string
	// Enabled is false when the project has no output root; passes are then skipped.
	Enabled bool
	// Parallelism bounds concurrent reconciliation. Values below 1 mean runtime.NumCPU().
	Parallelism int
	// PruneEmpty removes containers left empty by orphan collection.
	PruneEmpty bool
}

// Runner drives the pass state machine. At most one pass runs at a time.
type Runner struct {
	backend      ports.Backend
	resolver     ports.SourceResolver
	storage      ports.Storage
	content      ports.ContentStore
	registry     *registry.Registry
	materializer *materializer.Materializer
	collector    *collector.Collector
	tracer       ports.Tracer
	metrics      ports.Metrics
	logger       ports.Logger
	opts         Options

	state  atomic.Uint32
	passes atomic.Uint64
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(
	backend ports.Backend,
	resolver ports.SourceResolver,
	storage ports.Storage,
	content ports.ContentStore,
	reg *registry.Registry,
	tracer ports.Tracer,
	metrics ports.Metrics,
	logger ports.Logger,
	opts Options,
) *Runner {
	if opts.Parallelism < 1 {
		opts.Parallelism = runtime.NumCPU()
	}
	return &Runner{
		backend:      backend,
		resolver:     resolver,
		storage:      storage,
		content:      content,
		registry:     reg,
		materializer: materializer.New(storage, opts.OutputRoot),
		collector:    collector.New(storage, reg, logger, opts.PruneEmpty),
		tracer:       tracer,
		metrics:      metrics,
		logger:       logger,
		opts:         opts,
	}
}

// State returns the current pass state.
func (r *Runner) State() domain.PassState {
	return domain.PassState(r.state.Load())
}

// Registry returns the artifact registry the runner maintains.
func (r *Runner) Registry() *registry.Registry {
	return r.registry
}

// RunPass runs one build pass for the given affected set.
//
// It returns domain.ErrPassInProgress if another pass has not finished. If the pass fails
// before its commit, the registry and content index are left exactly as they were and the
// files and containers the pass created are removed again.
func (r *Runner) RunPass(ctx context.Context, affected domain.SourceSet) (*domain.PassReport, error) {
	if !r.state.CompareAndSwap(uint32(domain.PassIdle), uint32(domain.PassCompiling)) {
		return nil, zerr.With(zerr.Wrap(domain.ErrPassInProgress, "cannot start pass"), "state", r.State().String())
	}
	defer r.state.Store(uint32(domain.PassIdle))

	start := time.Now()
	report := &domain.PassReport{
		ID:        r.passes.Add(1),
		StartedAt: start,
		Affected:  affected.Sorted(),
	}

	ctx, span := r.tracer.Start(ctx, "pass", ports.WithRoot())
	defer span.End()
	span.SetAttribute("pass.id", int64(report.ID))
	span.SetAttribute("pass.affected", affected.Len())

	if !r.opts.Enabled {
		report.Skipped = true
		report.Entries = r.registry.Len()
		r.logger.Info("output root is disabled, skipping pass")
		report.Duration = time.Since(start)
		r.metrics.ObservePass(domain.PassOutcomeSkipped, report.Duration)
		return report, nil
	}

	if err := r.run(ctx, affected, report); err != nil {
		span.RecordError(err)
		r.metrics.ObservePass(domain.PassOutcomeFailed, time.Since(start))
		return nil, err
	}

	report.Duration = time.Since(start)
	r.metrics.ObservePass(report.Outcome(), report.Duration)
	return report, nil
}

func (r *Runner) run(ctx context.Context, affected domain.SourceSet, report *domain.PassReport) error {
	var outputs []domain.Output
	err := r.phase(ctx, PhaseCompile, func(ctx context.Context) error {
		var err error
		outputs, err = r.compile(ctx, report)
		return err
	})
	if err != nil {
		return err
	}

	r.state.Store(uint32(domain.PassReconciling))
	created := &createdPaths{}
	err = r.phase(ctx, PhaseReconcile, func(ctx context.Context) error {
		return r.reconcile(ctx, outputs, affected, report, created)
	})
	if err != nil {
		r.registry.Discard()
		r.content.Discard()
		r.rollback(ctx, created)
		return err
	}

	// The registry commit cannot fail; a content store that cannot release old blobs
	// does not undo it.
	err = r.phase(ctx, PhaseCommit, func(context.Context) error {
		report.Entries = r.registry.Commit()
		r.metrics.SetRegistryEntries(report.Entries)
		return r.content.Commit()
	})
	if err != nil {
		r.logger.Error(err)
	}

	r.state.Store(uint32(domain.PassCollectingOrphans))
	return r.phase(ctx, PhaseCollect, func(ctx context.Context) error {
		res, err := r.collector.Collect(ctx, r.opts.OutputRoot)
		report.Deleted = sortedPaths(res.Deleted)
		report.DeleteFailures = sortedPaths(res.Failed)
		r.metrics.AddArtifacts(domain.ArtifactDeleted, len(res.Deleted))
		r.metrics.AddArtifacts(domain.ArtifactDeleteFailed, len(res.Failed))
		return err
	})
}

// phase runs fn inside a child span and records its duration.
func (r *Runner) phase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
	}
	r.metrics.ObservePhase(name, time.Since(start))
	return err
}

func (r *Runner) compile(ctx context.Context, report *domain.PassReport) ([]domain.Output, error) {
	units, err := r.resolver.Resolve(ctx)
	if err != nil {
		return nil, errors.Join(domain.ErrSourceResolutionFailed, err)
	}
	report.Sources = len(units)

	result, err := r.backend.Compile(ctx, units)
	if err != nil {
		if errors.Is(err, domain.ErrBackendFailed) || errors.Is(err, domain.ErrBackendProtocol) {
			return nil, err
		}
		return nil, errors.Join(domain.ErrBackendFailed, err)
	}
	if result == nil {
		result = &domain.CompileResult{}
	}

	for _, f := range result.Failures {
		r.logger.Warn(fmt.Sprintf("%s: %s: %s", domain.ErrCompilationUnitFailed.Error(), f.Unit, f.Message))
	}
	report.Failures = slices.Clone(result.Failures)
	r.metrics.AddUnitFailures(len(result.Failures))

	return r.validate(result.Outputs, domain.NewSourceSet(units...))
}

// validate rejects outputs that would break registry invariants and merges duplicates.
// It runs before anything is mutated.
func (r *Runner) validate(outputs []domain.Output, known domain.SourceSet) ([]domain.Output, error) {
	merged := make(map[domain.ArtifactPath]domain.Output, len(outputs))
	for _, out := range outputs {
		if err := out.Path.Validate(); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "backend output rejected"), "artifact", out.Path.String())
		}
		if out.Contributors.Len() == 0 {
			r.logger.Warn(fmt.Sprintf("artifact %s has no contributors, ignoring it", out.Path))
			continue
		}
		for _, u := range out.Contributors.Sorted() {
			if !known.Has(u) {
				err := zerr.With(zerr.Wrap(domain.ErrUnknownContributor, "backend output rejected"),
					"artifact", out.Path.String())
				return nil, zerr.With(err, "contributor", u.String())
			}
		}

		if prev, ok := merged[out.Path]; ok {
			out.Contributors = prev.Contributors.Union(out.Contributors)
			if out.Content == nil {
				out.Content = prev.Content
			}
		}
		merged[out.Path] = out
	}

	result := make([]domain.Output, 0, len(merged))
	for _, out := range merged {
		result = append(result, out)
	}
	slices.SortFunc(result, func(a, b domain.Output) int {
		return strings.Compare(string(a.Path), string(b.Path))
	})
	return result, nil
}

func (r *Runner) reconcile(
	ctx context.Context,
	outputs []domain.Output,
	affected domain.SourceSet,
	report *domain.PassReport,
	created *createdPaths,
) error {
	// Artifacts the backend stopped producing. They are not staged, so the commit turns
	// them into orphans, but a changed former contributor still marks them first.
	produced := make(map[domain.ArtifactPath]struct{}, len(outputs))
	for _, out := range outputs {
		produced[out.Path] = struct{}{}
	}
	var dropped []domain.Entry
	for _, e := range r.registry.AllEntries() {
		if _, ok := produced[e.Artifact]; !ok {
			dropped = append(dropped, e)
		}
	}

	r.registry.ClearAll()
	r.content.Begin()

	actions := make([]string, len(outputs))
	retired := make([]bool, len(dropped))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)
	for i, out := range outputs {
		g.Go(func() error {
			action, err := r.reconcileOne(ctx, out, affected, created)
			actions[i] = action
			return err
		})
	}
	for i, e := range dropped {
		g.Go(func() error {
			touched, err := r.retireOne(ctx, e, affected)
			retired[i] = touched
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, out := range outputs {
		switch actions[i] {
		case domain.ArtifactCreated:
			report.Created = append(report.Created, out.Path)
		case domain.ArtifactTouched:
			report.Touched = append(report.Touched, out.Path)
		default:
			report.Unchanged = append(report.Unchanged, out.Path)
		}
	}
	for i, e := range dropped {
		if retired[i] {
			report.Touched = append(report.Touched, e.Artifact)
		}
	}
	slices.Sort(report.Touched)

	r.metrics.AddArtifacts(domain.ArtifactCreated, len(report.Created))
	r.metrics.AddArtifacts(domain.ArtifactTouched, len(report.Touched))
	r.metrics.AddArtifacts(domain.ArtifactUnchanged, len(report.Unchanged))
	return nil
}

// retireOne touches an artifact that lost all of its contributors when one of its former
// contributors is affected. It reports whether the artifact was touched.
// When existence cannot be determined the touch is attempted anyway.
func (r *Runner) retireOne(ctx context.Context, e domain.Entry, affected domain.SourceSet) (bool, error) {
	if !invalidation.MustTouch(e.Contributors, nil, affected) {
		return false, nil
	}
	h := materializer.Handle{Artifact: e.Artifact, Path: r.materializer.Path(e.Artifact)}
	ok, existsErr := r.storage.FileExists(ctx, h.Path)
	if existsErr == nil && !ok {
		return false, nil
	}
	if err := r.materializer.Touch(ctx, h); err != nil {
		if existsErr != nil {
			return false, errors.Join(err, zerr.With(existsErr, "path", h.Path))
		}
		return false, err
	}
	if existsErr != nil {
		r.logger.Warn(fmt.Sprintf("could not check %s before touching it: %v", h.Path, existsErr))
	}
	return true, nil
}

// reconcileOne brings a single artifact up to date and stages its new contributors.
// The previous contributors come from the committed state, which ClearAll does not hide.
func (r *Runner) reconcileOne(
	ctx context.Context,
	out domain.Output,
	affected domain.SourceSet,
	created *createdPaths,
) (string, error) {
	old := r.registry.Snapshot(out.Path)
	touch := invalidation.MustTouch(old, out.Contributors, affected)

	h, res, err := r.materializer.Materialize(ctx, out.Path)
	created.add(res.Paths...)
	if err != nil {
		return "", err
	}
	if touch {
		if err := r.materializer.Touch(ctx, h); err != nil {
			return "", err
		}
	}
	if out.Content != nil {
		if _, err := r.content.Stage(out.Path, out.Content); err != nil {
			return "", err
		}
	}
	r.registry.Put(out.Path, out.Contributors)

	switch {
	case res.Created:
		return domain.ArtifactCreated, nil
	case touch:
		return domain.ArtifactTouched, nil
	default:
		return domain.ArtifactUnchanged, nil
	}
}

func sortedPaths(paths []domain.ArtifactPath) []domain.ArtifactPath {
	out := slices.Clone(paths)
	slices.Sort(out)
	return out
}
