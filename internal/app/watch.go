package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/derive/internal/adapters/cas"
	"go.trai.ch/derive/internal/adapters/metrics"
	"go.trai.ch/derive/internal/adapters/watcher"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	Verbose bool
	JSON    bool
}

// Watch runs a full pass, then one pass per debounced batch of source changes
// until ctx is canceled. Failed passes are logged and the next batch retries.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	s, err := a.open(opts.Verbose, opts.JSON)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if addr := s.cfg.Metrics.Addr; addr != "" && a.metrics != nil {
		srv, err := metrics.Listen(addr, a.metrics.Registry(),
			metrics.Route{Pattern: cas.ArtifactsPattern, Handler: cas.Handler(s.content)})
		if err != nil {
			return err
		}
		a.logger.Info("serving metrics on http://" + srv.Addr() + "/metrics")
		a.logger.Info("serving artifact content on http://" + srv.Addr() + "/artifacts/")
		g.Go(func() error { return srv.Serve(gctx) })
	}

	all, err := s.affected(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.runPass(ctx, all); err != nil {
		a.logger.Error(err)
	}

	w, err := a.newWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	if err := w.Start(gctx, s.resolver.Dirs()); err != nil {
		return errors.Join(domain.ErrWatcherFailed, err)
	}
	a.logger.Info("watching for changes...")

	var (
		mu     sync.Mutex
		queued = domain.NewSourceSet()
		wake   = make(chan struct{}, 1)
	)
	deb := watcher.NewDebouncer(s.cfg.Watch.Debounce, func(units []string) {
		mu.Lock()
		for _, u := range units {
			queued.Add(domain.NewSourceUnit(u))
		}
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer deb.Stop()

	g.Go(func() error {
		for ev := range w.Events() {
			if unit, ok := s.watchedUnit(ev.Path); ok {
				deb.Add(unit)
			}
		}
		return nil
	})

	loopErr := s.loop(gctx, wake, func() domain.SourceSet {
		mu.Lock()
		defer mu.Unlock()
		batch := queued
		queued = domain.NewSourceSet()
		return batch
	})

	cancel()
	_ = w.Stop()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return loopErr
}

// loop runs one pass per wake-up until ctx is done. Batches that arrive while a
// pass runs are merged and picked up by the next iteration.
func (s *session) loop(ctx context.Context, wake <-chan struct{}, take func() domain.SourceSet) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
			batch := take()
			if batch.Len() == 0 {
				continue
			}
			if err := s.runPass(ctx, batch); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.app.logger.Error(err)
			}
		}
	}
}

// watchedUnit maps a changed path to its unit identity. Paths under the output
// root or the derive state directory, and files the resolver would not pick up,
// are ignored.
func (s *session) watchedUnit(path string) (string, bool) {
	for _, dir := range []string{s.cfg.Output.Dir, filepath.Join(s.cfg.Root, domain.DeriveDirName)} {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return "", false
		}
	}
	if !s.resolver.Matches(path) {
		return "", false
	}
	unit, err := s.resolver.UnitPath(path)
	if err != nil {
		s.app.logger.Warn(zerr.With(err, "path", path).Error())
		return "", false
	}
	return unit, true
}
