package app_test

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/derive/internal/adapters/cas"
	"go.trai.ch/derive/internal/adapters/fs"
	"go.trai.ch/derive/internal/adapters/metrics"
	"go.trai.ch/derive/internal/app"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/derive/internal/core/ports/mocks"
	"go.trai.ch/derive/internal/engine/registry"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	root     string
	cfg      *domain.Config
	loader   *mocks.MockConfigLoader
	backend  *mocks.MockBackend
	watcher  *mocks.MockWatcher
	registry *registry.Registry
	out      *bytes.Buffer
	app      *app.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	t.Chdir(root)
	t.Setenv("NO_COLOR", "1")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o750))
	for _, name := range []string{"A.java", "B.java"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "src", name), []byte("class"), 0o600))
	}

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	f := &fixture{
		root: root,
		cfg: &domain.Config{
			Root:        root,
			Sources:     domain.SourcesConfig{Dirs: []string{filepath.Join(root, "src")}},
			Output:      domain.OutputConfig{Dir: filepath.Join(root, "out"), Enabled: true},
			Parallelism: 1,
			Watch:       domain.WatchConfig{Debounce: 10 * time.Millisecond},
		},
		loader:   mocks.NewMockConfigLoader(ctrl),
		backend:  mocks.NewMockBackend(ctrl),
		watcher:  mocks.NewMockWatcher(ctrl),
		registry: registry.New(),
		out:      &bytes.Buffer{},
	}
	f.loader.EXPECT().Load(".").Return(f.cfg, nil).AnyTimes()

	newWatcher := func() (ports.Watcher, error) { return f.watcher, nil }
	f.app = app.New(f.loader, fs.NewStorage(), fs.NewWalker(), f.registry,
		metrics.NewPrometheusRecorder(nil), newWatcher, log).
		WithOutput(f.out).
		WithBackend(f.backend)
	return f
}

func output(path string, units ...string) domain.Output {
	return domain.Output{
		Path:         domain.ArtifactPath(path),
		Contributors: domain.SourceSetOf(units...),
		Content:      []byte(path),
	}
}

func TestApp_Run_FirstPass(t *testing.T) {
	f := newFixture(t)
	f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&domain.CompileResult{
		Outputs: []domain.Output{output("X.class", "src/A.java"), output("Y.class", "src/B.java")},
	}, nil)

	require.NoError(t, f.app.Run(context.Background(), app.RunOptions{}))

	assert.FileExists(t, filepath.Join(f.root, "out", "X.class"))
	assert.FileExists(t, filepath.Join(f.root, "out", "Y.class"))
	assert.Equal(t, 2, f.registry.Len())
	assert.Contains(t, f.out.String(), "pass 1")
	assert.Contains(t, f.out.String(), "2 created")
}

func TestApp_Run_RemovesOrphan(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&domain.CompileResult{
			Outputs: []domain.Output{output("X.class", "src/A.java"), output("Y.class", "src/B.java")},
		}, nil),
		f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&domain.CompileResult{
			Outputs: []domain.Output{output("X.class", "src/A.java")},
		}, nil),
	)

	require.NoError(t, f.app.Run(context.Background(), app.RunOptions{}))
	require.NoError(t, os.Remove(filepath.Join(f.root, "src", "B.java")))

	require.NoError(t, f.app.Run(context.Background(), app.RunOptions{Affected: []string{"src/B.java"}}))

	assert.FileExists(t, filepath.Join(f.root, "out", "X.class"))
	assert.NoFileExists(t, filepath.Join(f.root, "out", "Y.class"))
	_, ok := f.registry.Contributors("Y.class")
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "- Y.class")
}

func TestApp_Run_ContentStoreFollowsRegistryAcrossRuns(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&domain.CompileResult{
			Outputs: []domain.Output{output("X.class", "src/A.java"), output("Y.class", "src/B.java")},
		}, nil),
		f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&domain.CompileResult{
			Outputs: []domain.Output{output("X.class", "src/A.java")},
		}, nil),
	)
	store := domain.DefaultStorePath(f.root)
	blob := func(content string) string { return filepath.Join(store, cas.Digest([]byte(content))+".bin") }

	require.NoError(t, f.app.Run(context.Background(), app.RunOptions{}))
	require.FileExists(t, blob("Y.class"))

	require.NoError(t, f.app.Run(context.Background(), app.RunOptions{}))
	assert.FileExists(t, blob("X.class"))
	assert.NoFileExists(t, blob("Y.class"))
}

func TestApp_Run_BackendFailureKeepsRegistry(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&domain.CompileResult{
			Outputs: []domain.Output{output("X.class", "src/A.java")},
		}, nil),
		f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")),
	)

	require.NoError(t, f.app.Run(context.Background(), app.RunOptions{}))
	before := f.registry.AllEntries()

	err := f.app.Run(context.Background(), app.RunOptions{})
	require.ErrorIs(t, err, domain.ErrBuildPassFailed)
	assert.Equal(t, before, f.registry.AllEntries())
	assert.FileExists(t, filepath.Join(f.root, "out", "X.class"))
}

func TestApp_Run_ConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	log := mocks.NewMockLogger(ctrl)
	loader.EXPECT().Load(".").Return(nil, domain.ErrConfigNotFound)

	a := app.New(loader, fs.NewStorage(), fs.NewWalker(), registry.New(), metrics.NewPrometheusRecorder(nil), nil, log)
	err := a.Run(context.Background(), app.RunOptions{})
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestApp_Clean(t *testing.T) {
	f := newFixture(t)
	f.backend.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&domain.CompileResult{
		Outputs: []domain.Output{output("X.class", "src/A.java")},
	}, nil)
	require.NoError(t, f.app.Run(context.Background(), app.RunOptions{}))
	require.DirExists(t, domain.DefaultStorePath(f.root))

	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{}))

	assert.NoDirExists(t, filepath.Join(f.root, "out"))
	assert.NoDirExists(t, domain.DefaultStorePath(f.root))
	assert.Equal(t, 0, f.registry.Len())
}

func TestApp_Clean_KeepStore(t *testing.T) {
	f := newFixture(t)
	store := domain.DefaultStorePath(f.root)
	require.NoError(t, os.MkdirAll(store, 0o750))

	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{KeepStore: true}))
	assert.DirExists(t, store)
}

func TestApp_Watch(t *testing.T) {
	f := newFixture(t)
	synctest.Test(t, func(t *testing.T) {
		stopped := make(chan struct{})
		var once sync.Once
		f.watcher.EXPECT().Start(gomock.Any(), []string{filepath.Join(f.root, "src")}).Return(nil)
		f.watcher.EXPECT().Stop().DoAndReturn(func() error {
			once.Do(func() { close(stopped) })
			return nil
		}).AnyTimes()
		f.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
			events := []ports.WatchEvent{
				{Path: filepath.Join(f.root, "out", "X.class"), Operation: ports.OpWrite},
				{Path: filepath.Join(f.root, "src", "A.java"), Operation: ports.OpWrite},
			}
			for _, ev := range events {
				if !yield(ev) {
					return
				}
			}
			<-stopped
		}))

		gomock.InOrder(
			f.backend.EXPECT().Compile(gomock.Any(), gomock.Len(2)).Return(&domain.CompileResult{
				Outputs: []domain.Output{output("X.class", "src/A.java")},
			}, nil),
			f.backend.EXPECT().Compile(gomock.Any(), gomock.Len(2)).Return(&domain.CompileResult{
				Outputs: []domain.Output{output("X.class", "src/A.java")},
			}, nil),
		)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- f.app.Watch(ctx, app.WatchOptions{}) }()

		time.Sleep(time.Second)
		synctest.Wait()
		cancel()

		require.NoError(t, <-done)
		assert.Contains(t, f.out.String(), "pass 1")
		assert.Contains(t, f.out.String(), "pass 2")
		assert.Contains(t, f.out.String(), "~ X.class")
	})
}
