package watcher_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/derive/internal/adapters/watcher"
	"go.trai.ch/derive/internal/core/ports"
)

const eventTimeout = 5 * time.Second

func collect(w *watcher.Watcher) <-chan ports.WatchEvent {
	out := make(chan ports.WatchEvent, 100)
	go func() {
		defer close(out)
		for ev := range w.Events() {
			out <- ev
		}
	}()
	return out
}

// waitFor drains events until one for path arrives.
func waitFor(t *testing.T, events <-chan ports.WatchEvent, path string) ports.WatchEvent {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed before %s", path)
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			require.FailNow(t, "timed out waiting for event", path)
		}
	}
}

func TestWatcher_ReportsChangesBelowRoots(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0o750))

	w, err := watcher.NewWatcher(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, w.Start(t.Context(), []string{src, filepath.Join(root, "missing")}))
	events := collect(w)

	file := filepath.Join(src, "a.kt")
	require.NoError(t, os.WriteFile(file, []byte("fun a() {}"), 0o600))
	ev := waitFor(t, events, file)
	assert.Contains(t, []ports.WatchOp{ports.OpCreate, ports.OpWrite}, ev.Operation)

	// Directories created after Start are picked up.
	nested := filepath.Join(src, "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	waitFor(t, events, nested)

	nestedFile := filepath.Join(nested, "b.kt")
	require.Eventually(t, func() bool {
		return os.WriteFile(nestedFile, []byte("x"), 0o600) == nil
	}, eventTimeout, 10*time.Millisecond)
	waitFor(t, events, nestedFile)

	require.NoError(t, os.Remove(file))
	assert.Equal(t, ports.OpRemove, waitFor(t, events, file).Operation)
}

func TestWatcher_StopEndsEvents(t *testing.T) {
	w, err := watcher.NewWatcher(nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context(), []string{t.TempDir()}))

	events := collect(w)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop is idempotent")

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(eventTimeout):
		require.FailNow(t, "events did not close")
	}
}
