package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/derive/internal/adapters/fs"
)

func TestStorage_ContainerLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := fs.NewStorage()
	dir := filepath.Join(root, "pkg")

	ok, err := s.ContainerExists(ctx, dir)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CreateContainer(ctx, dir))
	require.NoError(t, s.CreateContainer(ctx, dir), "creating an existing container succeeds")

	ok, err = s.ContainerExists(ctx, dir)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Error(t, s.CreateContainer(ctx, filepath.Join(root, "missing", "child")))
}

func TestStorage_CreateFileAndTouch(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := fs.NewStorage()
	path := filepath.Join(root, "A.class")

	created, err := s.CreateFile(ctx, path)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))
	created, err = s.CreateFile(ctx, path)
	require.NoError(t, err)
	assert.False(t, created)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	require.NoError(t, s.Touch(ctx, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(old))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content), "touch must not rewrite content")

	ok, err := s.FileExists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorage_CreateFileRace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "A.class")
	s := fs.NewStorage()

	var mu sync.Mutex
	createdCount := 0
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.CreateFile(ctx, path)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, createdCount)
}

func TestStorage_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFiles(t, root, "a.class", "pkg/b.class")
	s := fs.NewStorage()

	children, err := s.ListChildren(ctx, root)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "a.class", children[0].Name)
	assert.False(t, children[0].IsContainer)
	assert.Equal(t, "pkg", children[1].Name)
	assert.True(t, children[1].IsContainer)

	require.Error(t, s.Delete(ctx, filepath.Join(root, "pkg")), "non-empty containers are not removed")
	require.NoError(t, s.Delete(ctx, filepath.Join(root, "pkg", "b.class")))
	require.NoError(t, s.Delete(ctx, filepath.Join(root, "pkg")))

	_, err = s.ListChildren(ctx, filepath.Join(root, "pkg"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
