package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/derive/internal/adapters/fs"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o600))
	}
}

func TestWalker_WalkFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, "file1.txt", "dir1/file2.txt", "dir2/file3.txt")

	walker := fs.NewWalker()
	files := make([]string, 0)
	for filePath := range walker.WalkFiles(tmpDir, nil) {
		files = append(files, filePath)
	}

	assert.Len(t, files, 3)
	assert.Contains(t, files, filepath.Join(tmpDir, "file1.txt"))
	assert.Contains(t, files, filepath.Join(tmpDir, "dir1", "file2.txt"))
	assert.Contains(t, files, filepath.Join(tmpDir, "dir2", "file3.txt"))
}

func TestWalker_WalkFiles_SkipsMetadataAndIgnores(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir,
		".git/config", ".jj/store", ".derive/out/A.class",
		"build/Generated.kt", "src/main.kt", "src/notes.tmp")

	walker := fs.NewWalker()
	files := make([]string, 0)
	for filePath := range walker.WalkFiles(tmpDir, []string{"build", "*.tmp"}) {
		files = append(files, filePath)
	}

	assert.Equal(t, []string{filepath.Join(tmpDir, "src", "main.kt")}, files)
}

func TestWalker_WalkFiles_StopsEarly(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, "a.txt", "b.txt", "c.txt")

	count := 0
	for range fs.NewWalker().WalkFiles(tmpDir, nil) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
