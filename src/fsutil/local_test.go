package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) FileStore {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/docs/b.pdf":       "%PDF-1.4",
		"/docs/a.txt":       "hello",
		"/docs/.hidden.txt": "secret",
		"/docs/.git/config": "[core]",
		"/docs/nested/c.md": "# c",
		"/single/notes.txt": "notes",
	}
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return NewFileStore(fs)
}

func TestLocalFileStore_Collect(t *testing.T) {
	store := newTestStore(t)

	files, err := store.Collect([]string{"/docs", "/single/notes.txt", "/docs/a.txt"})
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"/docs/a.txt", "/docs/b.pdf", "/docs/nested/c.md", "/single/notes.txt"}, paths)
	assert.Equal(t, "notes.txt", files[3].Name)
	assert.Equal(t, int64(5+8+3+5), TotalSize(files))
}

func TestLocalFileStore_CollectMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Collect([]string{"/nope.pdf"})
	assert.Error(t, err)
}

func TestLocalFileStore_ReadFile(t *testing.T) {
	store := newTestStore(t)

	data, err := store.ReadFile("/single/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data))
}
