package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemBlobStore_Remove(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemBlobStore(root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "org1"), 0755))
	target := filepath.Join(root, "org1", "a.pdf")
	require.NoError(t, os.WriteFile(target, []byte("pdf"), 0644))

	ctx := context.Background()
	require.NoError(t, store.Remove(ctx, "org1/a.pdf", "org1/missing.pdf"))

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestFileSystemBlobStore_RejectsEscapes(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemBlobStore(filepath.Join(root, "docs"))
	require.NoError(t, err)

	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	for _, p := range []string{"../secret.txt", "", "  ", ".", "a/../../secret.txt"} {
		err := store.Remove(context.Background(), "ok.pdf", p)
		assert.ErrorIs(t, err, ErrInvalidPath, "path %q", p)
	}

	_, err = os.Stat(outside)
	assert.NoError(t, err, "file outside the root must survive")
}

func TestFileSystemBlobStore_Path(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemBlobStore(root)
	require.NoError(t, err)

	got, err := store.Path("org/x.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "org", "x.md"), got)

	_, err = NewFileSystemBlobStore("")
	assert.Error(t, err)
}
