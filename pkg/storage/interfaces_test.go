package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPath(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"public url", "https://x.supabase.co/storage/v1/object/public/documents/org/a.pdf", "org/a.pdf", true},
		{"last segment wins", "https://h/documents/old/documents/new.pdf", "new.pdf", true},
		{"no segment", "https://h/files/a.pdf", "", false},
		{"nothing after", "https://h/documents/", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ObjectPath(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	store, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.Equal(t, BackendNone, store.Backend())
	assert.NoError(t, store.Remove(ctx, "anything"))

	store, err = New(ctx, Config{Type: BackendFilesystem, FilesystemRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, BackendFilesystem, store.Backend())

	_, err = New(ctx, Config{Type: "gcs"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Type: BackendS3})
	assert.Error(t, err, "bucket is required")
}
