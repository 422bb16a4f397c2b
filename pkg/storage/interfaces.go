package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Backend names accepted by Config.Type.
const (
	BackendNone       = "none"
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// DocumentsPrefix marks where the object path starts inside a document file URL.
const DocumentsPrefix = "/documents/"

// ErrInvalidPath is returned for object paths that are empty or escape the
// storage root.
var ErrInvalidPath = errors.New("storage: invalid object path")

// BlobStore removes stored document objects. Implementations never fail on
// objects that are already gone.
type BlobStore interface {
	Remove(ctx context.Context, paths ...string) error
	Backend() string
}

// Config selects and configures the blob backend and the database/cache
// connections.
type Config struct {
	Type string // "none", "filesystem", "s3"

	// Filesystem config
	FilesystemRoot string

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             BackendNone,
		FilesystemRoot:   "/var/lib/docvault/documents",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		S3Region:         "us-east-1",
		S3Bucket:         "documents",
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
	}
}

// ObjectPath extracts the storage path from a document file URL: everything
// after the last "/documents/". ok is false when the URL has no such segment
// or nothing follows it.
func ObjectPath(fileURL string) (path string, ok bool) {
	idx := strings.LastIndex(fileURL, DocumentsPrefix)
	if idx < 0 {
		return "", false
	}
	path = fileURL[idx+len(DocumentsPrefix):]
	if path == "" {
		return "", false
	}
	return path, true
}

// New builds the BlobStore named by cfg.Type.
func New(ctx context.Context, cfg Config) (BlobStore, error) {
	switch cfg.Type {
	case "", BackendNone:
		return NoopBlobStore{}, nil
	case BackendFilesystem:
		return NewFileSystemBlobStore(cfg.FilesystemRoot)
	case BackendS3:
		return NewS3BlobStore(ctx, cfg)
	default:
		return nil, errors.New("storage: unknown backend " + cfg.Type)
	}
}

// NoopBlobStore discards removals. Used when documents carry no stored file.
type NoopBlobStore struct{}

func (NoopBlobStore) Remove(ctx context.Context, paths ...string) error { return nil }
func (NoopBlobStore) Backend() string                                   { return BackendNone }
