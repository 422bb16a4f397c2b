package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemBlobStore keeps document objects under a root directory.
type FileSystemBlobStore struct {
	rootDir string
}

// NewFileSystemBlobStore creates a filesystem blob store rooted at rootDir
func NewFileSystemBlobStore(rootDir string) (*FileSystemBlobStore, error) {
	if rootDir == "" {
		return nil, errors.New("storage: filesystem root is required")
	}
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return &FileSystemBlobStore{rootDir: abs}, nil
}

// Backend implements BlobStore
func (s *FileSystemBlobStore) Backend() string { return BackendFilesystem }

// Remove deletes each path. Missing files are ignored; every path is checked
// before anything is removed.
func (s *FileSystemBlobStore) Remove(ctx context.Context, paths ...string) error {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		full, err := s.resolve(p)
		if err != nil {
			return err
		}
		resolved = append(resolved, full)
	}

	var errs []error
	for _, full := range resolved {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", full, err))
		}
	}
	return errors.Join(errs...)
}

// Path returns the on-disk location of an object path.
func (s *FileSystemBlobStore) Path(objectPath string) (string, error) {
	return s.resolve(objectPath)
}

func (s *FileSystemBlobStore) resolve(objectPath string) (string, error) {
	if strings.TrimSpace(objectPath) == "" {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.rootDir, filepath.FromSlash(objectPath))
	rel, err := filepath.Rel(s.rootDir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return full, nil
}
