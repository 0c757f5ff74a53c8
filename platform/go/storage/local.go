package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps objects on the filesystem under basePath/<bucket>/. Used for local development.
type LocalStore struct {
	basePath   string
	bucket     string
	publicBase string
}

func NewLocalStore(basePath, bucket, publicBase string) *LocalStore {
	if basePath == "" {
		panic("local store requires basePath")
	}
	if bucket == "" {
		bucket = "local"
	}
	if publicBase == "" {
		publicBase = "file://" + filepath.ToSlash(filepath.Join(basePath, bucket))
	}
	return &LocalStore{basePath: basePath, bucket: bucket, publicBase: publicBase}
}

func (s *LocalStore) Bucket() string { return s.bucket }

func (s *LocalStore) Put(ctx context.Context, loc ObjectLocation, contentType string, body io.Reader) (string, error) {
	full := filepath.Join(s.basePath, loc.Bucket, filepath.FromSlash(loc.FullPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	return joinURL(s.publicBase, loc.FullPath), nil
}

// Check creates the prefix directory; idempotent.
func (s *LocalStore) Check(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("storage prefix is required")
	}
	if err := os.MkdirAll(filepath.Join(s.basePath, s.bucket, filepath.FromSlash(prefix)), 0o755); err != nil {
		return fmt.Errorf("create prefix path: %w", err)
	}
	return nil
}

var _ Store = (*LocalStore)(nil)
