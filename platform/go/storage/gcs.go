package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	// publicBase defaults to https://storage.googleapis.com/<bucket>.
	publicBase string
}

func NewGCSStore(client *storage.Client, bucket, publicBase string) *GCSStore {
	if client == nil {
		panic("gcs store requires client")
	}
	if bucket == "" {
		panic("gcs store requires bucket")
	}
	if publicBase == "" {
		publicBase = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{client: client, bucket: bucket, publicBase: publicBase}
}

func (s *GCSStore) Bucket() string { return s.bucket }

func (s *GCSStore) Put(ctx context.Context, loc ObjectLocation, contentType string, body io.Reader) (string, error) {
	w := s.client.Bucket(loc.Bucket).Object(loc.FullPath).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=300"

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer: %w", err)
	}
	return joinURL(s.publicBase, loc.FullPath), nil
}

// Check verifies the bucket exists and the prefix is listable.
func (s *GCSStore) Check(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("storage prefix is required")
	}

	bkt := s.client.Bucket(s.bucket)
	if _, err := bkt.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket attrs: %w", err)
	}

	// List at most one object to validate access to the prefix; empty is fine.
	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix})
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("list prefix: %w", err)
	}
	return nil
}

var _ Store = (*GCSStore)(nil)
