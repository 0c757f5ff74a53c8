// Package storage places tenant assets in object storage under the tenant prefix.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ObjectLocation describes where a blob should live.
type ObjectLocation struct {
	Bucket   string
	FullPath string
}

// ResolveObjectLocation combines the tenant prefix and a logical key into a bucket/path pair.
//   - bucket comes from deployment configuration (one bucket per environment class).
//   - prefix is tenant.ObjectPrefix, e.g. "dev/tenants/<uuid>/".
//   - logicalKey is tenant-relative, e.g. "branding/logo-<uuid>.png".
func ResolveObjectLocation(prefix, bucket, logicalKey string) (ObjectLocation, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return ObjectLocation{}, fmt.Errorf("bucket is required")
	}
	key := strings.TrimSpace(logicalKey)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return ObjectLocation{}, fmt.Errorf("logical key is required")
	}
	if strings.Contains(key, "..") {
		return ObjectLocation{}, fmt.Errorf("logical key must not contain '..'")
	}

	if prefix == "" {
		return ObjectLocation{}, fmt.Errorf("tenant prefix is missing")
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return ObjectLocation{Bucket: bucket, FullPath: prefix + key}, nil
}

// Store writes blobs and reports their public URL.
type Store interface {
	Bucket() string
	Put(ctx context.Context, loc ObjectLocation, contentType string, body io.Reader) (string, error)
	Check(ctx context.Context, prefix string) error
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
