package cmdutil

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizscreen/console/platform/go/gcp"
	"github.com/bizscreen/console/platform/go/storage"
)

// StorageFlags selects the object store tenant prefixes are provisioned in.
type StorageFlags struct {
	Backend  string
	Bucket   string
	LocalDir string
}

func (f *StorageFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Backend, "storage-backend", "", "gcs or local; empty skips storage provisioning")
	cmd.Flags().StringVar(&f.Bucket, "bucket", "bizscreen-assets", "bucket name")
	cmd.Flags().StringVar(&f.LocalDir, "storage-local-dir", "./.data/storage", "base directory for the local backend")
}

// Open returns nil when no backend was selected. The returned close func is never nil.
func (f *StorageFlags) Open(cmd *cobra.Command) (storage.Store, func(), error) {
	switch f.Backend {
	case "":
		return nil, func() {}, nil
	case "local":
		return storage.NewLocalStore(f.LocalDir, f.Bucket, ""), func() {}, nil
	case "gcs":
		client, err := gcp.NewStorageClient(cmd.Context(), gcp.Credentials{})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewGCSStore(client, f.Bucket, ""), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("--storage-backend must be gcs or local, got %q", f.Backend)
	}
}
