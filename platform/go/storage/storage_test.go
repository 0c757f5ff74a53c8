package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bizscreen/console/platform/go/tenant"
)

func TestResolveObjectLocation(t *testing.T) {
	id := uuid.New()
	prefix := tenant.ObjectPrefix("dev", id)

	loc, err := ResolveObjectLocation(prefix, "bizscreen-dev-assets", "branding/logo.png")
	require.NoError(t, err)
	require.Equal(t, "bizscreen-dev-assets", loc.Bucket)
	require.Equal(t, "dev/tenants/"+id.String()+"/branding/logo.png", loc.FullPath)
}

func TestResolveObjectLocation_trimsSlashAndValidates(t *testing.T) {
	loc, err := ResolveObjectLocation("dev/tenants/abc", "bucket", "/branding/logo.png")
	require.NoError(t, err)
	require.Equal(t, "dev/tenants/abc/branding/logo.png", loc.FullPath)

	_, err = ResolveObjectLocation("dev/tenants/abc/", "", "file")
	require.Error(t, err)

	_, err = ResolveObjectLocation("dev/tenants/abc/", "bucket", " ")
	require.Error(t, err)

	_, err = ResolveObjectLocation("", "bucket", "file")
	require.Error(t, err)

	_, err = ResolveObjectLocation("dev/tenants/abc/", "bucket", "../other/file")
	require.Error(t, err)
}

func TestLocalStorePutAndCheck(t *testing.T) {
	base := t.TempDir()
	store := NewLocalStore(base, "assets", "http://localhost:8080/assets")

	loc, err := ResolveObjectLocation("dev/tenants/abc/", store.Bucket(), "branding/logo.png")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), loc, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/assets/dev/tenants/abc/branding/logo.png", url)

	raw, err := os.ReadFile(filepath.Join(base, "assets", "dev", "tenants", "abc", "branding", "logo.png"))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(raw))

	require.NoError(t, store.Check(context.Background(), "dev/tenants/xyz/"))
	require.DirExists(t, filepath.Join(base, "assets", "dev", "tenants", "xyz"))
	require.Error(t, store.Check(context.Background(), ""))
}
