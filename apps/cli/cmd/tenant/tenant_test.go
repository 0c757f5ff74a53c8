package tenantcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const tenantID = "7b0d5c7e-0a4e-4b8e-9d0b-1f1c2a3b4c5d"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "console", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("database-url", "", "")
	root.PersistentFlags().String("env-key", "test", "")
	root.PersistentFlags().String("log-level", "error", "")
	root.AddCommand(Command())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"tenant"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestProvisionStorageWritesMarker(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	out, err := run(t, "provision-storage", "--id", tenantID, "--storage-backend", "local", "--storage-local-dir", dir, "--bucket", "assets")
	require.NoError(t, err)
	require.Contains(t, out, "storage provisioned for "+tenantID)

	raw, err := os.ReadFile(filepath.Join(dir, "assets", "test", "tenants", tenantID, ".provisioned"))
	require.NoError(t, err)
	require.Equal(t, tenantID, string(raw))
}

func TestProvisionStorageRequiresBackend(t *testing.T) {
	t.Parallel()
	_, err := run(t, "provision-storage", "--id", tenantID)
	require.ErrorContains(t, err, "--storage-backend")

	_, err = run(t, "provision-storage", "--id", tenantID, "--storage-backend", "s3")
	require.ErrorContains(t, err, "gcs or local")
}

func TestSetStatusValidatesBeforeConnecting(t *testing.T) {
	t.Parallel()
	_, err := run(t, "set-status", "--id", "nope", "--status", "active")
	require.ErrorContains(t, err, "id")

	_, err = run(t, "set-status", "--id", tenantID, "--status", "deleted")
	require.ErrorContains(t, err, "active or suspended")

	_, err = run(t, "set-status", "--id", tenantID, "--status", "active")
	require.ErrorContains(t, err, "DATABASE_URL")
}
