package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

// startTestDB runs Postgres in a container, applies the embedded migrations and
// returns a TenantDB over it. Callers must skip in -short mode first.
func startTestDB(t *testing.T) *TenantDB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("console"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, connString))

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	return NewTenantDB(TenantDBConfig{Pool: pool})
}

// seedTenant registers a tenant and returns an owner scope for it.
func seedTenant(t *testing.T, db *TenantDB, slug string) tenant.Scope {
	t.Helper()

	store, err := NewTenantStore(db)
	require.NoError(t, err)
	rec, err := store.Create(context.Background(), TenantRecord{ID: uuid.New(), Slug: slug})
	require.NoError(t, err)
	return tenant.Scope{TenantID: rec.ID, UserID: "owner-" + slug, Role: platformauth.RoleOwner}
}
