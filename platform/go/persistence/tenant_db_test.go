package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

// fakeTx satisfies pgx.Tx and records Exec statements invoked.
type fakeTx struct {
	stmts     []string
	args      [][]any
	committed bool
}

func (f *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) Commit(ctx context.Context) error   { f.committed = true; return nil }
func (f *fakeTx) Rollback(ctx context.Context) error { return nil }
func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, errors.New("not implemented")
}
func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }
func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, nil
}
func (f *fakeTx) Conn() *pgx.Conn { return nil }

// fakePool returns a preconstructed transaction.
type fakePool struct {
	tx    *fakeTx
	began int
}

func (p *fakePool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	p.began++
	return p.tx, nil
}

func TestTenantDBWithPlatformEnablesPlatformScope(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}, schema: "public"}

	err := db.WithPlatform(context.Background(), func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Len(t, ftx.stmts, 1)
	require.Contains(t, ftx.stmts[0], "app.platform")
	require.True(t, ftx.committed)
}

func TestTenantDBWithTenantSetsScopeSettings(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}, schema: "public"}
	scope := tenant.Scope{TenantID: uuid.New(), UserID: "u-1", Role: platformauth.RoleEditor}

	err := db.WithTenant(context.Background(), scope, func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Len(t, ftx.stmts, 1)
	require.Contains(t, ftx.stmts[0], "app.tenant_id")
	require.Contains(t, ftx.stmts[0], "app.user_role")
	require.Equal(t, []any{"public", scope.TenantID.String(), "editor"}, ftx.args[0])
}

func TestTenantDBWithTenantRequiresScope(t *testing.T) {
	pool := &fakePool{tx: &fakeTx{}}
	db := &TenantDB{pool: pool, schema: "public"}

	err := db.WithTenant(context.Background(), tenant.Scope{}, func(tx pgx.Tx) error { return nil })
	require.ErrorIs(t, err, tenant.ErrMissingScope)
	require.Zero(t, pool.began, "no transaction is opened without a tenant")
}

func TestTenantDBDoesNotCommitOnError(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}, schema: "public"}
	boom := errors.New("boom")

	err := db.WithTenant(context.Background(), tenant.Scope{TenantID: uuid.New()}, func(tx pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, ftx.committed)
}
