package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizscreen/console/platform/go/tenant"
)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TenantDB runs store queries inside transactions that carry the tenant scope as
// transaction-local settings (app.tenant_id, app.user_role). Row level security
// policies read those settings; stores still filter by tenant_id explicitly.
type TenantDB struct {
	pool   txBeginner
	schema string
}

type TenantDBConfig struct {
	Pool *pgxpool.Pool
	// Schema is put on the search_path; defaults to public.
	Schema string
}

func NewTenantDB(cfg TenantDBConfig) *TenantDB {
	if cfg.Pool == nil {
		panic("TenantDB requires pool")
	}

	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	return &TenantDB{pool: cfg.Pool, schema: schema}
}

// WithPlatform executes fn in a transaction that may see every tenant's rows.
// Used by the operations console, tenant resolution and license activation.
func (db *TenantDB) WithPlatform(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx,
		`SELECT set_config('search_path', $1, true), set_config('app.platform', 'on', true)`,
		db.schema,
	); err != nil {
		return fmt.Errorf("set platform scope: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// WithTenant executes fn inside a transaction bound to scope's tenant.
func (db *TenantDB) WithTenant(ctx context.Context, scope tenant.Scope, fn func(tx pgx.Tx) error) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err = tx.Exec(ctx,
		`SELECT set_config('search_path', $1, true), set_config('app.tenant_id', $2, true), set_config('app.user_role', $3, true)`,
		db.schema, scope.TenantID.String(), string(scope.Role),
	); err != nil {
		return fmt.Errorf("set tenant scope: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
