package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TenantRecord is a row of the tenant registry.
type TenantRecord struct {
	ID          uuid.UUID `db:"id"`
	Slug        string    `db:"slug"`
	DisplayName *string   `db:"display_name"`
	Status      string    `db:"status"`
	Plan        string    `db:"plan"`
	CreatedAt   time.Time `db:"created_at"`
}

// TenantStatsRecord holds per-tenant content counts.
type TenantStatsRecord struct {
	TenantID  uuid.UUID
	Screens   int
	Scenes    int
	Schedules int
}

// PlatformTotals aggregates the whole platform for the operations dashboard.
type PlatformTotals struct {
	Tenants           int
	ActiveTenants     int
	SuspendedTenants  int
	Screens           int
	Scenes            int
	Schedules         int
	LicensesActivated int
}

const tenantColumns = `id, slug, display_name, status, plan, created_at`

// TenantStore provides access to the tenant registry and cross-tenant aggregates.
type TenantStore struct {
	db *TenantDB
}

// NewTenantStore creates a store; assumes migrations already created the tables.
func NewTenantStore(db *TenantDB) (*TenantStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &TenantStore{db: db}, nil
}

// Create inserts a tenant.
func (s *TenantStore) Create(ctx context.Context, rec TenantRecord) (TenantRecord, error) {
	if rec.ID == uuid.Nil {
		return TenantRecord{}, errors.New("tenant id is required")
	}
	if rec.Status == "" {
		rec.Status = "active"
	}
	if rec.Plan == "" {
		rec.Plan = "free"
	}

	var out TenantRecord
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
            INSERT INTO tenants (id, slug, display_name, status, plan)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING `+tenantColumns,
			rec.ID, rec.Slug, rec.DisplayName, rec.Status, rec.Plan)
		var err error
		out, err = scanTenantRecord(row)
		return err
	})
	return out, mapError(err)
}

// Get fetches a tenant by id.
func (s *TenantStore) Get(ctx context.Context, id uuid.UUID) (TenantRecord, error) {
	var out TenantRecord
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanTenantRecord(tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
		return err
	})
	return out, mapError(err)
}

// SetStatus changes a tenant's status.
func (s *TenantStore) SetStatus(ctx context.Context, id uuid.UUID, status string) (TenantRecord, error) {
	var out TenantRecord
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanTenantRecord(tx.QueryRow(ctx,
			`UPDATE tenants SET status = $2 WHERE id = $1 RETURNING `+tenantColumns, id, status))
		return err
	})
	return out, mapError(err)
}

// List returns paginated tenants with optional status filter, newest first.
func (s *TenantStore) List(ctx context.Context, status *string, limit, offset int) ([]TenantRecord, int, error) {
	where := ""
	args := []any{}
	if status != nil {
		where = "WHERE status = $1"
		args = append(args, *status)
	}

	var (
		records []TenantRecord
		total   int
	)
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM tenants %s", where), args...).Scan(&total); err != nil {
			return fmt.Errorf("count tenants: %w", err)
		}

		query := fmt.Sprintf(`SELECT %s FROM tenants %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`,
			tenantColumns, where, limit, offset)
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}
		records, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (TenantRecord, error) {
			return scanTenantRecord(row)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ClientStats returns content counts for the given tenants in one grouped query.
func (s *TenantStore) ClientStats(ctx context.Context, ids []uuid.UUID) ([]TenantStatsRecord, error) {
	if len(ids) == 0 {
		return []TenantStatsRecord{}, nil
	}

	var out []TenantStatsRecord
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            SELECT t.id,
                   COALESCE(sc.n, 0), COALESCE(se.n, 0), COALESCE(sh.n, 0)
            FROM tenants t
            LEFT JOIN (SELECT tenant_id, COUNT(*) AS n FROM screens GROUP BY tenant_id) sc ON sc.tenant_id = t.id
            LEFT JOIN (SELECT tenant_id, COUNT(*) AS n FROM scenes GROUP BY tenant_id) se ON se.tenant_id = t.id
            LEFT JOIN (SELECT tenant_id, COUNT(*) AS n FROM schedules GROUP BY tenant_id) sh ON sh.tenant_id = t.id
            WHERE t.id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("client stats: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (TenantStatsRecord, error) {
			var rec TenantStatsRecord
			err := row.Scan(&rec.TenantID, &rec.Screens, &rec.Scenes, &rec.Schedules)
			return rec, err
		})
		return err
	})
	return out, err
}

// Totals aggregates the platform in a single round trip.
func (s *TenantStore) Totals(ctx context.Context) (PlatformTotals, error) {
	var out PlatformTotals
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            SELECT
                (SELECT COUNT(*) FROM tenants),
                (SELECT COUNT(*) FROM tenants WHERE status = 'active'),
                (SELECT COUNT(*) FROM tenants WHERE status = 'suspended'),
                (SELECT COUNT(*) FROM screens),
                (SELECT COUNT(*) FROM scenes),
                (SELECT COUNT(*) FROM schedules),
                (SELECT COUNT(*) FROM licenses WHERE status = 'activated')`,
		).Scan(&out.Tenants, &out.ActiveTenants, &out.SuspendedTenants, &out.Screens, &out.Scenes, &out.Schedules, &out.LicensesActivated)
	})
	return out, err
}

// SetFeatureFlag upserts a flag for a tenant.
func (s *TenantStore) SetFeatureFlag(ctx context.Context, tenantID uuid.UUID, flag string, enabled bool) error {
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            INSERT INTO tenant_feature_flags (tenant_id, flag, enabled)
            VALUES ($1, $2, $3)
            ON CONFLICT (tenant_id, flag) DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = NOW()`,
			tenantID, flag, enabled)
		return err
	})
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// FeatureFlags returns the flags of the given tenants keyed by tenant id.
func (s *TenantStore) FeatureFlags(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]map[string]bool, error) {
	out := make(map[uuid.UUID]map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT tenant_id, flag, enabled FROM tenant_feature_flags WHERE tenant_id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("feature flags: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id      uuid.UUID
				flag    string
				enabled bool
			)
			if err := rows.Scan(&id, &flag, &enabled); err != nil {
				return err
			}
			if out[id] == nil {
				out[id] = map[string]bool{}
			}
			out[id][flag] = enabled
		}
		return rows.Err()
	})
	return out, err
}

func scanTenantRecord(row pgx.Row) (TenantRecord, error) {
	var rec TenantRecord
	if err := row.Scan(&rec.ID, &rec.Slug, &rec.DisplayName, &rec.Status, &rec.Plan, &rec.CreatedAt); err != nil {
		return TenantRecord{}, err
	}
	return rec, nil
}
