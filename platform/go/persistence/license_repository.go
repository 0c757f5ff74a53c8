package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bizscreen/console/platform/go/tenant"
)

// ResellerAccountRecord is a reseller partner attached to a tenant.
type ResellerAccountRecord struct {
	ID                uuid.UUID
	CompanyName       string
	Status            string
	CommissionPercent float64
	CreatedAt         time.Time
}

// LicenseRecord is a license code sold by a reseller.
type LicenseRecord struct {
	ID                uuid.UUID
	ResellerID        uuid.UUID
	Code              string
	Status            string
	PlanLevel         string
	MaxScreens        int
	ActivatedTenantID *uuid.UUID
	ActivatedAt       *time.Time
	CreatedAt         time.Time
}

// LicenseCounts summarises a reseller's license inventory.
type LicenseCounts struct {
	Total     int
	Available int
	Activated int
}

// PortfolioRecord aggregates a reseller's clients and inventory.
type PortfolioRecord struct {
	Clients            int
	LicenseCounts      LicenseCounts
	ScreensProvisioned int
}

// ErrLicenseAlreadyActivated is returned when redeeming a code twice.
var ErrLicenseAlreadyActivated = errors.New("license already activated")

// LicenseStore exposes persistence helpers for reseller accounts and licenses.
type LicenseStore struct {
	db *TenantDB
}

func NewLicenseStore(db *TenantDB) (*LicenseStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &LicenseStore{db: db}, nil
}

const (
	resellerColumns = `id, company_name, status, commission_percent::float8, created_at`
	licenseColumns  = `id, reseller_id, code, status, plan_level, max_screens, activated_tenant_id, activated_at, created_at`
)

// GetAccount returns the reseller account owned by the scope's tenant.
func (s *LicenseStore) GetAccount(ctx context.Context, scope tenant.Scope) (ResellerAccountRecord, error) {
	var out ResellerAccountRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanReseller(tx.QueryRow(ctx, `SELECT `+resellerColumns+` FROM reseller_accounts WHERE tenant_id = $1`, scope.TenantID))
		return err
	})
	return out, mapError(err)
}

// CreateAccount registers a reseller for a tenant. Operators approve accounts separately.
func (s *LicenseStore) CreateAccount(ctx context.Context, tenantID uuid.UUID, companyName string, commission float64) (ResellerAccountRecord, error) {
	var out ResellerAccountRecord
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanReseller(tx.QueryRow(ctx, `
            INSERT INTO reseller_accounts (id, tenant_id, company_name, commission_percent)
            VALUES ($1, $2, $3, $4)
            RETURNING `+resellerColumns, uuid.New(), tenantID, companyName, commission))
		return err
	})
	return out, mapError(err)
}

// SetAccountStatus moves a reseller between pending, active and suspended.
func (s *LicenseStore) SetAccountStatus(ctx context.Context, tenantID uuid.UUID, status string) (ResellerAccountRecord, error) {
	var out ResellerAccountRecord
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanReseller(tx.QueryRow(ctx,
			`UPDATE reseller_accounts SET status = $2 WHERE tenant_id = $1 RETURNING `+resellerColumns, tenantID, status))
		return err
	})
	return out, mapError(err)
}

// Portfolio aggregates the reseller's clients and inventory in one query.
func (s *LicenseStore) Portfolio(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID) (PortfolioRecord, error) {
	var out PortfolioRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            SELECT COUNT(DISTINCT activated_tenant_id),
                   COUNT(*),
                   COUNT(*) FILTER (WHERE status = 'available'),
                   COUNT(*) FILTER (WHERE status = 'activated'),
                   COALESCE(SUM(max_screens) FILTER (WHERE status = 'activated'), 0)
            FROM licenses WHERE reseller_id = $1 AND tenant_id = $2`, resellerID, scope.TenantID,
		).Scan(&out.Clients, &out.LicenseCounts.Total, &out.LicenseCounts.Available, &out.LicenseCounts.Activated, &out.ScreensProvisioned)
	})
	return out, mapError(err)
}

// InsertLicenses stores codes that are not taken yet and returns the inserted rows.
// Codes that collide with existing ones are skipped; callers regenerate them.
func (s *LicenseStore) InsertLicenses(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID, codes []string, planLevel string, maxScreens int) ([]LicenseRecord, error) {
	var out []LicenseRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            INSERT INTO licenses (id, reseller_id, tenant_id, code, plan_level, max_screens)
            SELECT gen_random_uuid(), $1, $2, c, $3, $4 FROM unnest($5::text[]) AS c
            ON CONFLICT (code) DO NOTHING
            RETURNING `+licenseColumns,
			resellerID, scope.TenantID, planLevel, maxScreens, codes)
		if err != nil {
			return fmt.Errorf("insert licenses: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (LicenseRecord, error) {
			return scanLicense(row)
		})
		return err
	})
	return out, mapError(err)
}

func licenseWhere(scope tenant.Scope, resellerID uuid.UUID, status *string) (string, []any) {
	parts := []string{"reseller_id = $1", "tenant_id = $2"}
	args := []any{resellerID, scope.TenantID}
	if status != nil {
		args = append(args, *status)
		parts = append(parts, fmt.Sprintf("status = $%d", len(args)))
	}
	return strings.Join(parts, " AND "), args
}

// ListLicenses returns one page of licenses, newest first. A limit of 0 returns everything.
func (s *LicenseStore) ListLicenses(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID, status *string, limit, offset int) ([]LicenseRecord, int, error) {
	where, args := licenseWhere(scope, resellerID, status)

	var (
		out   []LicenseRecord
		total int
	)
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM licenses WHERE "+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count licenses: %w", err)
		}
		query := `SELECT ` + licenseColumns + ` FROM licenses WHERE ` + where + ` ORDER BY created_at DESC, code`
		if limit > 0 {
			query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
		}
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list licenses: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (LicenseRecord, error) {
			return scanLicense(row)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Counts returns the reseller's inventory by status.
func (s *LicenseStore) Counts(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID) (LicenseCounts, error) {
	var out LicenseCounts
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            SELECT COUNT(*),
                   COUNT(*) FILTER (WHERE status = 'available'),
                   COUNT(*) FILTER (WHERE status = 'activated')
            FROM licenses WHERE reseller_id = $1 AND tenant_id = $2`, resellerID, scope.TenantID,
		).Scan(&out.Total, &out.Available, &out.Activated)
	})
	return out, mapError(err)
}

// Activate redeems code for tenantID. Activation only moves available to activated.
func (s *LicenseStore) Activate(ctx context.Context, code string, tenantID uuid.UUID) (LicenseRecord, error) {
	var out LicenseRecord
	err := s.db.WithPlatform(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanLicense(tx.QueryRow(ctx, `
            UPDATE licenses SET status = 'activated', activated_tenant_id = $2, activated_at = NOW()
            WHERE code = $1 AND status = 'available'
            RETURNING `+licenseColumns, code, tenantID))
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		var exists bool
		if qerr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM licenses WHERE code = $1)`, code).Scan(&exists); qerr != nil {
			return qerr
		}
		if exists {
			return ErrLicenseAlreadyActivated
		}
		return err
	})
	return out, mapError(err)
}

func scanReseller(row pgx.Row) (ResellerAccountRecord, error) {
	var rec ResellerAccountRecord
	err := row.Scan(&rec.ID, &rec.CompanyName, &rec.Status, &rec.CommissionPercent, &rec.CreatedAt)
	return rec, err
}

func scanLicense(row pgx.Row) (LicenseRecord, error) {
	var rec LicenseRecord
	err := row.Scan(&rec.ID, &rec.ResellerID, &rec.Code, &rec.Status, &rec.PlanLevel, &rec.MaxScreens,
		&rec.ActivatedTenantID, &rec.ActivatedAt, &rec.CreatedAt)
	return rec, err
}
