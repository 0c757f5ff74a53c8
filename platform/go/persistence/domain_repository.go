package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bizscreen/console/platform/go/tenant"
)

// DomainRecord is a tenant custom domain.
type DomainRecord struct {
	ID                    uuid.UUID
	DomainName            string
	VerificationToken     string
	IsVerified            bool
	IsPrimary             bool
	LastVerificationError *string
	VerifiedAt            *time.Time
	CreatedAt             time.Time
}

// BrandingRecord is the tenant's white-label look.
type BrandingRecord struct {
	ProductName    string
	PrimaryColor   string
	SecondaryColor string
	LogoURL        string
	HidePoweredBy  bool
	UpdatedAt      time.Time
}

var (
	// ErrDomainNotVerified is returned when promoting an unverified domain.
	ErrDomainNotVerified = errors.New("domain is not verified")
	// ErrDomainIsPrimary is returned when removing the primary domain.
	ErrDomainIsPrimary = errors.New("primary domain cannot be removed")
)

// WhiteLabelStore exposes persistence helpers for custom domains and branding.
type WhiteLabelStore struct {
	db *TenantDB
}

func NewWhiteLabelStore(db *TenantDB) (*WhiteLabelStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &WhiteLabelStore{db: db}, nil
}

const domainColumns = `id, domain_name, verification_token, is_verified, is_primary, last_verification_error, verified_at, created_at`

// ListDomains returns the tenant's domains, primary first.
func (s *WhiteLabelStore) ListDomains(ctx context.Context, scope tenant.Scope) ([]DomainRecord, error) {
	var out []DomainRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+domainColumns+` FROM custom_domains
            WHERE tenant_id = $1 ORDER BY is_primary DESC, created_at, id`, scope.TenantID)
		if err != nil {
			return fmt.Errorf("list domains: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (DomainRecord, error) {
			return scanDomain(row)
		})
		return err
	})
	return out, err
}

// GetDomain returns one domain.
func (s *WhiteLabelStore) GetDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (DomainRecord, error) {
	var out DomainRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanDomain(tx.QueryRow(ctx, `SELECT `+domainColumns+` FROM custom_domains WHERE id = $1 AND tenant_id = $2`, id, scope.TenantID))
		return err
	})
	return out, mapError(err)
}

// AddDomain inserts a pending domain. Names are unique across tenants.
func (s *WhiteLabelStore) AddDomain(ctx context.Context, scope tenant.Scope, name, token string) (DomainRecord, error) {
	var out DomainRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanDomain(tx.QueryRow(ctx, `
            INSERT INTO custom_domains (id, tenant_id, domain_name, verification_token)
            VALUES ($1, $2, $3, $4)
            RETURNING `+domainColumns, uuid.New(), scope.TenantID, name, token))
		return err
	})
	return out, mapError(err)
}

// RecordVerification stores the outcome of a DNS check. A nil failure marks the domain verified.
func (s *WhiteLabelStore) RecordVerification(ctx context.Context, scope tenant.Scope, id uuid.UUID, failure *string) (DomainRecord, error) {
	var out DomainRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		if failure == nil {
			out, err = scanDomain(tx.QueryRow(ctx, `
                UPDATE custom_domains
                SET is_verified = TRUE, last_verification_error = NULL, verified_at = COALESCE(verified_at, NOW())
                WHERE id = $1 AND tenant_id = $2
                RETURNING `+domainColumns, id, scope.TenantID))
			return err
		}
		out, err = scanDomain(tx.QueryRow(ctx, `
            UPDATE custom_domains SET last_verification_error = $3
            WHERE id = $1 AND tenant_id = $2
            RETURNING `+domainColumns, id, scope.TenantID, *failure))
		return err
	})
	return out, mapError(err)
}

// SetPrimary makes id the only primary domain of the tenant in one transaction.
func (s *WhiteLabelStore) SetPrimary(ctx context.Context, scope tenant.Scope, id uuid.UUID) (DomainRecord, error) {
	var out DomainRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		current, err := scanDomain(tx.QueryRow(ctx,
			`SELECT `+domainColumns+` FROM custom_domains WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, scope.TenantID))
		if err != nil {
			return err
		}
		if !current.IsVerified {
			return ErrDomainNotVerified
		}
		if _, err := tx.Exec(ctx, `UPDATE custom_domains SET is_primary = FALSE WHERE tenant_id = $1 AND is_primary AND id <> $2`,
			scope.TenantID, id); err != nil {
			return fmt.Errorf("demote primary: %w", err)
		}
		out, err = scanDomain(tx.QueryRow(ctx,
			`UPDATE custom_domains SET is_primary = TRUE WHERE id = $1 RETURNING `+domainColumns, id))
		return err
	})
	return out, mapError(err)
}

// RemoveDomain deletes a non-primary domain.
func (s *WhiteLabelStore) RemoveDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var primary bool
		if err := tx.QueryRow(ctx, `SELECT is_primary FROM custom_domains WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
			id, scope.TenantID).Scan(&primary); err != nil {
			return err
		}
		if primary {
			return ErrDomainIsPrimary
		}
		_, err := tx.Exec(ctx, `DELETE FROM custom_domains WHERE id = $1`, id)
		return err
	})
	return mapError(err)
}

// GetBranding returns the tenant's branding or ErrNotFound.
func (s *WhiteLabelStore) GetBranding(ctx context.Context, scope tenant.Scope) (BrandingRecord, error) {
	var out BrandingRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            SELECT product_name, primary_color, secondary_color, logo_url, hide_powered_by, updated_at
            FROM brandings WHERE tenant_id = $1`, scope.TenantID,
		).Scan(&out.ProductName, &out.PrimaryColor, &out.SecondaryColor, &out.LogoURL, &out.HidePoweredBy, &out.UpdatedAt)
	})
	return out, mapError(err)
}

// UpsertBranding writes the branding.
func (s *WhiteLabelStore) UpsertBranding(ctx context.Context, scope tenant.Scope, rec BrandingRecord) (BrandingRecord, error) {
	var out BrandingRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            INSERT INTO brandings (tenant_id, product_name, primary_color, secondary_color, logo_url, hide_powered_by)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (tenant_id) DO UPDATE SET
                product_name = EXCLUDED.product_name,
                primary_color = EXCLUDED.primary_color,
                secondary_color = EXCLUDED.secondary_color,
                logo_url = EXCLUDED.logo_url,
                hide_powered_by = EXCLUDED.hide_powered_by,
                updated_at = NOW()
            RETURNING product_name, primary_color, secondary_color, logo_url, hide_powered_by, updated_at`,
			scope.TenantID, rec.ProductName, rec.PrimaryColor, rec.SecondaryColor, rec.LogoURL, rec.HidePoweredBy,
		).Scan(&out.ProductName, &out.PrimaryColor, &out.SecondaryColor, &out.LogoURL, &out.HidePoweredBy, &out.UpdatedAt)
	})
	return out, mapError(err)
}

func scanDomain(row pgx.Row) (DomainRecord, error) {
	var rec DomainRecord
	err := row.Scan(&rec.ID, &rec.DomainName, &rec.VerificationToken, &rec.IsVerified, &rec.IsPrimary,
		&rec.LastVerificationError, &rec.VerifiedAt, &rec.CreatedAt)
	return rec, err
}
