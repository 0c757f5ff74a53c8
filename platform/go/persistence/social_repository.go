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

// SocialAccountRecord is a connected social media account.
type SocialAccountRecord struct {
	ID              uuid.UUID
	Provider        string
	AccountName     string
	LastSyncAt      *time.Time
	LastSyncError   *string
	SyncRequestedAt *time.Time
	CreatedAt       time.Time
}

// SocialStore exposes persistence helpers for social_accounts.
type SocialStore struct {
	db *TenantDB
}

func NewSocialStore(db *TenantDB) (*SocialStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &SocialStore{db: db}, nil
}

const socialColumns = `id, provider, account_name, last_sync_at, last_sync_error, sync_requested_at, created_at`

// Connect stores a newly linked account.
func (s *SocialStore) Connect(ctx context.Context, scope tenant.Scope, provider, accountName string) (SocialAccountRecord, error) {
	var out SocialAccountRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSocial(tx.QueryRow(ctx, `
            INSERT INTO social_accounts (id, tenant_id, provider, account_name)
            VALUES ($1, $2, $3, $4) RETURNING `+socialColumns, uuid.New(), scope.TenantID, provider, accountName))
		return err
	})
	return out, mapError(err)
}

// List returns the tenant's accounts grouped by provider.
func (s *SocialStore) List(ctx context.Context, scope tenant.Scope) ([]SocialAccountRecord, error) {
	var out []SocialAccountRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+socialColumns+` FROM social_accounts
            WHERE tenant_id = $1 ORDER BY provider, account_name, id`, scope.TenantID)
		if err != nil {
			return fmt.Errorf("list social accounts: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (SocialAccountRecord, error) {
			return scanSocial(row)
		})
		return err
	})
	return out, err
}

// Get returns one account.
func (s *SocialStore) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (SocialAccountRecord, error) {
	var out SocialAccountRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSocial(tx.QueryRow(ctx, `SELECT `+socialColumns+` FROM social_accounts WHERE id = $1 AND tenant_id = $2`, id, scope.TenantID))
		return err
	})
	return out, mapError(err)
}

// RequestSync stamps a sync request for the worker that polls the providers.
func (s *SocialStore) RequestSync(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time) (SocialAccountRecord, error) {
	var out SocialAccountRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSocial(tx.QueryRow(ctx, `
            UPDATE social_accounts SET sync_requested_at = $3
            WHERE id = $1 AND tenant_id = $2 RETURNING `+socialColumns, id, scope.TenantID, at))
		return err
	})
	return out, mapError(err)
}

// RecordSync stores the outcome of a provider sync. A nil failure clears the last error.
func (s *SocialStore) RecordSync(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time, failure *string) (SocialAccountRecord, error) {
	var out SocialAccountRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSocial(tx.QueryRow(ctx, `
            UPDATE social_accounts
            SET last_sync_at = CASE WHEN $4::text IS NULL THEN $3 ELSE last_sync_at END,
                last_sync_error = $4,
                sync_requested_at = NULL
            WHERE id = $1 AND tenant_id = $2 RETURNING `+socialColumns, id, scope.TenantID, at, failure))
		return err
	})
	return out, mapError(err)
}

// Disconnect removes the account.
func (s *SocialStore) Disconnect(ctx context.Context, scope tenant.Scope, id uuid.UUID) (SocialAccountRecord, error) {
	var out SocialAccountRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSocial(tx.QueryRow(ctx, `DELETE FROM social_accounts WHERE id = $1 AND tenant_id = $2 RETURNING `+socialColumns,
			id, scope.TenantID))
		return err
	})
	return out, mapError(err)
}

func scanSocial(row pgx.Row) (SocialAccountRecord, error) {
	var rec SocialAccountRecord
	err := row.Scan(&rec.ID, &rec.Provider, &rec.AccountName, &rec.LastSyncAt, &rec.LastSyncError, &rec.SyncRequestedAt, &rec.CreatedAt)
	return rec, err
}
