package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bizscreen/console/platform/go/tenant"
)

// ProfileRecord is the tenant's business context used to seed generated content.
type ProfileRecord struct {
	BusinessName string    `db:"business_name"`
	BusinessType string    `db:"business_type"`
	Audience     string    `db:"audience"`
	Tone         string    `db:"tone"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ProfileStore exposes persistence helpers for the profiles table.
type ProfileStore struct {
	db *TenantDB
}

func NewProfileStore(db *TenantDB) (*ProfileStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &ProfileStore{db: db}, nil
}

// Get returns the tenant's profile or ErrNotFound.
func (s *ProfileStore) Get(ctx context.Context, scope tenant.Scope) (ProfileRecord, error) {
	var out ProfileRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            SELECT business_name, business_type, audience, tone, updated_at
            FROM profiles WHERE tenant_id = $1`, scope.TenantID,
		).Scan(&out.BusinessName, &out.BusinessType, &out.Audience, &out.Tone, &out.UpdatedAt)
	})
	return out, mapError(err)
}

// Upsert writes the profile.
func (s *ProfileStore) Upsert(ctx context.Context, scope tenant.Scope, rec ProfileRecord) (ProfileRecord, error) {
	var out ProfileRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            INSERT INTO profiles (tenant_id, business_name, business_type, audience, tone)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (tenant_id) DO UPDATE SET
                business_name = EXCLUDED.business_name,
                business_type = EXCLUDED.business_type,
                audience = EXCLUDED.audience,
                tone = EXCLUDED.tone,
                updated_at = NOW()
            RETURNING business_name, business_type, audience, tone, updated_at`,
			scope.TenantID,
			strings.TrimSpace(rec.BusinessName),
			strings.TrimSpace(rec.BusinessType),
			strings.TrimSpace(rec.Audience),
			strings.TrimSpace(rec.Tone),
		).Scan(&out.BusinessName, &out.BusinessType, &out.Audience, &out.Tone, &out.UpdatedAt)
	})
	return out, mapError(err)
}
