package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bizscreen/console/platform/go/tenant"
)

// SSOProviderRecord is the tenant's single identity provider configuration.
type SSOProviderRecord struct {
	ProviderType     string
	Issuer           string
	ClientID         string
	ClientSecret     string
	AuthorizationURL string
	TokenURL         string
	UserinfoURL      string
	JWKSURL          string
	SSOURL           string
	Certificate      string
	IsEnabled        bool
	EnforceSSO       bool
	UpdatedAt        time.Time
}

// SSOStore exposes persistence helpers for sso_providers.
type SSOStore struct {
	db *TenantDB
}

func NewSSOStore(db *TenantDB) (*SSOStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &SSOStore{db: db}, nil
}

const ssoColumns = `provider_type, issuer, client_id, client_secret, authorization_url, token_url,
    userinfo_url, jwks_url, sso_url, certificate, is_enabled, enforce_sso, updated_at`

// Get returns the tenant's provider or ErrNotFound.
func (s *SSOStore) Get(ctx context.Context, scope tenant.Scope) (SSOProviderRecord, error) {
	var out SSOProviderRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSSO(tx.QueryRow(ctx, `SELECT `+ssoColumns+` FROM sso_providers WHERE tenant_id = $1`, scope.TenantID))
		return err
	})
	return out, mapError(err)
}

// Upsert replaces the provider configuration. Flags are written as given.
func (s *SSOStore) Upsert(ctx context.Context, scope tenant.Scope, rec SSOProviderRecord) (SSOProviderRecord, error) {
	var out SSOProviderRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSSO(tx.QueryRow(ctx, `
            INSERT INTO sso_providers (tenant_id, provider_type, issuer, client_id, client_secret, authorization_url,
                token_url, userinfo_url, jwks_url, sso_url, certificate, is_enabled, enforce_sso)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
            ON CONFLICT (tenant_id) DO UPDATE SET
                provider_type = EXCLUDED.provider_type,
                issuer = EXCLUDED.issuer,
                client_id = EXCLUDED.client_id,
                client_secret = EXCLUDED.client_secret,
                authorization_url = EXCLUDED.authorization_url,
                token_url = EXCLUDED.token_url,
                userinfo_url = EXCLUDED.userinfo_url,
                jwks_url = EXCLUDED.jwks_url,
                sso_url = EXCLUDED.sso_url,
                certificate = EXCLUDED.certificate,
                is_enabled = EXCLUDED.is_enabled,
                enforce_sso = EXCLUDED.enforce_sso,
                updated_at = NOW()
            RETURNING `+ssoColumns,
			scope.TenantID, rec.ProviderType, rec.Issuer, rec.ClientID, rec.ClientSecret, rec.AuthorizationURL,
			rec.TokenURL, rec.UserinfoURL, rec.JWKSURL, rec.SSOURL, rec.Certificate, rec.IsEnabled, rec.EnforceSSO))
		return err
	})
	return out, mapError(err)
}

func scanSSO(row pgx.Row) (SSOProviderRecord, error) {
	var rec SSOProviderRecord
	err := row.Scan(&rec.ProviderType, &rec.Issuer, &rec.ClientID, &rec.ClientSecret, &rec.AuthorizationURL, &rec.TokenURL,
		&rec.UserinfoURL, &rec.JWKSURL, &rec.SSOURL, &rec.Certificate, &rec.IsEnabled, &rec.EnforceSSO, &rec.UpdatedAt)
	return rec, err
}
