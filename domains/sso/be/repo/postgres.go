package repo

import (
	"context"
	"errors"

	"github.com/bizscreen/console/domains/sso/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the SSO repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.SSOStore
}

func NewPostgresRepository(store *persistence.SSOStore) *PostgresRepository {
	if store == nil {
		panic("sso store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Get(ctx context.Context, scope tenant.Scope) (service.Provider, error) {
	rec, err := r.store.Get(ctx, scope)
	if errors.Is(err, persistence.ErrNotFound) {
		return service.Provider{}, service.ErrNotConfigured
	}
	if err != nil {
		return service.Provider{}, err
	}
	return toProvider(rec), nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, scope tenant.Scope, p service.Provider) (service.Provider, error) {
	rec, err := r.store.Upsert(ctx, scope, persistence.SSOProviderRecord{
		ProviderType:     string(p.Type),
		Issuer:           p.Issuer,
		ClientID:         p.ClientID,
		ClientSecret:     p.ClientSecret,
		AuthorizationURL: p.AuthorizationURL,
		TokenURL:         p.TokenURL,
		UserinfoURL:      p.UserinfoURL,
		JWKSURL:          p.JWKSURL,
		SSOURL:           p.SSOURL,
		Certificate:      p.Certificate,
		IsEnabled:        p.IsEnabled,
		EnforceSSO:       p.EnforceSSO,
	})
	if err != nil {
		return service.Provider{}, err
	}
	return toProvider(rec), nil
}

func toProvider(rec persistence.SSOProviderRecord) service.Provider {
	return service.Provider{
		Type:             service.ProviderType(rec.ProviderType),
		Issuer:           rec.Issuer,
		ClientID:         rec.ClientID,
		ClientSecret:     rec.ClientSecret,
		AuthorizationURL: rec.AuthorizationURL,
		TokenURL:         rec.TokenURL,
		UserinfoURL:      rec.UserinfoURL,
		JWKSURL:          rec.JWKSURL,
		SSOURL:           rec.SSOURL,
		Certificate:      rec.Certificate,
		IsEnabled:        rec.IsEnabled,
		EnforceSSO:       rec.EnforceSSO,
		UpdatedAt:        rec.UpdatedAt,
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
