package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/whitelabel/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the white-label repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.WhiteLabelStore
}

func NewPostgresRepository(store *persistence.WhiteLabelStore) *PostgresRepository {
	if store == nil {
		panic("white-label store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) ListDomains(ctx context.Context, scope tenant.Scope) ([]service.Domain, error) {
	recs, err := r.store.ListDomains(ctx, scope)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	out := make([]service.Domain, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomain(rec))
	}
	return out, nil
}

func (r *PostgresRepository) GetDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Domain, error) {
	rec, err := r.store.GetDomain(ctx, scope, id)
	return toDomain(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) AddDomain(ctx context.Context, scope tenant.Scope, name, token string) (service.Domain, error) {
	rec, err := r.store.AddDomain(ctx, scope, name, token)
	return toDomain(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) RecordVerification(ctx context.Context, scope tenant.Scope, id uuid.UUID, failure *string) (service.Domain, error) {
	rec, err := r.store.RecordVerification(ctx, scope, id, failure)
	return toDomain(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) SetPrimary(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Domain, error) {
	rec, err := r.store.SetPrimary(ctx, scope, id)
	return toDomain(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) RemoveDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	return mapPersistenceError(r.store.RemoveDomain(ctx, scope, id))
}

func (r *PostgresRepository) GetBranding(ctx context.Context, scope tenant.Scope) (service.Branding, error) {
	rec, err := r.store.GetBranding(ctx, scope)
	return toBranding(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) UpsertBranding(ctx context.Context, scope tenant.Scope, b service.Branding) (service.Branding, error) {
	rec, err := r.store.UpsertBranding(ctx, scope, persistence.BrandingRecord{
		ProductName:    b.ProductName,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		LogoURL:        b.LogoURL,
		HidePoweredBy:  b.HidePoweredBy,
	})
	return toBranding(rec), mapPersistenceError(err)
}

func toDomain(rec persistence.DomainRecord) service.Domain {
	return service.Domain{
		ID:                    rec.ID,
		DomainName:            rec.DomainName,
		VerificationToken:     rec.VerificationToken,
		IsVerified:            rec.IsVerified,
		IsPrimary:             rec.IsPrimary,
		LastVerificationError: rec.LastVerificationError,
		VerifiedAt:            rec.VerifiedAt,
		CreatedAt:             rec.CreatedAt,
	}
}

func toBranding(rec persistence.BrandingRecord) service.Branding {
	return service.Branding{
		ProductName:    rec.ProductName,
		PrimaryColor:   rec.PrimaryColor,
		SecondaryColor: rec.SecondaryColor,
		LogoURL:        rec.LogoURL,
		HidePoweredBy:  rec.HidePoweredBy,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return service.ErrConflict
	case errors.Is(err, persistence.ErrDomainNotVerified):
		return service.ErrNotVerified
	case errors.Is(err, persistence.ErrDomainIsPrimary):
		return service.ErrPrimaryRemoval
	default:
		return err
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
