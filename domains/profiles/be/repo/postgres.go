package repo

import (
	"context"
	"errors"

	"github.com/bizscreen/console/domains/profiles/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the profiles repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.ProfileStore
}

func NewPostgresRepository(store *persistence.ProfileStore) *PostgresRepository {
	if store == nil {
		panic("profile store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Get(ctx context.Context, scope tenant.Scope) (service.BusinessContext, error) {
	rec, err := r.store.Get(ctx, scope)
	if errors.Is(err, persistence.ErrNotFound) {
		return service.BusinessContext{}, nil
	}
	if err != nil {
		return service.BusinessContext{}, err
	}
	return toContext(rec), nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, scope tenant.Scope, bc service.BusinessContext) (service.BusinessContext, error) {
	rec, err := r.store.Upsert(ctx, scope, persistence.ProfileRecord{
		BusinessName: bc.BusinessName,
		BusinessType: bc.BusinessType,
		Audience:     bc.Audience,
		Tone:         bc.Tone,
	})
	if err != nil {
		return service.BusinessContext{}, err
	}
	return toContext(rec), nil
}

func toContext(rec persistence.ProfileRecord) service.BusinessContext {
	return service.BusinessContext{
		BusinessName: rec.BusinessName,
		BusinessType: rec.BusinessType,
		Audience:     rec.Audience,
		Tone:         rec.Tone,
		UpdatedAt:    rec.UpdatedAt,
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
