package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/tenants/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
)

// PostgresRepository implements the tenant registry over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.TenantStore
}

func NewPostgresRepository(store *persistence.TenantStore) *PostgresRepository {
	if store == nil {
		panic("tenant store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	rec, err := r.store.Create(ctx, persistence.TenantRecord{
		ID:          t.ID,
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Status:      string(t.Status),
		Plan:        t.Plan,
	})
	if err != nil {
		return service.Tenant{}, mapPersistenceError(err)
	}
	return toTenant(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return service.Tenant{}, mapPersistenceError(err)
	}
	return toTenant(rec), nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id uuid.UUID, status service.Status) (service.Tenant, error) {
	rec, err := r.store.SetStatus(ctx, id, string(status))
	if err != nil {
		return service.Tenant{}, mapPersistenceError(err)
	}
	return toTenant(rec), nil
}

func (r *PostgresRepository) List(ctx context.Context, status *service.Status, limit, offset int) ([]service.Tenant, int, error) {
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	recs, total, err := r.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]service.Tenant, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toTenant(rec))
	}
	return out, total, nil
}

func (r *PostgresRepository) ClientStats(ctx context.Context, ids []uuid.UUID) ([]service.ClientStats, error) {
	recs, err := r.store.ClientStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]service.ClientStats, 0, len(recs))
	for _, rec := range recs {
		out = append(out, service.ClientStats{
			TenantID:  rec.TenantID,
			Screens:   rec.Screens,
			Scenes:    rec.Scenes,
			Schedules: rec.Schedules,
		})
	}
	return out, nil
}

func (r *PostgresRepository) Totals(ctx context.Context) (service.Totals, error) {
	rec, err := r.store.Totals(ctx)
	if err != nil {
		return service.Totals{}, err
	}
	return service.Totals(rec), nil
}

func (r *PostgresRepository) SetFeatureFlag(ctx context.Context, tenantID uuid.UUID, flag string, enabled bool) error {
	return mapPersistenceError(r.store.SetFeatureFlag(ctx, tenantID, flag, enabled))
}

func (r *PostgresRepository) FeatureFlags(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]map[string]bool, error) {
	return r.store.FeatureFlags(ctx, ids)
}

func toTenant(rec persistence.TenantRecord) service.Tenant {
	return service.Tenant{
		ID:          rec.ID,
		Slug:        rec.Slug,
		DisplayName: rec.DisplayName,
		Status:      service.Status(rec.Status),
		Plan:        rec.Plan,
		CreatedAt:   rec.CreatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return service.ErrConflictSlug
	default:
		return err
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
