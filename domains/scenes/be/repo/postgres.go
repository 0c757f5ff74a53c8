package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/scenes/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the scenes repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.SceneStore
}

func NewPostgresRepository(store *persistence.SceneStore) *PostgresRepository {
	if store == nil {
		panic("scene store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) ListWithDeviceCounts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]service.Scene, int, error) {
	recs, total, err := r.store.ListWithDeviceCounts(ctx, scope, limit, offset)
	if err != nil {
		return nil, 0, mapPersistenceError(err)
	}
	out := make([]service.Scene, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toScene(rec))
	}
	return out, total, nil
}

func (r *PostgresRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Scene, error) {
	rec, err := r.store.Get(ctx, scope, id)
	if err != nil {
		return service.Scene{}, mapPersistenceError(err)
	}
	return toScene(rec), nil
}

func (r *PostgresRepository) Create(ctx context.Context, scope tenant.Scope, sc service.Scene) (service.Scene, error) {
	rec, err := r.store.Create(ctx, scope, persistence.SceneRecord{
		ID:                  sc.ID,
		Name:                sc.Name,
		BusinessType:        sc.BusinessType,
		LayoutID:            sc.LayoutID,
		PrimaryPlaylistID:   sc.PrimaryPlaylistID,
		SecondaryPlaylistID: sc.SecondaryPlaylistID,
	})
	if err != nil {
		return service.Scene{}, mapPersistenceError(err)
	}
	return toScene(rec), nil
}

func (r *PostgresRepository) Publish(ctx context.Context, scope tenant.Scope, sceneID uuid.UUID, screenIDs []uuid.UUID) error {
	return mapPersistenceError(r.store.Publish(ctx, scope, sceneID, screenIDs))
}

func (r *PostgresRepository) CreateScreen(ctx context.Context, scope tenant.Scope, name string) (service.Screen, error) {
	rec, err := r.store.CreateScreen(ctx, scope, name)
	if err != nil {
		return service.Screen{}, mapPersistenceError(err)
	}
	return service.Screen{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}, nil
}

func (r *PostgresRepository) ListScreens(ctx context.Context, scope tenant.Scope) ([]service.Screen, error) {
	recs, err := r.store.ListScreens(ctx, scope)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	out := make([]service.Screen, 0, len(recs))
	for _, rec := range recs {
		out = append(out, service.Screen{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt})
	}
	return out, nil
}

func toScene(rec persistence.SceneRecord) service.Scene {
	return service.Scene{
		ID:                  rec.ID,
		Name:                rec.Name,
		BusinessType:        rec.BusinessType,
		LayoutID:            rec.LayoutID,
		PrimaryPlaylistID:   rec.PrimaryPlaylistID,
		SecondaryPlaylistID: rec.SecondaryPlaylistID,
		DeviceCount:         rec.DeviceCount,
		CreatedAt:           rec.CreatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrUnknownScreens):
		return service.ErrUnknownScreens
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrNotFound
	default:
		return err
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
