package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/social/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the social repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.SocialStore
}

func NewPostgresRepository(store *persistence.SocialStore) *PostgresRepository {
	if store == nil {
		panic("social store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Connect(ctx context.Context, scope tenant.Scope, provider service.Provider, accountName string) (service.Account, error) {
	rec, err := r.store.Connect(ctx, scope, string(provider), accountName)
	return toAccount(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) List(ctx context.Context, scope tenant.Scope) ([]service.Account, error) {
	recs, err := r.store.List(ctx, scope)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	out := make([]service.Account, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toAccount(rec))
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Account, error) {
	rec, err := r.store.Get(ctx, scope, id)
	return toAccount(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) RequestSync(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time) (service.Account, error) {
	rec, err := r.store.RequestSync(ctx, scope, id, at)
	return toAccount(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) RecordSync(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time, failure *string) (service.Account, error) {
	rec, err := r.store.RecordSync(ctx, scope, id, at, failure)
	return toAccount(rec), mapPersistenceError(err)
}

func (r *PostgresRepository) Disconnect(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Account, error) {
	rec, err := r.store.Disconnect(ctx, scope, id)
	return toAccount(rec), mapPersistenceError(err)
}

func toAccount(rec persistence.SocialAccountRecord) service.Account {
	return service.Account{
		ID:              rec.ID,
		Provider:        service.Provider(rec.Provider),
		AccountName:     rec.AccountName,
		LastSyncAt:      rec.LastSyncAt,
		LastSyncError:   rec.LastSyncError,
		SyncRequestedAt: rec.SyncRequestedAt,
		CreatedAt:       rec.CreatedAt,
	}
}

func mapPersistenceError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

var _ service.Repository = (*PostgresRepository)(nil)
