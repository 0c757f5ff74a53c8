package repo

import (
	"context"

	"github.com/bizscreen/console/domains/activity/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the activity repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.ActivityStore
}

func NewPostgresRepository(store *persistence.ActivityStore) *PostgresRepository {
	if store == nil {
		panic("activity store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Append(ctx context.Context, scope tenant.Scope, a service.Activity, requestID string) (service.Activity, error) {
	rec := persistence.ActivityRecord{
		ID:           a.ID,
		ActorKind:    string(a.ActorKind),
		Actor:        a.Actor,
		Action:       a.Action,
		ResourceType: a.ResourceType,
		ResourceID:   a.ResourceID,
	}
	if requestID != "" {
		rec.RequestID = &requestID
	}
	if scope.UserID != "" && (a.ActorKind == requesttrace.ActorKindUser || a.ActorKind == requesttrace.ActorKindSupport) {
		uid := scope.UserID
		rec.ActorID = &uid
	}
	out, err := r.store.Append(ctx, scope, rec)
	if err != nil {
		return service.Activity{}, err
	}
	return toActivity(out), nil
}

func (r *PostgresRepository) List(ctx context.Context, scope tenant.Scope, w service.Window, limit, offset int) ([]service.Activity, error) {
	rows, err := r.store.List(ctx, scope, persistence.ActivityFilter{ResourceType: w.ResourceType, Since: w.Since, Until: w.Until}, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]service.Activity, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toActivity(rec))
	}
	return out, nil
}

func (r *PostgresRepository) Count(ctx context.Context, scope tenant.Scope, w service.Window) (int, error) {
	return r.store.Count(ctx, scope, persistence.ActivityFilter{ResourceType: w.ResourceType, Since: w.Since, Until: w.Until})
}

func toActivity(rec persistence.ActivityRecord) service.Activity {
	return service.Activity{
		ID:           rec.ID,
		Actor:        rec.Actor,
		ActorKind:    requesttrace.ActorKind(rec.ActorKind),
		Action:       rec.Action,
		ResourceType: rec.ResourceType,
		ResourceID:   rec.ResourceID,
		CreatedAt:    rec.CreatedAt,
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
