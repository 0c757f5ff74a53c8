package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/schedules/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the schedules repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.ScheduleStore
}

func NewPostgresRepository(store *persistence.ScheduleStore) *PostgresRepository {
	if store == nil {
		panic("schedule store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) List(ctx context.Context, scope tenant.Scope) ([]service.Schedule, error) {
	recs, err := r.store.List(ctx, scope)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	out := make([]service.Schedule, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSchedule(rec))
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Schedule, error) {
	rec, err := r.store.Get(ctx, scope, id)
	if err != nil {
		return service.Schedule{}, mapPersistenceError(err)
	}
	return toSchedule(rec), nil
}

func (r *PostgresRepository) Create(ctx context.Context, scope tenant.Scope, name, description string) (service.Schedule, error) {
	rec, err := r.store.Create(ctx, scope, name, description)
	if err != nil {
		return service.Schedule{}, mapPersistenceError(err)
	}
	return toSchedule(rec), nil
}

func (r *PostgresRepository) AddEntry(ctx context.Context, scope tenant.Scope, scheduleID uuid.UUID, entry service.Entry) (service.Entry, error) {
	days := make([]int16, 0, len(entry.DaysOfWeek))
	for _, d := range entry.DaysOfWeek {
		days = append(days, int16(d))
	}
	rec, err := r.store.AddEntry(ctx, scope, scheduleID, persistence.ScheduleEntryRecord{
		ID:          entry.ID,
		PlaylistID:  entry.PlaylistID,
		StartMinute: entry.StartMinute,
		EndMinute:   entry.EndMinute,
		DaysOfWeek:  days,
		Priority:    entry.Priority,
	})
	if err != nil {
		return service.Entry{}, mapPersistenceError(err)
	}
	out := service.Entry{ID: rec.ID, PlaylistID: rec.PlaylistID, StartMinute: rec.StartMinute, EndMinute: rec.EndMinute, Priority: rec.Priority}
	for _, d := range rec.DaysOfWeek {
		out.DaysOfWeek = append(out.DaysOfWeek, time.Weekday(d))
	}
	return out, nil
}

func (r *PostgresRepository) Duplicate(ctx context.Context, scope tenant.Scope, id uuid.UUID, name string) (service.Schedule, error) {
	rec, err := r.store.Duplicate(ctx, scope, id, name)
	if err != nil {
		return service.Schedule{}, mapPersistenceError(err)
	}
	return toSchedule(rec), nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (service.Schedule, error) {
	rec, err := r.store.SetActive(ctx, scope, id, active)
	if err != nil {
		return service.Schedule{}, mapPersistenceError(err)
	}
	return toSchedule(rec), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	return mapPersistenceError(r.store.Delete(ctx, scope, id))
}

func toSchedule(rec persistence.ScheduleRecord) service.Schedule {
	return service.Schedule{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		IsActive:    rec.IsActive,
		EntryCount:  rec.EntryCount,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
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
	default:
		return err
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
