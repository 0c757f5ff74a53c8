package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bizscreen/console/platform/go/tenant"
)

// ScheduleRecord is a schedule row with its derived entry count.
type ScheduleRecord struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	EntryCount  int       `db:"entry_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ScheduleEntryRecord is one time slot of a schedule.
type ScheduleEntryRecord struct {
	ID         uuid.UUID
	PlaylistID *uuid.UUID
	// Minutes since midnight.
	StartMinute int
	EndMinute   int
	DaysOfWeek  []int16
	Priority    int
}

// ScheduleStore exposes persistence helpers for schedules and their entries.
type ScheduleStore struct {
	db *TenantDB
}

func NewScheduleStore(db *TenantDB) (*ScheduleStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &ScheduleStore{db: db}, nil
}

const scheduleSelect = `
    SELECT s.id, s.name, s.description, s.is_active,
           (SELECT COUNT(*) FROM schedule_entries e WHERE e.schedule_id = s.id),
           s.created_at, s.updated_at
    FROM schedules s`

// List returns every schedule of the tenant, most recently updated first.
func (s *ScheduleStore) List(ctx context.Context, scope tenant.Scope) ([]ScheduleRecord, error) {
	var out []ScheduleRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, scheduleSelect+` WHERE s.tenant_id = $1 ORDER BY s.updated_at DESC, s.id`, scope.TenantID)
		if err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ScheduleRecord, error) {
			return scanSchedule(row)
		})
		return err
	})
	return out, err
}

// Get returns one schedule.
func (s *ScheduleStore) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (ScheduleRecord, error) {
	var out ScheduleRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSchedule(tx.QueryRow(ctx, scheduleSelect+` WHERE s.tenant_id = $1 AND s.id = $2`, scope.TenantID, id))
		return err
	})
	return out, mapError(err)
}

// Create inserts an empty, inactive schedule.
func (s *ScheduleStore) Create(ctx context.Context, scope tenant.Scope, name, description string) (ScheduleRecord, error) {
	var out ScheduleRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanSchedule(tx.QueryRow(ctx, `
            INSERT INTO schedules (id, tenant_id, name, description)
            VALUES ($1, $2, $3, $4)
            RETURNING id, name, description, is_active, 0, created_at, updated_at`,
			uuid.New(), scope.TenantID, name, description))
		return err
	})
	return out, mapError(err)
}

// AddEntry appends a time slot to a schedule.
func (s *ScheduleStore) AddEntry(ctx context.Context, scope tenant.Scope, scheduleID uuid.UUID, entry ScheduleEntryRecord) (ScheduleEntryRecord, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            INSERT INTO schedule_entries (id, schedule_id, tenant_id, playlist_id, start_minute, end_minute, days_of_week, priority)
            SELECT $1, s.id, s.tenant_id, $3, $4, $5, $6, $7
            FROM schedules s WHERE s.id = $2 AND s.tenant_id = $8`,
			entry.ID, scheduleID, entry.PlaylistID, entry.StartMinute, entry.EndMinute, entry.DaysOfWeek, entry.Priority, scope.TenantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		_, err = tx.Exec(ctx, `UPDATE schedules SET updated_at = NOW() WHERE id = $1`, scheduleID)
		return err
	})
	return entry, mapError(err)
}

// Duplicate copies a schedule and its entries. The copy is inactive.
func (s *ScheduleStore) Duplicate(ctx context.Context, scope tenant.Scope, id uuid.UUID, name string) (ScheduleRecord, error) {
	var out ScheduleRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		newID := uuid.New()
		tag, err := tx.Exec(ctx, `
            INSERT INTO schedules (id, tenant_id, name, description, is_active)
            SELECT $1, tenant_id, $3, description, FALSE
            FROM schedules WHERE id = $2 AND tenant_id = $4`,
			newID, id, name, scope.TenantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO schedule_entries (id, schedule_id, tenant_id, playlist_id, start_minute, end_minute, days_of_week, priority)
            SELECT gen_random_uuid(), $1, tenant_id, playlist_id, start_minute, end_minute, days_of_week, priority
            FROM schedule_entries WHERE schedule_id = $2`, newID, id); err != nil {
			return fmt.Errorf("copy schedule entries: %w", err)
		}

		out, err = scanSchedule(tx.QueryRow(ctx, scheduleSelect+` WHERE s.id = $1`, newID))
		return err
	})
	return out, mapError(err)
}

// SetActive writes the active flag and returns the updated row.
func (s *ScheduleStore) SetActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (ScheduleRecord, error) {
	var out ScheduleRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE schedules SET is_active = $3, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`,
			id, scope.TenantID, active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		out, err = scanSchedule(tx.QueryRow(ctx, scheduleSelect+` WHERE s.id = $1`, id))
		return err
	})
	return out, mapError(err)
}

// Delete removes a schedule and, by cascade, its entries.
func (s *ScheduleStore) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM schedules WHERE id = $1 AND tenant_id = $2`, id, scope.TenantID)
		if err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	return mapError(err)
}

func scanSchedule(row pgx.Row) (ScheduleRecord, error) {
	var rec ScheduleRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.IsActive, &rec.EntryCount, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
