package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bizscreen/console/platform/go/tenant"
)

// ActivityRecord is one append-only audit row.
type ActivityRecord struct {
	ID           uuid.UUID `db:"id"`
	ActorKind    string    `db:"actor_kind"`
	ActorID      *string   `db:"actor_id"`
	Actor        string    `db:"actor"`
	Action       string    `db:"action"`
	ResourceType string    `db:"resource_type"`
	ResourceID   *string   `db:"resource_id"`
	RequestID    *string   `db:"request_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// ActivityFilter narrows the log. Both bounds are inclusive; a zero Until is open-ended.
type ActivityFilter struct {
	ResourceType *string
	Since        time.Time
	Until        time.Time
}

// ActivityStore appends to and reads from the activity log. There is no update or delete.
type ActivityStore struct {
	db *TenantDB
}

func NewActivityStore(db *TenantDB) (*ActivityStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &ActivityStore{db: db}, nil
}

// Append inserts a row.
func (s *ActivityStore) Append(ctx context.Context, scope tenant.Scope, rec ActivityRecord) (ActivityRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	var out ActivityRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanActivity(tx.QueryRow(ctx, `
            INSERT INTO activity_log (id, tenant_id, actor_kind, actor_id, actor, action, resource_type, resource_id, request_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING id, actor_kind, actor_id, actor, action, resource_type, resource_id, request_id, created_at`,
			rec.ID, scope.TenantID, rec.ActorKind, rec.ActorID, rec.Actor, rec.Action, rec.ResourceType, rec.ResourceID, rec.RequestID))
		return err
	})
	return out, mapError(err)
}

func activityWhere(scope tenant.Scope, filter ActivityFilter) (string, []any) {
	parts := []string{"tenant_id = $1", "created_at >= $2"}
	args := []any{scope.TenantID, filter.Since}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		parts = append(parts, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.ResourceType != nil && strings.TrimSpace(*filter.ResourceType) != "" {
		args = append(args, strings.TrimSpace(*filter.ResourceType))
		parts = append(parts, fmt.Sprintf("resource_type = $%d", len(args)))
	}
	return strings.Join(parts, " AND "), args
}

// List returns one page of rows, newest first.
func (s *ActivityStore) List(ctx context.Context, scope tenant.Scope, filter ActivityFilter, limit, offset int) ([]ActivityRecord, error) {
	where, args := activityWhere(scope, filter)
	args = append(args, limit, offset)

	var out []ActivityRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, fmt.Sprintf(`
            SELECT id, actor_kind, actor_id, actor, action, resource_type, resource_id, request_id, created_at
            FROM activity_log
            WHERE %s
            ORDER BY created_at DESC, id
            LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
		if err != nil {
			return fmt.Errorf("list activity: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ActivityRecord, error) {
			return scanActivity(row)
		})
		return err
	})
	return out, err
}

// Count returns the number of rows matching filter.
func (s *ActivityStore) Count(ctx context.Context, scope tenant.Scope, filter ActivityFilter) (int, error) {
	where, args := activityWhere(scope, filter)
	var total int
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, "SELECT COUNT(*) FROM activity_log WHERE "+where, args...).Scan(&total)
	})
	return total, err
}

func scanActivity(row pgx.Row) (ActivityRecord, error) {
	var rec ActivityRecord
	err := row.Scan(&rec.ID, &rec.ActorKind, &rec.ActorID, &rec.Actor, &rec.Action, &rec.ResourceType, &rec.ResourceID, &rec.RequestID, &rec.CreatedAt)
	return rec, err
}
