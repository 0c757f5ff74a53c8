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

// PlaylistRecord is a playlist with its ordered items.
type PlaylistRecord struct {
	ID          uuid.UUID
	Name        string
	Description string
	Items       []PlaylistItemRecord
	CreatedAt   time.Time
}

// PlaylistItemRecord is one slide of a playlist.
type PlaylistItemRecord struct {
	Position        int
	Title           string
	Body            string
	DurationSeconds int
}

// PlaylistStore exposes persistence helpers for playlists.
type PlaylistStore struct {
	db *TenantDB
}

func NewPlaylistStore(db *TenantDB) (*PlaylistStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &PlaylistStore{db: db}, nil
}

// Create inserts a playlist and its items in one transaction.
func (s *PlaylistStore) Create(ctx context.Context, scope tenant.Scope, rec PlaylistRecord) (PlaylistRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO playlists (id, tenant_id, name, description) VALUES ($1, $2, $3, $4)
            RETURNING created_at`, rec.ID, scope.TenantID, rec.Name, rec.Description,
		).Scan(&rec.CreatedAt); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i := range rec.Items {
			rec.Items[i].Position = i
			item := rec.Items[i]
			batch.Queue(`
                INSERT INTO playlist_items (id, playlist_id, tenant_id, position, title, body, duration_seconds)
                VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.New(), rec.ID, scope.TenantID, item.Position, item.Title, item.Body, item.DurationSeconds)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert playlist items: %w", err)
		}
		return nil
	})
	if err != nil {
		return PlaylistRecord{}, mapError(err)
	}
	return rec, nil
}

// Get returns a playlist with its items.
func (s *PlaylistStore) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (PlaylistRecord, error) {
	var out PlaylistRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            SELECT id, name, description, created_at FROM playlists WHERE id = $1 AND tenant_id = $2`,
			id, scope.TenantID).Scan(&out.ID, &out.Name, &out.Description, &out.CreatedAt); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `
            SELECT position, title, body, duration_seconds FROM playlist_items
            WHERE playlist_id = $1 ORDER BY position`, id)
		if err != nil {
			return err
		}
		out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByPos[PlaylistItemRecord])
		return err
	})
	return out, mapError(err)
}
