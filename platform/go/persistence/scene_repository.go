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

// SceneRecord is a scene row. DeviceCount is computed from published screens.
type SceneRecord struct {
	ID                  uuid.UUID  `db:"id"`
	Name                string     `db:"name"`
	BusinessType        string     `db:"business_type"`
	LayoutID            *uuid.UUID `db:"layout_id"`
	PrimaryPlaylistID   *uuid.UUID `db:"primary_playlist_id"`
	SecondaryPlaylistID *uuid.UUID `db:"secondary_playlist_id"`
	DeviceCount         int        `db:"device_count"`
	CreatedAt           time.Time  `db:"created_at"`
}

// ScreenRecord is a physical display.
type ScreenRecord struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// ErrUnknownScreens is returned when a publish names screens outside the tenant.
var ErrUnknownScreens = errors.New("one or more screens do not exist")

// SceneStore exposes persistence helpers for scenes, screens and publications.
type SceneStore struct {
	db *TenantDB
}

func NewSceneStore(db *TenantDB) (*SceneStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &SceneStore{db: db}, nil
}

const sceneSelect = `
    SELECT s.id, s.name, s.business_type, s.layout_id, s.primary_playlist_id, s.secondary_playlist_id,
           COUNT(p.screen_id), s.created_at
    FROM scenes s
    LEFT JOIN scene_publications p ON p.scene_id = s.id`

// ListWithDeviceCounts returns one page of scenes with their device counts in a single grouped query.
func (s *SceneStore) ListWithDeviceCounts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]SceneRecord, int, error) {
	var (
		out   []SceneRecord
		total int
	)
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM scenes WHERE tenant_id = $1`, scope.TenantID).Scan(&total); err != nil {
			return fmt.Errorf("count scenes: %w", err)
		}
		rows, err := tx.Query(ctx, sceneSelect+`
            WHERE s.tenant_id = $1
            GROUP BY s.id
            ORDER BY s.created_at DESC, s.id
            LIMIT $2 OFFSET $3`, scope.TenantID, limit, offset)
		if err != nil {
			return fmt.Errorf("list scenes: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (SceneRecord, error) {
			return scanScene(row)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get returns a scene with its device count.
func (s *SceneStore) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (SceneRecord, error) {
	var out SceneRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanScene(tx.QueryRow(ctx, sceneSelect+` WHERE s.tenant_id = $1 AND s.id = $2 GROUP BY s.id`, scope.TenantID, id))
		return err
	})
	return out, mapError(err)
}

// Create inserts a scene.
func (s *SceneStore) Create(ctx context.Context, scope tenant.Scope, rec SceneRecord) (SceneRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	var out SceneRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanScene(tx.QueryRow(ctx, `
            INSERT INTO scenes (id, tenant_id, name, business_type, layout_id, primary_playlist_id, secondary_playlist_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id, name, business_type, layout_id, primary_playlist_id, secondary_playlist_id, 0, created_at`,
			rec.ID, scope.TenantID, rec.Name, rec.BusinessType, rec.LayoutID, rec.PrimaryPlaylistID, rec.SecondaryPlaylistID))
		return err
	})
	if isForeignKeyViolation(err) {
		return SceneRecord{}, ErrNotFound
	}
	return out, mapError(err)
}

// Publish assigns the scene to the given screens. A screen shows one scene, so earlier
// publications of those screens are replaced.
func (s *SceneStore) Publish(ctx context.Context, scope tenant.Scope, sceneID uuid.UUID, screenIDs []uuid.UUID) error {
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM scenes WHERE id = $1 AND tenant_id = $2)`,
			sceneID, scope.TenantID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}

		if _, err := tx.Exec(ctx, `DELETE FROM scene_publications WHERE tenant_id = $1 AND screen_id = ANY($2)`,
			scope.TenantID, screenIDs); err != nil {
			return fmt.Errorf("clear publications: %w", err)
		}

		tag, err := tx.Exec(ctx, `
            INSERT INTO scene_publications (scene_id, screen_id, tenant_id)
            SELECT $1, sc.id, sc.tenant_id FROM screens sc
            WHERE sc.tenant_id = $2 AND sc.id = ANY($3)`,
			sceneID, scope.TenantID, screenIDs)
		if err != nil {
			return fmt.Errorf("publish scene: %w", err)
		}
		if int(tag.RowsAffected()) != countDistinct(screenIDs) {
			return ErrUnknownScreens
		}
		return nil
	})
	return mapError(err)
}

// CreateScreen registers a screen.
func (s *SceneStore) CreateScreen(ctx context.Context, scope tenant.Scope, name string) (ScreenRecord, error) {
	var out ScreenRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            INSERT INTO screens (id, tenant_id, name) VALUES ($1, $2, $3)
            RETURNING id, name, created_at`, uuid.New(), scope.TenantID, name,
		).Scan(&out.ID, &out.Name, &out.CreatedAt)
	})
	return out, mapError(err)
}

// ListScreens returns the tenant's screens by name.
func (s *SceneStore) ListScreens(ctx context.Context, scope tenant.Scope) ([]ScreenRecord, error) {
	var out []ScreenRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, name, created_at FROM screens WHERE tenant_id = $1 ORDER BY name, id`, scope.TenantID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByPos[ScreenRecord])
		return err
	})
	return out, err
}

func scanScene(row pgx.Row) (SceneRecord, error) {
	var rec SceneRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.BusinessType, &rec.LayoutID, &rec.PrimaryPlaylistID, &rec.SecondaryPlaylistID, &rec.DeviceCount, &rec.CreatedAt)
	return rec, err
}

func countDistinct(ids []uuid.UUID) int {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
