package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/assistant/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// MemoryPlaylists stores materialized playlists in memory.
type MemoryPlaylists struct {
	mu    sync.RWMutex
	items map[uuid.UUID]map[uuid.UUID]service.Playlist
	now   func() time.Time
}

func NewMemoryPlaylists() *MemoryPlaylists {
	return &MemoryPlaylists{items: map[uuid.UUID]map[uuid.UUID]service.Playlist{}, now: time.Now}
}

func (r *MemoryPlaylists) Create(_ context.Context, scope tenant.Scope, p service.Playlist) (service.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = r.now().UTC()
	p.Slides = append([]service.Slide(nil), p.Slides...)
	if r.items[scope.TenantID] == nil {
		r.items[scope.TenantID] = map[uuid.UUID]service.Playlist{}
	}
	r.items[scope.TenantID][p.ID] = p
	return p, nil
}

// Count reports how many playlists a tenant has.
func (r *MemoryPlaylists) Count(tenantID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items[tenantID])
}

// PostgresPlaylists persists playlists through persistence.PlaylistStore.
type PostgresPlaylists struct {
	store *persistence.PlaylistStore
}

func NewPostgresPlaylists(store *persistence.PlaylistStore) *PostgresPlaylists {
	if store == nil {
		panic("playlist store is required")
	}
	return &PostgresPlaylists{store: store}
}

func (r *PostgresPlaylists) Create(ctx context.Context, scope tenant.Scope, p service.Playlist) (service.Playlist, error) {
	items := make([]persistence.PlaylistItemRecord, 0, len(p.Slides))
	for _, s := range p.Slides {
		items = append(items, persistence.PlaylistItemRecord{Title: s.Title, Body: s.Body, DurationSeconds: s.DurationSeconds})
	}
	rec, err := r.store.Create(ctx, scope, persistence.PlaylistRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Items:       items,
	})
	if err != nil {
		return service.Playlist{}, err
	}
	p.ID = rec.ID
	p.CreatedAt = rec.CreatedAt
	return p, nil
}

var (
	_ service.PlaylistRepository = (*MemoryPlaylists)(nil)
	_ service.PlaylistRepository = (*PostgresPlaylists)(nil)
)
