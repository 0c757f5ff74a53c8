package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/scenes/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

// MemoryRepository is an in-memory implementation suitable for tests and local development.
type MemoryRepository struct {
	mu      sync.RWMutex
	scenes  map[uuid.UUID]service.Scene
	owners  map[uuid.UUID]uuid.UUID
	screens map[uuid.UUID]map[uuid.UUID]service.Screen
	// published maps screen id to the scene it shows.
	published map[uuid.UUID]uuid.UUID
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		scenes:    map[uuid.UUID]service.Scene{},
		owners:    map[uuid.UUID]uuid.UUID{},
		screens:   map[uuid.UUID]map[uuid.UUID]service.Screen{},
		published: map[uuid.UUID]uuid.UUID{},
		now:       time.Now,
	}
}

func (r *MemoryRepository) withCount(sc service.Scene) service.Scene {
	sc.DeviceCount = 0
	for _, sceneID := range r.published {
		if sceneID == sc.ID {
			sc.DeviceCount++
		}
	}
	return sc
}

func (r *MemoryRepository) ListWithDeviceCounts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]service.Scene, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []service.Scene
	for id, sc := range r.scenes {
		if r.owners[id] == scope.TenantID {
			all = append(all, r.withCount(sc))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return append([]service.Scene(nil), all[offset:end]...), total, nil
}

func (r *MemoryRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.scenes[id]
	if !ok || r.owners[id] != scope.TenantID {
		return service.Scene{}, service.ErrNotFound
	}
	return r.withCount(sc), nil
}

func (r *MemoryRepository) Create(ctx context.Context, scope tenant.Scope, sc service.Scene) (service.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	sc.CreatedAt = r.now().UTC()
	sc.DeviceCount = 0
	r.scenes[sc.ID] = sc
	r.owners[sc.ID] = scope.TenantID
	return sc, nil
}

func (r *MemoryRepository) Publish(ctx context.Context, scope tenant.Scope, sceneID uuid.UUID, screenIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenes[sceneID]; !ok || r.owners[sceneID] != scope.TenantID {
		return service.ErrNotFound
	}
	owned := r.screens[scope.TenantID]
	for _, id := range screenIDs {
		if _, ok := owned[id]; !ok {
			return service.ErrUnknownScreens
		}
	}
	for _, id := range screenIDs {
		r.published[id] = sceneID
	}
	return nil
}

func (r *MemoryRepository) CreateScreen(ctx context.Context, scope tenant.Scope, name string) (service.Screen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	screen := service.Screen{ID: uuid.New(), Name: name, CreatedAt: r.now().UTC()}
	if r.screens[scope.TenantID] == nil {
		r.screens[scope.TenantID] = map[uuid.UUID]service.Screen{}
	}
	r.screens[scope.TenantID][screen.ID] = screen
	return screen, nil
}

func (r *MemoryRepository) ListScreens(ctx context.Context, scope tenant.Scope) ([]service.Screen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]service.Screen, 0, len(r.screens[scope.TenantID]))
	for _, s := range r.screens[scope.TenantID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ service.Repository = (*MemoryRepository)(nil)
