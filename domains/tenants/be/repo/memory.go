package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/tenants/be/service"
)

// MemoryRepository keeps the tenant registry in memory. Content counts are seeded with SetCounts
// because the other domains keep their own stores.
type MemoryRepository struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]service.Tenant
	bySlug    map[string]uuid.UUID
	counts    map[uuid.UUID]service.ClientStats
	flags     map[uuid.UUID]map[string]bool
	activated int
	now       func() time.Time

	// ClientStatsCalls counts repository round trips for stats lookups.
	ClientStatsCalls int
	TotalsCalls      int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   map[uuid.UUID]service.Tenant{},
		bySlug: map[string]uuid.UUID{},
		counts: map[uuid.UUID]service.ClientStats{},
		flags:  map[uuid.UUID]map[string]bool{},
		now:    time.Now,
	}
}

// SetCounts seeds the content counts reported for a tenant.
func (r *MemoryRepository) SetCounts(id uuid.UUID, screens, scenes, schedules int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id] = service.ClientStats{TenantID: id, Screens: screens, Scenes: scenes, Schedules: schedules}
}

// SetLicensesActivated seeds the platform-wide activated license count.
func (r *MemoryRepository) SetLicensesActivated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activated = n
}

func (r *MemoryRepository) Create(_ context.Context, t service.Tenant) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.bySlug[t.Slug]; taken {
		return service.Tenant{}, service.ErrConflictSlug
	}
	// strictly increasing so newest-first ordering is stable in tests
	t.CreatedAt = r.now().UTC().Add(time.Duration(len(r.byID)) * time.Millisecond)
	t.Flags = nil
	r.byID[t.ID] = t
	r.bySlug[t.Slug] = t.ID
	return t, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id uuid.UUID, status service.Status) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	t.Status = status
	r.byID[id] = t
	return t, nil
}

func (r *MemoryRepository) List(_ context.Context, status *service.Status, limit, offset int) ([]service.Tenant, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]service.Tenant, 0, len(r.byID))
	for _, t := range r.byID {
		if status != nil && t.Status != *status {
			continue
		}
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	total := len(items)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], total, nil
}

func (r *MemoryRepository) ClientStats(_ context.Context, ids []uuid.UUID) ([]service.ClientStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ClientStatsCalls++
	out := make([]service.ClientStats, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			continue
		}
		s := r.counts[id]
		s.TenantID = id
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRepository) Totals(_ context.Context) (service.Totals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TotalsCalls++
	out := service.Totals{Tenants: len(r.byID), LicensesActivated: r.activated}
	for id, t := range r.byID {
		switch t.Status {
		case service.StatusActive:
			out.ActiveTenants++
		case service.StatusSuspended:
			out.SuspendedTenants++
		}
		c := r.counts[id]
		out.Screens += c.Screens
		out.Scenes += c.Scenes
		out.Schedules += c.Schedules
	}
	return out, nil
}

func (r *MemoryRepository) SetFeatureFlag(_ context.Context, tenantID uuid.UUID, flag string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[tenantID]; !ok {
		return service.ErrNotFound
	}
	if r.flags[tenantID] == nil {
		r.flags[tenantID] = map[string]bool{}
	}
	r.flags[tenantID][flag] = enabled
	return nil
}

func (r *MemoryRepository) FeatureFlags(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]map[string]bool, len(ids))
	for _, id := range ids {
		stored, ok := r.flags[id]
		if !ok {
			continue
		}
		cp := make(map[string]bool, len(stored))
		for k, v := range stored {
			cp[k] = v
		}
		out[id] = cp
	}
	return out, nil
}

var _ service.Repository = (*MemoryRepository)(nil)
