package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/activity/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

// MemoryRepository is an in-memory implementation suitable for tests and local development.
type MemoryRepository struct {
	mu    sync.RWMutex
	byTen map[uuid.UUID][]service.Activity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byTen: map[uuid.UUID][]service.Activity{}}
}

func (r *MemoryRepository) Append(ctx context.Context, scope tenant.Scope, a service.Activity, requestID string) (service.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTen[scope.TenantID] = append(r.byTen[scope.TenantID], a)
	return a, nil
}

func (r *MemoryRepository) matching(scope tenant.Scope, w service.Window) []service.Activity {
	var out []service.Activity
	for _, a := range r.byTen[scope.TenantID] {
		if a.CreatedAt.Before(w.Since) || (!w.Until.IsZero() && a.CreatedAt.After(w.Until)) {
			continue
		}
		if w.ResourceType != nil && a.ResourceType != *w.ResourceType {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MemoryRepository) List(ctx context.Context, scope tenant.Scope, w service.Window, limit, offset int) ([]service.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.matching(scope, w)
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]service.Activity(nil), items[offset:end]...), nil
}

func (r *MemoryRepository) Count(ctx context.Context, scope tenant.Scope, w service.Window) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matching(scope, w)), nil
}

var _ service.Repository = (*MemoryRepository)(nil)
