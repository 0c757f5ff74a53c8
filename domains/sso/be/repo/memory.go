package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/sso/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

// MemoryRepository keeps one provider per tenant in memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	providers map[uuid.UUID]service.Provider
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{providers: map[uuid.UUID]service.Provider{}, now: time.Now}
}

func (r *MemoryRepository) Get(_ context.Context, scope tenant.Scope) (service.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[scope.TenantID]
	if !ok {
		return service.Provider{}, service.ErrNotConfigured
	}
	return p, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, scope tenant.Scope, p service.Provider) (service.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.UpdatedAt = r.now().UTC()
	r.providers[scope.TenantID] = p
	return p, nil
}

var _ service.Repository = (*MemoryRepository)(nil)
