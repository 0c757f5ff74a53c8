package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/profiles/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

// MemoryRepository is an in-memory implementation suitable for tests and local development.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]service.BusinessContext
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[uuid.UUID]service.BusinessContext{}}
}

// Get returns a zero context when the tenant has none; the service decides what that means.
func (r *MemoryRepository) Get(ctx context.Context, scope tenant.Scope) (service.BusinessContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rows[scope.TenantID], nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, scope tenant.Scope, bc service.BusinessContext) (service.BusinessContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bc.UpdatedAt = time.Now().UTC()
	r.rows[scope.TenantID] = bc
	return bc, nil
}

var _ service.Repository = (*MemoryRepository)(nil)
