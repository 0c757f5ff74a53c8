package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/whitelabel/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

type ownedDomain struct {
	tenantID uuid.UUID
	domain   service.Domain
}

// MemoryRepository keeps domains and branding in memory. Domain names are unique across tenants.
type MemoryRepository struct {
	mu       sync.RWMutex
	domains  map[uuid.UUID]ownedDomain
	names    map[string]uuid.UUID
	branding map[uuid.UUID]service.Branding
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		domains:  map[uuid.UUID]ownedDomain{},
		names:    map[string]uuid.UUID{},
		branding: map[uuid.UUID]service.Branding{},
		now:      time.Now,
	}
}

func (r *MemoryRepository) ListDomains(_ context.Context, scope tenant.Scope) ([]service.Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []service.Domain{}
	for _, od := range r.domains {
		if od.tenantID == scope.TenantID {
			out = append(out, od.domain)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) get(scope tenant.Scope, id uuid.UUID) (service.Domain, error) {
	od, ok := r.domains[id]
	if !ok || od.tenantID != scope.TenantID {
		return service.Domain{}, service.ErrNotFound
	}
	return od.domain, nil
}

func (r *MemoryRepository) GetDomain(_ context.Context, scope tenant.Scope, id uuid.UUID) (service.Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(scope, id)
}

func (r *MemoryRepository) AddDomain(_ context.Context, scope tenant.Scope, name, token string) (service.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.names[name]; taken {
		return service.Domain{}, service.ErrConflict
	}
	d := service.Domain{ID: uuid.New(), DomainName: name, VerificationToken: token, CreatedAt: r.now().UTC()}
	r.domains[d.ID] = ownedDomain{tenantID: scope.TenantID, domain: d}
	r.names[name] = d.ID
	return d, nil
}

func (r *MemoryRepository) RecordVerification(_ context.Context, scope tenant.Scope, id uuid.UUID, failure *string) (service.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.get(scope, id)
	if err != nil {
		return service.Domain{}, err
	}
	if failure == nil {
		d.IsVerified = true
		d.LastVerificationError = nil
		if d.VerifiedAt == nil {
			at := r.now().UTC()
			d.VerifiedAt = &at
		}
	} else {
		reason := *failure
		d.LastVerificationError = &reason
	}
	r.domains[id] = ownedDomain{tenantID: scope.TenantID, domain: d}
	return d, nil
}

func (r *MemoryRepository) SetPrimary(_ context.Context, scope tenant.Scope, id uuid.UUID) (service.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.get(scope, id)
	if err != nil {
		return service.Domain{}, err
	}
	if !d.IsVerified {
		return service.Domain{}, service.ErrNotVerified
	}
	for otherID, od := range r.domains {
		if od.tenantID == scope.TenantID && od.domain.IsPrimary {
			od.domain.IsPrimary = false
			r.domains[otherID] = od
		}
	}
	d.IsPrimary = true
	r.domains[id] = ownedDomain{tenantID: scope.TenantID, domain: d}
	return d, nil
}

func (r *MemoryRepository) RemoveDomain(_ context.Context, scope tenant.Scope, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.get(scope, id)
	if err != nil {
		return err
	}
	if d.IsPrimary {
		return service.ErrPrimaryRemoval
	}
	delete(r.domains, id)
	delete(r.names, d.DomainName)
	return nil
}

func (r *MemoryRepository) GetBranding(_ context.Context, scope tenant.Scope) (service.Branding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.branding[scope.TenantID]
	if !ok {
		return service.Branding{}, service.ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepository) UpsertBranding(_ context.Context, scope tenant.Scope, b service.Branding) (service.Branding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.UpdatedAt = r.now().UTC()
	r.branding[scope.TenantID] = b
	return b, nil
}

var _ service.Repository = (*MemoryRepository)(nil)
