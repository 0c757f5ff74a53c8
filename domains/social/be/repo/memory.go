package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/social/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

type ownedAccount struct {
	tenantID uuid.UUID
	account  service.Account
}

// MemoryRepository keeps social accounts in memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]ownedAccount
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: map[uuid.UUID]ownedAccount{}, now: time.Now}
}

func (r *MemoryRepository) Connect(_ context.Context, scope tenant.Scope, provider service.Provider, accountName string) (service.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := service.Account{ID: uuid.New(), Provider: provider, AccountName: accountName, CreatedAt: r.now().UTC()}
	r.accounts[a.ID] = ownedAccount{tenantID: scope.TenantID, account: a}
	return a, nil
}

func (r *MemoryRepository) List(_ context.Context, scope tenant.Scope) ([]service.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []service.Account{}
	for _, oa := range r.accounts {
		if oa.tenantID == scope.TenantID {
			out = append(out, oa.account)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		if out[i].AccountName != out[j].AccountName {
			return out[i].AccountName < out[j].AccountName
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryRepository) get(scope tenant.Scope, id uuid.UUID) (service.Account, error) {
	oa, ok := r.accounts[id]
	if !ok || oa.tenantID != scope.TenantID {
		return service.Account{}, service.ErrNotFound
	}
	return oa.account, nil
}

func (r *MemoryRepository) Get(_ context.Context, scope tenant.Scope, id uuid.UUID) (service.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(scope, id)
}

func (r *MemoryRepository) update(scope tenant.Scope, id uuid.UUID, fn func(*service.Account)) (service.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.get(scope, id)
	if err != nil {
		return service.Account{}, err
	}
	fn(&a)
	r.accounts[id] = ownedAccount{tenantID: scope.TenantID, account: a}
	return a, nil
}

func (r *MemoryRepository) RequestSync(_ context.Context, scope tenant.Scope, id uuid.UUID, at time.Time) (service.Account, error) {
	return r.update(scope, id, func(a *service.Account) { a.SyncRequestedAt = &at })
}

func (r *MemoryRepository) RecordSync(_ context.Context, scope tenant.Scope, id uuid.UUID, at time.Time, failure *string) (service.Account, error) {
	return r.update(scope, id, func(a *service.Account) {
		if failure == nil {
			a.LastSyncAt = &at
		}
		a.LastSyncError = failure
		a.SyncRequestedAt = nil
	})
}

func (r *MemoryRepository) Disconnect(_ context.Context, scope tenant.Scope, id uuid.UUID) (service.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.get(scope, id)
	if err != nil {
		return service.Account{}, err
	}
	delete(r.accounts, id)
	return a, nil
}

var _ service.Repository = (*MemoryRepository)(nil)
