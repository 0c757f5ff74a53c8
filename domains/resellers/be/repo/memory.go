package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/resellers/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

type ownedLicense struct {
	tenantID uuid.UUID
	license  service.License
}

// MemoryRepository keeps reseller accounts and licenses in memory. Codes are unique across tenants.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]service.Account
	licenses map[string]ownedLicense
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: map[uuid.UUID]service.Account{},
		licenses: map[string]ownedLicense{},
		now:      time.Now,
	}
}

// CreateAccount registers a pending reseller for tenantID.
func (r *MemoryRepository) CreateAccount(tenantID uuid.UUID, company string, commission float64) service.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct := service.Account{
		ID:                uuid.New(),
		CompanyName:       company,
		Status:            service.AccountPending,
		CommissionPercent: commission,
		CreatedAt:         r.now().UTC(),
	}
	r.accounts[tenantID] = acct
	return acct
}

// SetAccountStatus changes the reseller status of tenantID.
func (r *MemoryRepository) SetAccountStatus(tenantID uuid.UUID, status service.AccountStatus) (service.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[tenantID]
	if !ok {
		return service.Account{}, service.ErrNotReseller
	}
	acct.Status = status
	r.accounts[tenantID] = acct
	return acct, nil
}

func (r *MemoryRepository) GetAccount(_ context.Context, scope tenant.Scope) (service.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[scope.TenantID]
	if !ok {
		return service.Account{}, service.ErrNotReseller
	}
	return acct, nil
}

func (r *MemoryRepository) owned(scope tenant.Scope, resellerID uuid.UUID, status *service.LicenseStatus) []service.License {
	out := []service.License{}
	for _, ol := range r.licenses {
		if ol.tenantID != scope.TenantID || ol.license.ResellerID != resellerID {
			continue
		}
		if status != nil && ol.license.Status != *status {
			continue
		}
		out = append(out, ol.license)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (r *MemoryRepository) Portfolio(_ context.Context, scope tenant.Scope, resellerID uuid.UUID) (service.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var p service.Portfolio
	clients := map[uuid.UUID]struct{}{}
	for _, l := range r.owned(scope, resellerID, nil) {
		p.Licenses.Total++
		if l.Status == service.LicenseAvailable {
			p.Licenses.Available++
			continue
		}
		p.Licenses.Activated++
		p.ScreensProvisioned += l.MaxScreens
		if l.ActivatedTenantID != nil {
			clients[*l.ActivatedTenantID] = struct{}{}
		}
	}
	p.Clients = len(clients)
	return p, nil
}

func (r *MemoryRepository) InsertLicenses(_ context.Context, scope tenant.Scope, resellerID uuid.UUID, codes []string, planLevel string, maxScreens int) ([]service.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	out := make([]service.License, 0, len(codes))
	for _, code := range codes {
		if _, taken := r.licenses[code]; taken {
			continue
		}
		l := service.License{
			ID:         uuid.New(),
			ResellerID: resellerID,
			Code:       code,
			Status:     service.LicenseAvailable,
			PlanLevel:  planLevel,
			MaxScreens: maxScreens,
			CreatedAt:  now,
		}
		r.licenses[code] = ownedLicense{tenantID: scope.TenantID, license: l}
		out = append(out, l)
	}
	return out, nil
}

func (r *MemoryRepository) ListLicenses(_ context.Context, scope tenant.Scope, resellerID uuid.UUID, status *service.LicenseStatus, limit, offset int) ([]service.License, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.owned(scope, resellerID, status)
	total := len(all)
	if limit == 0 {
		return all, total, nil
	}
	if offset >= total {
		return []service.License{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r *MemoryRepository) Counts(_ context.Context, scope tenant.Scope, resellerID uuid.UUID) (service.LicenseCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var c service.LicenseCounts
	for _, l := range r.owned(scope, resellerID, nil) {
		c.Total++
		if l.Status == service.LicenseAvailable {
			c.Available++
		} else {
			c.Activated++
		}
	}
	return c, nil
}

func (r *MemoryRepository) Activate(_ context.Context, code string, tenantID uuid.UUID) (service.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ol, ok := r.licenses[code]
	if !ok {
		return service.License{}, service.ErrLicenseNotFound
	}
	if ol.license.Status != service.LicenseAvailable {
		return service.License{}, service.ErrAlreadyActivated
	}
	now := r.now().UTC()
	ol.license.Status = service.LicenseActivated
	ol.license.ActivatedTenantID = &tenantID
	ol.license.ActivatedAt = &now
	r.licenses[code] = ol
	return ol.license, nil
}

var _ service.Repository = (*MemoryRepository)(nil)
