// Package page is the controller behind the white-label settings screen.
package page

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/whitelabel/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// VerifyPanel is the inline outcome shown under a domain after a manual check.
type VerifyPanel struct {
	Verified bool
	Reason   string
}

// View is what the screen renders.
type View struct {
	Domains []service.Domain
	Loading bool
	Err     string
	// Pending holds the DNS instruction of the most recently added domain.
	Pending  *service.VerificationInstruction
	Panels   map[uuid.UUID]VerifyPanel
	Branding service.Branding
}

// Page owns the domains list and branding form of one tenant.
type Page struct {
	svc      service.Service
	scope    tenant.Scope
	notify   pagestate.Notifier
	logger   *zap.Logger
	domains  *pagestate.Loader[struct{}, []service.Domain]
	branding *pagestate.Loader[struct{}, service.Branding]

	mu      sync.Mutex
	pending *service.VerificationInstruction
	panels  map[uuid.UUID]VerifyPanel
}

func New(lifetime context.Context, svc service.Service, scope tenant.Scope, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("whitelabel service is required")
	}
	if notify == nil {
		panic("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Page{
		svc:    svc,
		scope:  scope,
		notify: notify,
		logger: logger,
		panels: map[uuid.UUID]VerifyPanel{},
		domains: pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) ([]service.Domain, error) {
			return svc.ListDomains(ctx, scope)
		}),
		branding: pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) (service.Branding, error) {
			return svc.GetBranding(ctx, scope)
		}),
	}
}

func byID(d service.Domain) uuid.UUID { return d.ID }

// Load fetches domains and branding. Either failure sets the banner.
func (p *Page) Load(ctx context.Context) error {
	if _, err := p.domains.Load(ctx, struct{}{}); err != nil {
		return err
	}
	_, err := p.branding.Load(ctx, struct{}{})
	return err
}

// Retry re-runs both loads.
func (p *Page) Retry(ctx context.Context) error {
	if _, err := p.domains.Reload(ctx); err != nil {
		return err
	}
	_, err := p.branding.Reload(ctx)
	return err
}

// AddDomain appends the pending domain and keeps its DNS instruction on screen.
func (p *Page) AddDomain(ctx context.Context, name string) (service.Domain, error) {
	if _, err := service.NormalizeHostname(name); err != nil {
		verr := validation.New(map[string]string{"domainName": err.Error()})
		p.notify.Notify(pagestate.Failure("Add domain", verr))
		return service.Domain{}, verr
	}
	d, inst, err := p.svc.AddDomain(ctx, p.scope, name)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Add domain", err))
		return service.Domain{}, err
	}
	p.domains.Update(func(items []service.Domain) []service.Domain { return append(items, d) })
	p.mu.Lock()
	p.pending = &inst
	p.mu.Unlock()
	p.notify.Notify(pagestate.Success("Domain added, publish the TXT record to verify it"))
	return d, nil
}

// Verify runs one DNS check. The outcome is shown inline; only request failures toast.
func (p *Page) Verify(ctx context.Context, id uuid.UUID) (VerifyPanel, error) {
	res, err := p.svc.VerifyDomain(ctx, p.scope, id)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Verify domain", err))
		return VerifyPanel{}, err
	}
	p.domains.Update(func(items []service.Domain) []service.Domain {
		out, _ := pagestate.ReplaceBy(items, id, byID, res.Domain)
		return out
	})
	panel := VerifyPanel{Verified: res.Verified, Reason: res.Reason}
	p.mu.Lock()
	p.panels[id] = panel
	if res.Verified && p.pending != nil && p.pending.Host == res.Domain.Instruction().Host {
		p.pending = nil
	}
	p.mu.Unlock()
	return panel, nil
}

// SetPrimary patches the primary flag of every row once the server confirms.
func (p *Page) SetPrimary(ctx context.Context, id uuid.UUID) error {
	d, err := p.svc.SetPrimaryDomain(ctx, p.scope, id)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Set primary domain", err))
		return err
	}
	p.domains.Update(func(items []service.Domain) []service.Domain {
		out := make([]service.Domain, 0, len(items))
		for _, it := range items {
			if it.ID == id {
				it = d
			} else {
				it.IsPrimary = false
			}
			out = append(out, it)
		}
		return out
	})
	p.notify.Notify(pagestate.Success(d.DomainName + " is now the primary domain"))
	return nil
}

// Remove drops the domain from the list after the server deletes it.
func (p *Page) Remove(ctx context.Context, id uuid.UUID) error {
	if err := p.svc.RemoveDomain(ctx, p.scope, id); err != nil {
		p.notify.Notify(pagestate.Failure("Remove domain", err))
		return err
	}
	p.domains.Update(func(items []service.Domain) []service.Domain {
		out, _ := pagestate.RemoveBy(items, id, byID)
		return out
	})
	p.mu.Lock()
	delete(p.panels, id)
	p.mu.Unlock()
	p.notify.Notify(pagestate.Success("Domain removed"))
	return nil
}

// SaveBranding writes the branding form.
func (p *Page) SaveBranding(ctx context.Context, b service.Branding) error {
	saved, err := p.svc.SaveBranding(ctx, p.scope, b)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Save branding", err))
		return err
	}
	p.branding.Update(func(service.Branding) service.Branding { return saved })
	p.notify.Notify(pagestate.Success("Branding saved"))
	return nil
}

func (p *Page) View() View {
	ds := p.domains.State()
	bs := p.branding.State()
	errText := ds.Err
	if errText == "" {
		errText = bs.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	panels := make(map[uuid.UUID]VerifyPanel, len(p.panels))
	for k, v := range p.panels {
		panels[k] = v
	}
	var pending *service.VerificationInstruction
	if p.pending != nil {
		cp := *p.pending
		pending = &cp
	}
	return View{
		Domains:  ds.Data,
		Loading:  ds.Loading || bs.Loading,
		Err:      errText,
		Pending:  pending,
		Panels:   panels,
		Branding: bs.Data,
	}
}

func (p *Page) Close() {
	p.domains.Close()
	p.branding.Close()
}
