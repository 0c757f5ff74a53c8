// Package page is the controller behind the social integrations screen.
package page

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/social/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
)

// View is what the screen renders.
type View struct {
	Accounts []service.AccountWithStatus
	Loading  bool
	Err      string
	// Busy holds accounts with a sync or disconnect in flight.
	Busy map[uuid.UUID]bool
}

// Page owns the connected accounts list of one tenant.
type Page struct {
	svc    service.Service
	scope  tenant.Scope
	notify pagestate.Notifier
	logger *zap.Logger
	loader *pagestate.Loader[struct{}, []service.AccountWithStatus]

	mu   sync.Mutex
	busy map[uuid.UUID]bool
}

func New(lifetime context.Context, svc service.Service, scope tenant.Scope, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("social service is required")
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
		busy:   map[uuid.UUID]bool{},
		loader: pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) ([]service.AccountWithStatus, error) {
			return svc.ListAccounts(ctx, scope)
		}),
	}
}

func byID(a service.AccountWithStatus) uuid.UUID { return a.ID }

func (p *Page) Load(ctx context.Context) error {
	_, err := p.loader.Load(ctx, struct{}{})
	return err
}

func (p *Page) Retry(ctx context.Context) error {
	_, err := p.loader.Reload(ctx)
	return err
}

// claim marks id busy; it reports false when another action already holds it.
func (p *Page) claim(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy[id] {
		return false
	}
	p.busy[id] = true
	return true
}

func (p *Page) release(id uuid.UUID) {
	p.mu.Lock()
	delete(p.busy, id)
	p.mu.Unlock()
}

// ForceSync queues a sync and patches the row's status in place.
func (p *Page) ForceSync(ctx context.Context, id uuid.UUID) error {
	if !p.claim(id) {
		return nil
	}
	defer p.release(id)

	st, err := p.svc.ForceSyncAccount(ctx, p.scope, id)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Sync account", err))
		return err
	}
	name := ""
	p.loader.Update(func(items []service.AccountWithStatus) []service.AccountWithStatus {
		out, _ := pagestate.UpdateBy(items, id, byID, func(a service.AccountWithStatus) service.AccountWithStatus {
			name = a.AccountName
			a.Status = st
			a.SyncRequestedAt = st.SyncRequestedAt
			return a
		})
		return out
	})
	p.notify.Notify(pagestate.Success("Sync requested for " + name))
	return nil
}

// Disconnect unlinks the account and drops its row.
func (p *Page) Disconnect(ctx context.Context, id uuid.UUID) error {
	if !p.claim(id) {
		return nil
	}
	defer p.release(id)

	if err := p.svc.DisconnectAccount(ctx, p.scope, id); err != nil {
		p.notify.Notify(pagestate.Failure("Disconnect account", err))
		return err
	}
	p.loader.Update(func(items []service.AccountWithStatus) []service.AccountWithStatus {
		out, _ := pagestate.RemoveBy(items, id, byID)
		return out
	})
	p.notify.Notify(pagestate.Success("Account disconnected"))
	return nil
}

func (p *Page) View() View {
	st := p.loader.State()
	p.mu.Lock()
	defer p.mu.Unlock()
	busy := make(map[uuid.UUID]bool, len(p.busy))
	for k, v := range p.busy {
		busy[k] = v
	}
	return View{Accounts: st.Data, Loading: st.Loading, Err: st.Err, Busy: busy}
}

// Close unmounts the page.
func (p *Page) Close() { p.loader.Close() }
