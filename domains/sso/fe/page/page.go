// Package page is the controller behind the enterprise security screen.
package page

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/sso/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// Loaded is the server copy of the provider.
type Loaded struct {
	Provider   service.Provider
	Configured bool
}

// View is what the screen renders. Draft is the form, Saved the confirmed configuration.
type View struct {
	Saved      service.Provider
	Configured bool
	Draft      service.Provider
	Discovery  *service.Discovery
	SCIM       []service.SCIMEndpoint
	Loading    bool
	Err        string
	Toggling   bool
}

// Page owns the SSO settings screen for one tenant.
type Page struct {
	svc    service.Service
	scope  tenant.Scope
	notify pagestate.Notifier
	logger *zap.Logger
	loader *pagestate.Loader[struct{}, Loaded]

	mu        sync.Mutex
	draft     service.Provider
	discovery *service.Discovery
	toggling  bool
}

func New(lifetime context.Context, svc service.Service, scope tenant.Scope, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("sso service is required")
	}
	if notify == nil {
		panic("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{svc: svc, scope: scope, notify: notify, logger: logger}
	p.loader = pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) (Loaded, error) {
		prov, err := svc.GetSSOProvider(ctx, scope)
		if errors.Is(err, service.ErrNotConfigured) {
			return Loaded{Provider: service.Provider{Type: service.TypeOIDC}}, nil
		}
		if err != nil {
			return Loaded{}, err
		}
		return Loaded{Provider: prov, Configured: true}, nil
	})
	return p
}

// Load fetches the provider and resets the form to it.
func (p *Page) Load(ctx context.Context) error {
	st, err := p.loader.Load(ctx, struct{}{})
	if err != nil {
		return err
	}
	p.resetDraft(st.Data.Provider)
	return nil
}

// Retry re-runs the last load.
func (p *Page) Retry(ctx context.Context) error {
	st, err := p.loader.Reload(ctx)
	if err != nil {
		return err
	}
	p.resetDraft(st.Data.Provider)
	return nil
}

func (p *Page) resetDraft(prov service.Provider) {
	p.mu.Lock()
	p.draft = prov
	// the stored secret is never echoed into the form
	p.draft.ClientSecret = ""
	p.mu.Unlock()
}

// Edit applies fn to the form.
func (p *Page) Edit(fn func(*service.Provider)) {
	p.mu.Lock()
	fn(&p.draft)
	p.mu.Unlock()
}

// ApplyDiscovery validates the draft issuer and copies the discovered endpoints into the form.
func (p *Page) ApplyDiscovery(ctx context.Context) error {
	p.mu.Lock()
	issuer := p.draft.Issuer
	p.mu.Unlock()
	if issuer == "" {
		err := validation.New(map[string]string{"issuer": "Issuer URL is required"})
		p.notify.Notify(pagestate.Failure("Validate issuer", err))
		return err
	}

	d, err := p.svc.ValidateOIDCIssuer(ctx, p.scope, issuer)
	if err != nil {
		p.mu.Lock()
		p.discovery = nil
		p.mu.Unlock()
		p.notify.Notify(pagestate.Failure("Validate issuer", err))
		return err
	}
	p.mu.Lock()
	p.discovery = &d
	p.draft.Issuer = d.Issuer
	p.draft.AuthorizationURL = d.AuthorizationEndpoint
	p.draft.TokenURL = d.TokenEndpoint
	p.draft.UserinfoURL = d.UserinfoEndpoint
	p.draft.JWKSURL = d.JWKSURI
	p.mu.Unlock()
	p.notify.Notify(pagestate.Success("Issuer validated"))
	return nil
}

// Save writes the form. The loaded copy changes only after the server confirms.
func (p *Page) Save(ctx context.Context) error {
	p.mu.Lock()
	draft := p.draft
	p.mu.Unlock()

	saved, err := p.svc.SaveSSOProvider(ctx, p.scope, draft)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Save SSO settings", err))
		return err
	}
	p.loader.Update(func(Loaded) Loaded { return Loaded{Provider: saved, Configured: true} })
	p.resetDraft(saved)
	p.notify.Notify(pagestate.Success("SSO settings saved"))
	return nil
}

// ToggleEnabled writes the opposite of the confirmed flag. Repeated calls while a write is in flight are ignored.
func (p *Page) ToggleEnabled(ctx context.Context) error {
	st := p.loader.State()
	if !st.Data.Configured {
		err := service.ErrNotConfigured
		p.notify.Notify(pagestate.Failure("Update SSO", err))
		return err
	}

	p.mu.Lock()
	if p.toggling {
		p.mu.Unlock()
		return nil
	}
	p.toggling = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.toggling = false
		p.mu.Unlock()
	}()

	updated, err := p.svc.ToggleSSOEnabled(ctx, p.scope, !st.Data.Provider.IsEnabled)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Update SSO", err))
		return err
	}
	p.loader.Update(func(Loaded) Loaded { return Loaded{Provider: updated, Configured: true} })
	p.mu.Lock()
	p.draft.IsEnabled = updated.IsEnabled
	p.draft.EnforceSSO = updated.EnforceSSO
	p.mu.Unlock()
	if updated.IsEnabled {
		p.notify.Notify(pagestate.Success("SSO enabled"))
	} else {
		p.notify.Notify(pagestate.Success("SSO disabled"))
	}
	return nil
}

func (p *Page) View() View {
	st := p.loader.State()
	p.mu.Lock()
	defer p.mu.Unlock()
	var disc *service.Discovery
	if p.discovery != nil {
		d := *p.discovery
		disc = &d
	}
	return View{
		Saved:      st.Data.Provider,
		Configured: st.Data.Configured,
		Draft:      p.draft,
		Discovery:  disc,
		SCIM:       p.svc.SCIMEndpoints(),
		Loading:    st.Loading,
		Err:        st.Err,
		Toggling:   p.toggling,
	}
}

func (p *Page) Close() { p.loader.Close() }
