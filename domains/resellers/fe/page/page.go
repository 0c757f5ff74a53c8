// Package page is the controller behind the reseller portal: account gate, portfolio,
// license inventory and the license generation wizard.
package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bizscreen/console/domains/resellers/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/wizard"
)

// PageSize is fixed for the license table.
const PageSize = 25

// Gate is which top-level state the portal renders.
type Gate string

const (
	GateLoading     Gate = "loading"
	GateNotReseller Gate = "not_reseller"
	GatePending     Gate = "awaiting_approval"
	GateSuspended   Gate = "suspended"
	GatePortfolio   Gate = "portfolio"
)

// Step is a license wizard step.
type Step string

const (
	StepForm    Step = "form"
	StepResults Step = "results"
)

// Preview summarises a batch before it is generated.
type Preview struct {
	Quantity    int
	PlanLevel   string
	MaxScreens  int
	TotalScreen int
	CodeFormat  string
}

// LicenseQuery is the table's page and status filter.
type LicenseQuery struct {
	Page   int
	Status *service.LicenseStatus
}

// View is what the portal renders.
type View struct {
	Gate       Gate
	Account    service.Account
	Portfolio  service.Portfolio
	Licenses   []service.License
	Filter     *service.LicenseStatus
	Pagination pagestate.Pagination
	Loading    bool
	Err        string

	Step     Step
	Form     service.GenerateRequest
	Preview  Preview
	Results  []service.License
	Inflight bool
}

// Page owns the reseller portal of one tenant.
type Page struct {
	svc    service.Service
	scope  tenant.Scope
	notify pagestate.Notifier
	logger *zap.Logger

	account   *pagestate.Loader[struct{}, service.Account]
	portfolio *pagestate.Loader[struct{}, service.Portfolio]
	licenses  *pagestate.Loader[LicenseQuery, service.LicensePage]
	wizard    *wizard.Machine[Step]

	mu          sync.Mutex
	notReseller bool
	form        service.GenerateRequest
	results     []service.License
	inflight    bool
}

func New(lifetime context.Context, svc service.Service, scope tenant.Scope, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("reseller service is required")
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
		form:   service.GenerateRequest{Quantity: 10, PlanLevel: service.PlanLevels[0], MaxScreens: 1},
		wizard: wizard.NewMachine(StepForm, StepResults),
		account: pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) (service.Account, error) {
			return svc.GetResellerAccount(ctx, scope)
		}),
		portfolio: pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) (service.Portfolio, error) {
			return svc.GetPortfolioStats(ctx, scope)
		}),
		licenses: pagestate.NewLoader(lifetime, func(ctx context.Context, q LicenseQuery) (service.LicensePage, error) {
			return svc.ListResellerLicenses(ctx, scope, service.ListRequest{Status: q.Status, Page: q.Page, PageSize: PageSize})
		}),
	}
}

func byID(l service.License) uuid.UUID { return l.ID }

func quiet(err error) bool {
	return errors.Is(err, pagestate.ErrStale) || errors.Is(err, context.Canceled)
}

// Load resolves the account and, for active resellers only, the portfolio and first license page.
func (p *Page) Load(ctx context.Context) error {
	st, err := p.account.Load(ctx, struct{}{})
	if p.markNotReseller(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if st.Data.Status != service.AccountActive {
		return nil
	}
	return p.loadPortfolio(ctx, LicenseQuery{})
}

func (p *Page) markNotReseller(err error) bool {
	missing := errors.Is(err, service.ErrNotReseller)
	if missing {
		p.logger.Info("tenant is not a reseller", zap.String("tenant_id", p.scope.TenantID.String()))
	}
	if missing || err == nil {
		p.mu.Lock()
		p.notReseller = missing
		p.mu.Unlock()
	}
	return missing
}

// loadPortfolio fetches the portfolio and the license table together. Each slice keeps
// its own Err, so a failed aggregate never leaves the table unrequested.
func (p *Page) loadPortfolio(ctx context.Context, q LicenseQuery) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := p.portfolio.Load(ctx, struct{}{})
		return err
	})
	g.Go(func() error { return p.loadLicenses(ctx, q) })
	return g.Wait()
}

func (p *Page) loadLicenses(ctx context.Context, q LicenseQuery) error {
	_, err := p.licenses.Load(ctx, q)
	return err
}

// Retry re-runs the account load and whatever it gates.
func (p *Page) Retry(ctx context.Context) error {
	_, err := p.account.Reload(ctx)
	if p.markNotReseller(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.gate() != GatePortfolio {
		return nil
	}
	return p.loadPortfolio(ctx, p.licenses.State().Query)
}

// SetFilter shows only licenses in status, or all of them when status is nil. It resets to page 0.
func (p *Page) SetFilter(ctx context.Context, status *service.LicenseStatus) error {
	return p.loadLicenses(ctx, LicenseQuery{Status: status})
}

// GoToPage navigates the license table to a clamped 0-based page.
func (p *Page) GoToPage(ctx context.Context, page int) error {
	v := p.View()
	return p.loadLicenses(ctx, LicenseQuery{Page: v.Pagination.Clamp(page), Status: v.Filter})
}

// SetForm edits the wizard form. It is ignored outside the form step.
func (p *Page) SetForm(fn func(service.GenerateRequest) service.GenerateRequest) {
	if p.wizard.Current() != StepForm {
		return
	}
	p.mu.Lock()
	p.form = fn(p.form)
	p.mu.Unlock()
}

func previewOf(f service.GenerateRequest) Preview {
	return Preview{
		Quantity:    f.Quantity,
		PlanLevel:   f.PlanLevel,
		MaxScreens:  f.MaxScreens,
		TotalScreen: f.Quantity * f.MaxScreens,
		CodeFormat:  "XXXX-XXXX-XXXX-XXXX",
	}
}

// Generate validates the form, creates the batch and moves the wizard to its results.
func (p *Page) Generate(ctx context.Context) ([]service.License, error) {
	p.mu.Lock()
	if p.inflight {
		p.mu.Unlock()
		return nil, nil
	}
	form := p.form
	p.mu.Unlock()

	if err := form.Validate(); err != nil {
		p.notify.Notify(pagestate.Failure("Generate licenses", err))
		return nil, err
	}

	p.mu.Lock()
	p.inflight = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inflight = false
		p.mu.Unlock()
	}()

	created, err := p.svc.GenerateLicenses(ctx, p.scope, form)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Generate licenses", err))
		if len(created) > 0 {
			// part of the batch was stored; show it in the table
			if rerr := p.loadPortfolio(ctx, LicenseQuery{Status: p.licenses.State().Query.Status}); rerr != nil && !quiet(rerr) {
				p.logger.Warn("refresh after partial license batch failed", zap.Error(rerr))
			}
		}
		return created, err
	}
	if _, err := p.wizard.Next(nil); err != nil {
		p.logger.Warn("license wizard already on results", zap.Error(err))
	}
	p.mu.Lock()
	p.results = created
	p.mu.Unlock()
	p.notify.Notify(pagestate.Success(fmt.Sprintf("%d licenses generated", len(created))))

	if err := p.loadPortfolio(ctx, LicenseQuery{Status: p.licenses.State().Query.Status}); err != nil && !quiet(err) {
		p.logger.Warn("refresh after license generation failed", zap.Error(err))
	}
	return created, nil
}

// NewBatch returns the wizard to the form, keeping the previous values.
func (p *Page) NewBatch() {
	p.wizard.Reset()
	p.mu.Lock()
	p.results = nil
	p.mu.Unlock()
}

// CopyCode returns the stored code of a license from the results or the table.
func (p *Page) CopyCode(id uuid.UUID) (string, bool) {
	p.mu.Lock()
	l, ok := pagestate.Find(p.results, id, byID)
	p.mu.Unlock()
	if !ok {
		l, ok = pagestate.Find(p.licenses.State().Data.Items, id, byID)
	}
	if !ok {
		return "", false
	}
	p.notify.Notify(pagestate.Info("Copied " + l.Code))
	return l.Code, true
}

// Export writes the CSV file to w.
func (p *Page) Export(ctx context.Context, w io.Writer) error {
	if err := p.svc.ExportLicensesCSV(ctx, p.scope, w); err != nil {
		p.notify.Notify(pagestate.Failure("Export licenses", err))
		return err
	}
	return nil
}

func (p *Page) gate() Gate {
	p.mu.Lock()
	missing := p.notReseller
	p.mu.Unlock()
	if missing {
		return GateNotReseller
	}
	st := p.account.State()
	if !st.Loaded {
		return GateLoading
	}
	switch st.Data.Status {
	case service.AccountActive:
		return GatePortfolio
	case service.AccountSuspended:
		return GateSuspended
	default:
		return GatePending
	}
}

func (p *Page) View() View {
	acct := p.account.State()
	port := p.portfolio.State()
	lic := p.licenses.State()

	errText := ""
	for _, e := range []string{acct.Err, port.Err, lic.Err} {
		if e != "" {
			errText = e
			break
		}
	}
	gate := p.gate()
	if gate == GateNotReseller {
		errText = ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return View{
		Gate:       gate,
		Account:    acct.Data,
		Portfolio:  port.Data,
		Licenses:   lic.Data.Items,
		Filter:     lic.Query.Status,
		Pagination: pagestate.NewPagination(PageSize).WithTotal(lic.Data.Total).To(lic.Query.Page),
		Loading:    acct.Loading || port.Loading || lic.Loading,
		Err:        errText,
		Step:       p.wizard.Current(),
		Form:       p.form,
		Preview:    previewOf(p.form),
		Results:    append([]service.License(nil), p.results...),
		Inflight:   p.inflight,
	}
}

// Close unmounts the page.
func (p *Page) Close() {
	p.account.Close()
	p.portfolio.Close()
	p.licenses.Close()
}
