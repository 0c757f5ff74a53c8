// Package page is the controller behind the platform operations dashboard.
package page

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bizscreen/console/domains/tenants/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/pagestate"
)

const PageSize = 20

// Query selects one page of the tenants table.
type Query struct {
	Page   int
	Status *service.Status
}

// Row is a tenants table row with its content counts.
type Row struct {
	service.Tenant
	Stats service.ClientStats
	// Enabled lists the switched-on flags in FeatureFlags order.
	Enabled []string
}

type tablePage struct {
	Rows  []Row
	Total int
}

// View is what the dashboard renders.
type View struct {
	Summary        service.Summary
	SummaryLoading bool
	SummaryErr     string

	Rows       []Row
	Pagination pagestate.Pagination
	Loading    bool
	Err        string

	// ActiveShare is the percentage of tenants that are active.
	ActiveShare int
	// PlanMix counts the tenants of the current table page per plan.
	PlanMix map[string]int
	// Toggling holds "<tenant>/<flag>" keys with a change in flight.
	Toggling map[string]bool
}

// Page owns the operations dashboard of one platform admin.
type Page struct {
	svc    service.Service
	op     *platformauth.UserCredentials
	notify pagestate.Notifier
	logger *zap.Logger

	summary *pagestate.Loader[struct{}, service.Summary]
	tenants *pagestate.Loader[Query, tablePage]

	mu       sync.Mutex
	toggling map[string]bool
	// afterBuild is a test seam. It runs last inside the render boundary.
	afterBuild func(*View)
}

func New(lifetime context.Context, svc service.Service, op *platformauth.UserCredentials, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("tenants service is required")
	}
	if notify == nil {
		panic("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Page{
		svc:      svc,
		op:       op,
		notify:   notify,
		logger:   logger,
		toggling: map[string]bool{},
		summary: pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) (service.Summary, error) {
			return svc.DashboardSummary(ctx, op)
		}),
		tenants: pagestate.NewLoader(lifetime, func(ctx context.Context, q Query) (tablePage, error) {
			return fetchTable(ctx, svc, op, q)
		}),
	}
}

// fetchTable loads one tenants page and then its counts with a single stats call.
func fetchTable(ctx context.Context, svc service.Service, op *platformauth.UserCredentials, q Query) (tablePage, error) {
	res, err := svc.ListTenants(ctx, op, service.ListRequest{Page: q.Page, PageSize: PageSize, Status: q.Status})
	if err != nil {
		return tablePage{}, err
	}
	ids := make([]uuid.UUID, 0, len(res.Items))
	for _, t := range res.Items {
		ids = append(ids, t.ID)
	}
	stats, err := svc.GetClientStats(ctx, op, ids)
	if err != nil {
		return tablePage{}, err
	}
	rows := make([]Row, 0, len(res.Items))
	for _, t := range res.Items {
		rows = append(rows, Row{Tenant: t, Stats: stats[t.ID]})
	}
	return tablePage{Rows: rows, Total: res.Total}, nil
}

func byID(r Row) uuid.UUID { return r.ID }

// Load fetches the summary and the first tenants page concurrently. Each keeps its own
// Err, so one failing never leaves the other unrequested.
func (p *Page) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := p.summary.Load(ctx, struct{}{})
		return err
	})
	g.Go(func() error {
		_, err := p.tenants.Load(ctx, Query{})
		return err
	})
	return g.Wait()
}

func (p *Page) Retry(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := p.summary.Reload(ctx)
		return err
	})
	g.Go(func() error {
		_, err := p.tenants.Reload(ctx)
		return err
	})
	return g.Wait()
}

// SetFilter restarts the table at page 0 with the new status filter.
func (p *Page) SetFilter(ctx context.Context, status *service.Status) error {
	_, err := p.tenants.Load(ctx, Query{Status: status})
	return err
}

// GoToPage clamps page to the known range before fetching.
func (p *Page) GoToPage(ctx context.Context, page int) error {
	st := p.tenants.State()
	pg := pagestate.NewPagination(PageSize).WithTotal(st.Data.Total).To(page)
	q := st.Query
	q.Page = pg.Page
	_, err := p.tenants.Load(ctx, q)
	return err
}

func toggleKey(id uuid.UUID, flag string) string { return id.String() + "/" + flag }

// ToggleFlag flips a feature flag and patches the row in place. Nothing is refetched.
func (p *Page) ToggleFlag(ctx context.Context, id uuid.UUID, flag string) error {
	row, ok := pagestate.Find(p.tenants.State().Data.Rows, id, byID)
	if !ok {
		return nil
	}
	key := toggleKey(id, flag)
	p.mu.Lock()
	if p.toggling[key] {
		p.mu.Unlock()
		return nil
	}
	p.toggling[key] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.toggling, key)
		p.mu.Unlock()
	}()

	enabled := !row.Flags[flag]
	flags, err := p.svc.SetFeatureFlag(ctx, p.op, id, flag, enabled)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Update feature flag", err))
		return err
	}
	p.tenants.Update(func(tp tablePage) tablePage {
		tp.Rows, _ = pagestate.UpdateBy(tp.Rows, id, byID, func(r Row) Row {
			r.Flags = flags
			return r
		})
		return tp
	})
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	p.notify.Notify(pagestate.Success(flag + " " + state + " for " + row.Slug))
	return nil
}

// View assembles the dashboard. A failure while building it yields pagestate.ErrRenderFailed
// so the screen can show its fallback instead of crashing.
func (p *Page) View() (View, error) {
	return pagestate.Boundary(p.logger, func() (View, error) {
		sum := p.summary.State()
		tab := p.tenants.State()
		p.mu.Lock()
		toggling := make(map[string]bool, len(p.toggling))
		for k, v := range p.toggling {
			toggling[k] = v
		}
		after := p.afterBuild
		p.mu.Unlock()

		v := buildView(sum, tab, toggling)
		if after != nil {
			after(&v)
		}
		return v, nil
	})
}

// buildView derives the rendered rows and shares from the loader states.
func buildView(sum pagestate.State[struct{}, service.Summary], tab pagestate.State[Query, tablePage], toggling map[string]bool) View {
	v := View{
		Summary:        sum.Data,
		SummaryLoading: sum.Loading,
		SummaryErr:     sum.Err,
		Rows:           make([]Row, 0, len(tab.Data.Rows)),
		Pagination:     pagestate.NewPagination(PageSize).WithTotal(tab.Data.Total).To(tab.Query.Page),
		Loading:        tab.Loading,
		Err:            tab.Err,
		Toggling:       toggling,
		PlanMix:        map[string]int{},
	}
	if t := sum.Data.Totals.Tenants; t > 0 {
		v.ActiveShare = min(sum.Data.Totals.ActiveTenants*100/t, 100)
	}
	for _, r := range tab.Data.Rows {
		r.Enabled = nil
		for _, f := range service.FeatureFlags {
			if r.Flags[f] {
				r.Enabled = append(r.Enabled, f)
			}
		}
		v.PlanMix[r.Plan]++
		v.Rows = append(v.Rows, r)
	}
	return v
}

// Close unmounts the page.
func (p *Page) Close() {
	p.summary.Close()
	p.tenants.Close()
}
