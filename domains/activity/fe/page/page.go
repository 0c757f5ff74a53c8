// Package page is the headless controller behind the activity log screen.
package page

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bizscreen/console/domains/activity/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// ItemsPerPage is fixed for this screen.
const ItemsPerPage = 25

// Query is one filter snapshot plus the requested page.
type Query struct {
	Filter service.Filter
	Page   int
}

// Data is what one load produces. Items and Total come from the same snapshot.
type Data struct {
	Items []service.Activity
	Total int
}

// View is what the screen renders.
type View struct {
	Items      []service.Activity
	Pagination pagestate.Pagination
	Filter     service.Filter
	Loading    bool
	Err        string
}

// Page owns the activity log state for one tenant.
type Page struct {
	svc    service.Service
	scope  tenant.Scope
	logger *zap.Logger
	now    func() time.Time
	loader *pagestate.Loader[Query, Data]

	mu     sync.Mutex
	filter service.Filter
	page   int
}

// Option customises a Page.
type Option func(*Page)

// WithClock overrides the clock used to pin snapshots.
func WithClock(now func() time.Time) Option {
	return func(p *Page) { p.now = now }
}

// New builds the controller. Cancelling lifetime unmounts it.
func New(lifetime context.Context, svc service.Service, scope tenant.Scope, logger *zap.Logger, opts ...Option) *Page {
	if svc == nil {
		panic("activity service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{
		svc:    svc,
		scope:  scope,
		logger: logger,
		now:    time.Now,
		filter: service.Filter{Days: service.DefaultDays},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.loader = pagestate.NewLoader(lifetime, p.fetch)
	return p
}

// fetch runs count and data together; both see the same AsOf.
func (p *Page) fetch(ctx context.Context, q Query) (Data, error) {
	asOf := p.now().UTC()
	filter := q.Filter
	filter.AsOf = &asOf

	var data Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := p.svc.GetActivityLog(gctx, p.scope, filter, q.Page, ItemsPerPage)
		data.Items = items
		return err
	})
	g.Go(func() error {
		total, err := p.svc.GetActivityLogCount(gctx, p.scope, filter)
		data.Total = total
		return err
	})
	if err := g.Wait(); err != nil {
		return Data{}, err
	}
	return data, nil
}

func (p *Page) load(ctx context.Context) error {
	p.mu.Lock()
	q := Query{Filter: p.filter, Page: p.page}
	p.mu.Unlock()

	st, err := p.loader.Load(ctx, q)
	if err != nil {
		p.logger.Debug("activity load did not commit", zap.Error(err))
		return err
	}

	p.mu.Lock()
	if p.page == q.Page {
		p.page = pagination(st).Page
	}
	p.mu.Unlock()
	return nil
}

// Load performs the initial fetch.
func (p *Page) Load(ctx context.Context) error { return p.load(ctx) }

// Retry re-runs the last load. It backs the banner's retry button.
func (p *Page) Retry(ctx context.Context) error {
	_, err := p.loader.Reload(ctx)
	return err
}

// SetResourceType filters on one type; nil shows all.
func (p *Page) SetResourceType(ctx context.Context, resourceType *string) error {
	p.mu.Lock()
	p.filter.ResourceType = resourceType
	p.page = 0
	p.mu.Unlock()
	return p.load(ctx)
}

// SetDays changes the window. Unsupported values are rejected without a call.
func (p *Page) SetDays(ctx context.Context, days int) error {
	if !slices.Contains(service.AllowedDays, days) {
		return validation.New(map[string]string{"days": "unsupported window"})
	}
	p.mu.Lock()
	p.filter.Days = days
	p.page = 0
	p.mu.Unlock()
	return p.load(ctx)
}

// ClearFilters resets both filters to their defaults in one step.
func (p *Page) ClearFilters(ctx context.Context) error {
	p.mu.Lock()
	p.filter = service.Filter{Days: service.DefaultDays}
	p.page = 0
	p.mu.Unlock()
	return p.load(ctx)
}

// GoToPage navigates to a 0-based page, clamped to the known total.
func (p *Page) GoToPage(ctx context.Context, page int) error {
	current := pagination(p.loader.State())
	p.mu.Lock()
	p.page = current.Clamp(page)
	p.mu.Unlock()
	return p.load(ctx)
}

// Next moves forward when a next page exists.
func (p *Page) Next(ctx context.Context) error {
	if !p.View().Pagination.HasNext() {
		return nil
	}
	return p.GoToPage(ctx, p.View().Pagination.Page+1)
}

// Prev moves back when a previous page exists.
func (p *Page) Prev(ctx context.Context) error {
	if !p.View().Pagination.HasPrev() {
		return nil
	}
	return p.GoToPage(ctx, p.View().Pagination.Page-1)
}

// View returns a render snapshot.
func (p *Page) View() View {
	st := p.loader.State()
	p.mu.Lock()
	filter := p.filter
	p.mu.Unlock()
	return View{
		Items:      st.Data.Items,
		Pagination: pagination(st),
		Filter:     filter,
		Loading:    st.Loading,
		Err:        st.Err,
	}
}

// Close unmounts the page; in-flight results are dropped.
func (p *Page) Close() { p.loader.Close() }

func pagination(st pagestate.State[Query, Data]) pagestate.Pagination {
	pg := pagestate.NewPagination(ItemsPerPage).WithTotal(st.Data.Total)
	return pg.To(st.Query.Page)
}
