// Package page is the headless controller behind the scenes grid.
package page

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/scenes/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// PageSize is fixed for this screen.
const PageSize = 12

// View is what the grid renders.
type View struct {
	Scenes     []service.Scene
	Pagination pagestate.Pagination
	Loading    bool
	Err        string
}

// Page owns the scene grid for one tenant.
type Page struct {
	svc    service.Service
	scope  tenant.Scope
	notify pagestate.Notifier
	logger *zap.Logger
	loader *pagestate.Loader[int, service.ScenePage]
}

// New builds the controller. Cancelling lifetime unmounts it.
func New(lifetime context.Context, svc service.Service, scope tenant.Scope, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("scenes service is required")
	}
	if notify == nil {
		panic("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{svc: svc, scope: scope, notify: notify, logger: logger}
	p.loader = pagestate.NewLoader(lifetime, func(ctx context.Context, page int) (service.ScenePage, error) {
		return svc.FetchScenesWithDeviceCounts(ctx, scope, service.PageRequest{Page: page, PageSize: PageSize})
	})
	return p
}

func (p *Page) load(ctx context.Context, page int) error {
	_, err := p.loader.Load(ctx, page)
	if err != nil && !errors.Is(err, pagestate.ErrStale) && !errors.Is(err, context.Canceled) {
		p.notify.Notify(pagestate.Failure("Load scenes", err))
	}
	return err
}

// Load fetches the first page.
func (p *Page) Load(ctx context.Context) error { return p.load(ctx, 0) }

// Retry re-runs the last load.
func (p *Page) Retry(ctx context.Context) error { return p.load(ctx, p.loader.State().Query) }

// GoToPage navigates to a 0-based page clamped to the known total.
func (p *Page) GoToPage(ctx context.Context, page int) error {
	return p.load(ctx, p.View().Pagination.Clamp(page))
}

// Next moves forward when a next page exists.
func (p *Page) Next(ctx context.Context) error {
	v := p.View()
	if !v.Pagination.HasNext() {
		return nil
	}
	return p.load(ctx, v.Pagination.Page+1)
}

// Prev moves back when a previous page exists.
func (p *Page) Prev(ctx context.Context) error {
	v := p.View()
	if !v.Pagination.HasPrev() {
		return nil
	}
	return p.load(ctx, v.Pagination.Page-1)
}

// Create prepends the new scene; it starts on no devices so no refetch is needed.
func (p *Page) Create(ctx context.Context, input service.CreateInput) (service.Scene, error) {
	if strings.TrimSpace(input.Name) == "" {
		err := validation.New(map[string]string{"name": "Scene name is required"})
		p.notify.Notify(pagestate.Failure("Create scene", err))
		return service.Scene{}, err
	}
	created, err := p.svc.CreateScene(ctx, p.scope, input)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Create scene", err))
		return service.Scene{}, err
	}
	p.loader.Update(func(d service.ScenePage) service.ScenePage {
		return service.ScenePage{Items: pagestate.Prepend(d.Items, created), Total: d.Total + 1}
	})
	p.notify.Notify(pagestate.Success("Scene created"))
	return created, nil
}

// Publish assigns the scene to screens and refetches, since device counts are computed server side.
func (p *Page) Publish(ctx context.Context, sceneID uuid.UUID, screenIDs []uuid.UUID) error {
	if len(screenIDs) == 0 {
		err := validation.New(map[string]string{"screenIds": "Select at least one screen"})
		p.notify.Notify(pagestate.Failure("Publish scene", err))
		return err
	}
	if err := p.svc.PublishScene(ctx, p.scope, sceneID, screenIDs); err != nil {
		p.notify.Notify(pagestate.Failure("Publish scene", err))
		return err
	}
	p.notify.Notify(pagestate.Success("Scene published"))
	return p.load(ctx, p.loader.State().Query)
}

// View returns a render snapshot.
func (p *Page) View() View {
	st := p.loader.State()
	return View{
		Scenes:     st.Data.Items,
		Pagination: pagestate.NewPagination(PageSize).WithTotal(st.Data.Total).To(st.Query),
		Loading:    st.Loading,
		Err:        st.Err,
	}
}

// Close unmounts the page.
func (p *Page) Close() { p.loader.Close() }
