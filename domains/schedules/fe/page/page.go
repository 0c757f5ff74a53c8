// Package page is the headless controller behind the schedules screen.
package page

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/schedules/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// View is what the screen renders. Empty selects the call-to-action instead of the table.
type View struct {
	Schedules []service.Schedule
	Empty     bool
	Loading   bool
	Err       string
	// Toggling lists schedules whose active flag write is in flight.
	Toggling map[uuid.UUID]bool
}

// Page owns the schedules list for one tenant.
type Page struct {
	svc    service.Service
	scope  tenant.Scope
	notify pagestate.Notifier
	logger *zap.Logger
	loader *pagestate.Loader[struct{}, []service.Schedule]

	mu       sync.Mutex
	toggling map[uuid.UUID]bool
}

// New builds the controller. Cancelling lifetime unmounts it.
func New(lifetime context.Context, svc service.Service, scope tenant.Scope, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("schedules service is required")
	}
	if notify == nil {
		panic("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{svc: svc, scope: scope, notify: notify, logger: logger, toggling: map[uuid.UUID]bool{}}
	p.loader = pagestate.NewLoader(lifetime, func(ctx context.Context, _ struct{}) ([]service.Schedule, error) {
		return svc.FetchSchedules(ctx, scope)
	})
	return p
}

func byID(s service.Schedule) uuid.UUID { return s.ID }

// Load fetches the list.
func (p *Page) Load(ctx context.Context) error {
	_, err := p.loader.Load(ctx, struct{}{})
	return err
}

// Retry re-runs the last load.
func (p *Page) Retry(ctx context.Context) error {
	_, err := p.loader.Reload(ctx)
	return err
}

// Create validates the name locally, then prepends the created schedule without a refetch.
func (p *Page) Create(ctx context.Context, name, description string) (service.Schedule, error) {
	if strings.TrimSpace(name) == "" {
		err := validation.New(map[string]string{"name": "Schedule name is required"})
		p.notify.Notify(pagestate.Failure("Create schedule", err))
		return service.Schedule{}, err
	}

	created, err := p.svc.CreateSchedule(ctx, p.scope, name, description)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Create schedule", err))
		return service.Schedule{}, err
	}
	p.loader.Update(func(items []service.Schedule) []service.Schedule { return pagestate.Prepend(items, created) })
	p.notify.Notify(pagestate.Success("Schedule created"))
	return created, nil
}

// Duplicate prepends the copy on success.
func (p *Page) Duplicate(ctx context.Context, id uuid.UUID) (service.Schedule, error) {
	copied, err := p.svc.DuplicateSchedule(ctx, p.scope, id)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Duplicate schedule", err))
		return service.Schedule{}, err
	}
	p.loader.Update(func(items []service.Schedule) []service.Schedule { return pagestate.Prepend(items, copied) })
	p.notify.Notify(pagestate.Success("Schedule duplicated"))
	return copied, nil
}

// Delete drops the schedule from the list once the server confirms.
func (p *Page) Delete(ctx context.Context, id uuid.UUID) error {
	if err := p.svc.DeleteSchedule(ctx, p.scope, id); err != nil {
		p.notify.Notify(pagestate.Failure("Delete schedule", err))
		return err
	}
	p.loader.Update(func(items []service.Schedule) []service.Schedule {
		out, _ := pagestate.RemoveBy(items, id, byID)
		return out
	})
	p.notify.Notify(pagestate.Success("Schedule deleted"))
	return nil
}

// ToggleActive writes the opposite of the last confirmed flag and patches the row on success.
// A second toggle for the same row while one is in flight is ignored.
func (p *Page) ToggleActive(ctx context.Context, id uuid.UUID) error {
	current, ok := pagestate.Find(p.loader.State().Data, id, byID)
	if !ok {
		return service.ErrNotFound
	}

	p.mu.Lock()
	if p.toggling[id] {
		p.mu.Unlock()
		return nil
	}
	p.toggling[id] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.toggling, id)
		p.mu.Unlock()
	}()

	updated, err := p.svc.SetScheduleActive(ctx, p.scope, id, !current.IsActive)
	if err != nil {
		p.notify.Notify(pagestate.Failure("Update schedule", err))
		return err
	}
	p.loader.Update(func(items []service.Schedule) []service.Schedule {
		out, _ := pagestate.ReplaceBy(items, id, byID, updated)
		return out
	})
	if updated.IsActive {
		p.notify.Notify(pagestate.Success("Schedule activated"))
	} else {
		p.notify.Notify(pagestate.Success("Schedule paused"))
	}
	return nil
}

// View returns a render snapshot.
func (p *Page) View() View {
	st := p.loader.State()
	p.mu.Lock()
	toggling := make(map[uuid.UUID]bool, len(p.toggling))
	for id := range p.toggling {
		toggling[id] = true
	}
	p.mu.Unlock()
	return View{
		Schedules: st.Data,
		Empty:     st.Loaded && len(st.Data) == 0,
		Loading:   st.Loading,
		Err:       st.Err,
		Toggling:  toggling,
	}
}

// Close unmounts the page.
func (p *Page) Close() { p.loader.Close() }
