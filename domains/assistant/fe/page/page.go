// Package page drives the content assistant wizard: business context, plan review, playlist generation.
package page

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/assistant/be/service"
	profiles "github.com/bizscreen/console/domains/profiles/be/service"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
	"github.com/bizscreen/console/platform/go/wizard"
)

// Step is a wizard screen.
type Step string

const (
	StepContext  Step = "context"
	StepPlan     Step = "plan"
	StepGenerate Step = "generate"
)

// View is what the wizard renders.
type View struct {
	Step       Step
	Context    service.BusinessContext
	Suggestion *service.Suggestion
	// Selected holds the playlist keys checked on the plan step.
	Selected map[string]bool
	Busy     bool
	Progress wizard.Progress
	Created  []service.Playlist
	Done     bool
}

// Page owns the wizard state for one tenant.
type Page struct {
	svc      service.Service
	profiles profiles.Service
	scope    tenant.Scope
	notify   pagestate.Notifier
	logger   *zap.Logger
	lifetime context.Context
	cancel   context.CancelFunc
	steps    *wizard.Machine[Step]

	mu         sync.Mutex
	bc         service.BusinessContext
	suggestion *service.Suggestion
	selected   map[string]bool
	busy       bool
	progress   wizard.Progress
	created    []service.Playlist
	done       bool
}

// New builds the wizard. profileSvc may be nil when prefill is not wanted.
func New(lifetime context.Context, svc service.Service, profileSvc profiles.Service, scope tenant.Scope, notify pagestate.Notifier, logger *zap.Logger) *Page {
	if svc == nil {
		panic("assistant service is required")
	}
	if notify == nil {
		panic("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(lifetime)
	return &Page{
		svc:      svc,
		profiles: profileSvc,
		scope:    scope,
		notify:   notify,
		logger:   logger,
		lifetime: ctx,
		cancel:   cancel,
		steps:    wizard.NewMachine(StepContext, StepPlan, StepGenerate),
		selected: map[string]bool{},
	}
}

// bind derives a call context that also ends when the page closes.
func (p *Page) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (p *Page) closed() bool { return p.lifetime.Err() != nil }

// Prefill copies the saved business profile into the context step. A tenant without a profile is
// the normal first-run case and is only logged.
func (p *Page) Prefill(ctx context.Context) error {
	if p.profiles == nil {
		return nil
	}
	ctx, done := p.bind(ctx)
	defer done()

	bc, err := p.profiles.GetBusinessContext(ctx, p.scope)
	if errors.Is(err, profiles.ErrNoBusinessContext) {
		p.logger.Info("no business context to prefill", zap.String("tenantId", p.scope.TenantID.String()))
		return nil
	}
	if err != nil {
		if !p.closed() {
			p.notify.Notify(pagestate.Failure("Load business profile", err))
		}
		return err
	}
	if p.closed() {
		return pagestate.ErrClosed
	}
	p.mu.Lock()
	p.bc = service.BusinessContext{
		BusinessName: bc.BusinessName,
		BusinessType: bc.BusinessType,
		Audience:     bc.Audience,
		Tone:         bc.Tone,
	}
	p.mu.Unlock()
	return nil
}

// SetContext replaces the form values of the context step.
func (p *Page) SetContext(bc service.BusinessContext) {
	p.mu.Lock()
	p.bc = bc
	p.mu.Unlock()
}

// SubmitContext validates the form, requests a plan and moves to the plan step.
// Failures keep the wizard on the context step.
func (p *Page) SubmitContext(ctx context.Context) error {
	if p.steps.Current() != StepContext {
		return wizard.ErrLastStep
	}
	p.mu.Lock()
	bc := p.bc
	p.mu.Unlock()
	if err := service.ValidateContext(bc); err != nil {
		p.notify.Notify(pagestate.Failure("Generate plan", err))
		return err
	}
	if err := p.replacePlan(ctx, bc); err != nil {
		return err
	}
	_, err := p.steps.Next(nil)
	return err
}

// Regenerate rejects the current suggestion and requests a fresh one. Every playlist of the new plan
// starts selected.
func (p *Page) Regenerate(ctx context.Context) error {
	if p.steps.Current() != StepPlan {
		return errors.New("regenerate is only available on the plan step")
	}
	p.mu.Lock()
	bc := p.bc
	p.mu.Unlock()
	return p.replacePlan(ctx, bc)
}

func (p *Page) replacePlan(ctx context.Context, bc service.BusinessContext) error {
	ctx, done := p.bind(ctx)
	defer done()
	p.setBusy(true)
	defer p.setBusy(false)

	p.mu.Lock()
	prev := p.suggestion
	p.mu.Unlock()

	if prev != nil {
		if err := p.svc.RejectSuggestion(ctx, p.scope, prev.ID); err != nil {
			if !p.closed() {
				p.notify.Notify(pagestate.Failure("Discard previous plan", err))
			}
			return err
		}
		p.mu.Lock()
		p.suggestion = nil
		p.selected = map[string]bool{}
		p.mu.Unlock()
	}

	sug, err := p.svc.GeneratePlan(ctx, p.scope, bc)
	if err != nil {
		if !p.closed() {
			p.notify.Notify(pagestate.Failure("Generate plan", err))
		}
		return err
	}
	if p.closed() {
		return pagestate.ErrClosed
	}

	selected := make(map[string]bool, len(sug.Playlists))
	for _, pl := range sug.Playlists {
		selected[pl.Key] = true
	}
	p.mu.Lock()
	p.suggestion = &sug
	p.selected = selected
	p.mu.Unlock()
	return nil
}

// Toggle flips the selection of one planned playlist.
func (p *Page) Toggle(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.suggestion == nil {
		return
	}
	for _, pl := range p.suggestion.Playlists {
		if pl.Key == key {
			p.selected[key] = !p.selected[key]
			return
		}
	}
}

// Back returns from the plan step to the context step. The suggestion is kept until the next submit.
func (p *Page) Back() error {
	if p.steps.Current() == StepGenerate {
		return errors.New("generation cannot be undone")
	}
	_, err := p.steps.Back()
	return err
}

// Generate materializes the selected playlists one after another. The first failure stops the run;
// playlists created before it stay in the view.
func (p *Page) Generate(ctx context.Context) error {
	if p.steps.Current() != StepPlan {
		return errors.New("generate is only available on the plan step")
	}

	p.mu.Lock()
	var sug service.Suggestion
	if p.suggestion != nil {
		sug = *p.suggestion
	}
	var picked []service.PlannedPlaylist
	for _, pl := range sug.Playlists {
		if p.selected[pl.Key] {
			picked = append(picked, pl)
		}
	}
	p.mu.Unlock()

	if len(picked) == 0 {
		err := validation.New(map[string]string{"playlists": "Select at least one playlist"})
		p.notify.Notify(pagestate.Failure("Generate playlists", err))
		return err
	}
	if _, err := p.steps.Next(nil); err != nil {
		return err
	}

	ctx, done := p.bind(ctx)
	defer done()
	p.mu.Lock()
	p.busy = true
	p.created = nil
	p.progress = wizard.Progress{Total: len(picked)}
	p.mu.Unlock()
	defer p.setBusy(false)

	_, err := wizard.RunSequential(ctx, picked, func(ctx context.Context, pl service.PlannedPlaylist) (service.Playlist, error) {
		created, err := p.svc.MaterializePlaylist(ctx, p.scope, sug.ID, pl.Key)
		if err != nil {
			return service.Playlist{}, err
		}
		p.mu.Lock()
		p.created = append(p.created, created)
		p.mu.Unlock()
		return created, nil
	}, func(pr wizard.Progress) {
		p.mu.Lock()
		p.progress = pr
		p.mu.Unlock()
	})
	if err != nil {
		if !p.closed() {
			p.notify.Notify(pagestate.Failure("Generate playlists", err))
		}
		return err
	}

	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	p.notify.Notify(pagestate.Success("Playlists created"))
	return nil
}

func (p *Page) setBusy(b bool) {
	p.mu.Lock()
	p.busy = b
	p.mu.Unlock()
}

// View returns a render snapshot.
func (p *Page) View() View {
	step := p.steps.Current()
	p.mu.Lock()
	defer p.mu.Unlock()
	selected := make(map[string]bool, len(p.selected))
	for k, v := range p.selected {
		if v {
			selected[k] = true
		}
	}
	var sug *service.Suggestion
	if p.suggestion != nil {
		cp := *p.suggestion
		sug = &cp
	}
	return View{
		Step:       step,
		Context:    p.bc,
		Suggestion: sug,
		Selected:   selected,
		Busy:       p.busy,
		Progress:   p.progress,
		Created:    append([]service.Playlist(nil), p.created...),
		Done:       p.done,
	}
}

// Close unmounts the wizard and cancels anything in flight.
func (p *Page) Close() { p.cancel() }
