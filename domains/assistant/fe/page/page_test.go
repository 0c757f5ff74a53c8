package page

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/assistant/be/repo"
	"github.com/bizscreen/console/domains/assistant/be/service"
	profilerepo "github.com/bizscreen/console/domains/profiles/be/repo"
	profiles "github.com/bizscreen/console/domains/profiles/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/cache"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
	"github.com/bizscreen/console/platform/go/wizard"
)

// scripted wraps a real service and fails selected calls.
type scripted struct {
	service.Service
	mu          sync.Mutex
	rejected    []uuid.UUID
	planErr     error
	failOnKey   string
	materialize []string
}

func (s *scripted) RejectSuggestion(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	s.mu.Lock()
	s.rejected = append(s.rejected, id)
	s.mu.Unlock()
	return s.Service.RejectSuggestion(ctx, scope, id)
}

func (s *scripted) GeneratePlan(ctx context.Context, scope tenant.Scope, bc service.BusinessContext) (service.Suggestion, error) {
	if s.planErr != nil {
		return service.Suggestion{}, s.planErr
	}
	return s.Service.GeneratePlan(ctx, scope, bc)
}

func (s *scripted) MaterializePlaylist(ctx context.Context, scope tenant.Scope, id uuid.UUID, key string) (service.Playlist, error) {
	s.mu.Lock()
	s.materialize = append(s.materialize, key)
	s.mu.Unlock()
	if key == s.failOnKey {
		return service.Playlist{}, errors.New("generation timed out")
	}
	return s.Service.MaterializePlaylist(ctx, scope, id, key)
}

type harness struct {
	page     *Page
	svc      *scripted
	profiles profiles.Service
	rec      *pagestate.Recorder
	scope    tenant.Scope
}

func setup(t *testing.T) harness {
	t.Helper()
	scope := tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleOwner}
	svc := &scripted{Service: service.New(service.Config{
		Generator: service.TemplateGenerator{},
		Store:     repo.NewKVSuggestionStore(cache.NewMemoryKV(time.Now)),
		Playlists: repo.NewMemoryPlaylists(),
		Logger:    zaptest.NewLogger(t),
	})}
	prof := profiles.New(profilerepo.NewMemoryRepository(), nil, zaptest.NewLogger(t))
	rec := &pagestate.Recorder{}
	p := New(context.Background(), svc, prof, scope, rec, zaptest.NewLogger(t))
	t.Cleanup(p.Close)
	return harness{page: p, svc: svc, profiles: prof, rec: rec, scope: scope}
}

func (h harness) toPlan(t *testing.T) service.Suggestion {
	t.Helper()
	h.page.SetContext(service.BusinessContext{BusinessName: "Bean There", BusinessType: "restaurant"})
	require.NoError(t, h.page.SubmitContext(context.Background()))
	v := h.page.View()
	require.Equal(t, StepPlan, v.Step)
	require.NotNil(t, v.Suggestion)
	return *v.Suggestion
}

func TestPrefillWithoutProfileIsSilent(t *testing.T) {
	t.Parallel()
	h := setup(t)

	require.NoError(t, h.page.Prefill(context.Background()))
	require.Empty(t, h.rec.Toasts())
	require.Empty(t, h.page.View().Context.BusinessName)
}

func TestPrefillCopiesProfile(t *testing.T) {
	t.Parallel()
	h := setup(t)
	_, err := h.profiles.UpdateBusinessContext(context.Background(), h.scope, profiles.BusinessContext{
		BusinessName: "Iron Works", BusinessType: "gym", Tone: "bold",
	})
	require.NoError(t, err)

	require.NoError(t, h.page.Prefill(context.Background()))
	bc := h.page.View().Context
	require.Equal(t, "Iron Works", bc.BusinessName)
	require.Equal(t, "gym", bc.BusinessType)
}

func TestContextStepValidatesBeforeCalling(t *testing.T) {
	t.Parallel()
	h := setup(t)
	h.svc.planErr = errors.New("must not be called")

	err := h.page.SubmitContext(context.Background())
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, StepContext, h.page.View().Step)
	last, ok := h.rec.Last()
	require.True(t, ok)
	require.Equal(t, pagestate.KindError, last.Kind)
}

func TestPlanFailureStaysOnContextStep(t *testing.T) {
	t.Parallel()
	h := setup(t)
	h.svc.planErr = service.ErrGeneration
	h.page.SetContext(service.BusinessContext{BusinessName: "Bean There", BusinessType: "restaurant"})

	require.ErrorIs(t, h.page.SubmitContext(context.Background()), service.ErrGeneration)
	require.Equal(t, StepContext, h.page.View().Step)
	require.False(t, h.page.View().Busy)
}

func TestRegenerateRejectsPreviousAndReselectsAll(t *testing.T) {
	t.Parallel()
	h := setup(t)
	first := h.toPlan(t)

	h.page.Toggle(first.Playlists[0].Key)
	require.Len(t, h.page.View().Selected, len(first.Playlists)-1)

	require.NoError(t, h.page.Regenerate(context.Background()))
	v := h.page.View()
	require.Equal(t, []uuid.UUID{first.ID}, h.svc.rejected)
	require.NotEqual(t, first.ID, v.Suggestion.ID)
	require.Len(t, v.Selected, len(v.Suggestion.Playlists))

	// the discarded plan can no longer be used
	_, err := h.svc.MaterializePlaylist(context.Background(), h.scope, first.ID, first.Playlists[0].Key)
	require.ErrorIs(t, err, service.ErrSuggestionRejected)
}

func TestGenerateRequiresSelection(t *testing.T) {
	t.Parallel()
	h := setup(t)
	sug := h.toPlan(t)
	for _, pl := range sug.Playlists {
		h.page.Toggle(pl.Key)
	}

	err := h.page.Generate(context.Background())
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, StepPlan, h.page.View().Step)
	require.Empty(t, h.svc.materialize)
}

func TestGenerateRunsSequentially(t *testing.T) {
	t.Parallel()
	h := setup(t)
	sug := h.toPlan(t)

	require.NoError(t, h.page.Generate(context.Background()))
	v := h.page.View()
	require.Equal(t, StepGenerate, v.Step)
	require.True(t, v.Done)
	require.Equal(t, wizard.Progress{Current: len(sug.Playlists), Total: len(sug.Playlists)}, v.Progress)
	require.Len(t, v.Created, len(sug.Playlists))

	var order []string
	for _, pl := range sug.Playlists {
		order = append(order, pl.Key)
	}
	require.Equal(t, order, h.svc.materialize)
	last, _ := h.rec.Last()
	require.Equal(t, pagestate.KindSuccess, last.Kind)
}

func TestGenerateStopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	h := setup(t)
	sug := h.toPlan(t)
	require.GreaterOrEqual(t, len(sug.Playlists), 3)
	h.svc.failOnKey = sug.Playlists[1].Key

	err := h.page.Generate(context.Background())
	var itemErr *wizard.ItemError
	require.ErrorAs(t, err, &itemErr)
	require.Equal(t, 1, itemErr.Index)

	v := h.page.View()
	require.False(t, v.Done)
	require.Equal(t, wizard.Progress{Current: 1, Total: len(sug.Playlists)}, v.Progress)
	require.Len(t, v.Created, 1)
	require.Equal(t, []string{sug.Playlists[0].Key, sug.Playlists[1].Key}, h.svc.materialize)
	last, _ := h.rec.Last()
	require.Equal(t, pagestate.KindError, last.Kind)
}
