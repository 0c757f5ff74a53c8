package page

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/schedules/be/repo"
	"github.com/bizscreen/console/domains/schedules/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
)

// failing wraps a real service and fails selected calls.
type failing struct {
	service.Service
	activeErr error
	createErr error
	calls     int
}

func (f *failing) CreateSchedule(ctx context.Context, scope tenant.Scope, name, description string) (service.Schedule, error) {
	f.calls++
	if f.createErr != nil {
		return service.Schedule{}, f.createErr
	}
	return f.Service.CreateSchedule(ctx, scope, name, description)
}

func (f *failing) SetScheduleActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (service.Schedule, error) {
	f.calls++
	if f.activeErr != nil {
		return service.Schedule{}, f.activeErr
	}
	return f.Service.SetScheduleActive(ctx, scope, id, active)
}

func setup(t *testing.T) (*Page, *failing, *pagestate.Recorder) {
	t.Helper()
	scope := tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleEditor}
	svc := &failing{Service: service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))}
	rec := &pagestate.Recorder{}
	p := New(context.Background(), svc, scope, rec, zaptest.NewLogger(t))
	t.Cleanup(p.Close)
	return p, svc, rec
}

func TestEmptyStateThenFirstSchedule(t *testing.T) {
	t.Parallel()

	p, _, rec := setup(t)
	ctx := context.Background()

	require.NoError(t, p.Load(ctx))
	v := p.View()
	require.True(t, v.Empty)
	require.Empty(t, v.Schedules)

	_, err := p.Create(ctx, "Morning", "")
	require.NoError(t, err)
	v = p.View()
	require.False(t, v.Empty)
	require.Len(t, v.Schedules, 1)
	require.Equal(t, 0, v.Schedules[0].EntryCount)

	last, ok := rec.Last()
	require.True(t, ok)
	require.Equal(t, pagestate.KindSuccess, last.Kind)
}

func TestCreateValidatesBeforeCalling(t *testing.T) {
	t.Parallel()

	p, svc, rec := setup(t)
	require.NoError(t, p.Load(context.Background()))

	_, err := p.Create(context.Background(), "   ", "")
	require.Error(t, err)
	require.Equal(t, 0, svc.calls)

	last, _ := rec.Last()
	require.Equal(t, pagestate.KindError, last.Kind)
	require.Contains(t, last.Message, "Schedule name is required")
}

func TestCreateFailureLeavesListUntouched(t *testing.T) {
	t.Parallel()

	p, svc, rec := setup(t)
	require.NoError(t, p.Load(context.Background()))
	svc.createErr = errors.New("insert failed")

	_, err := p.Create(context.Background(), "Lunch", "")
	require.Error(t, err)
	require.Empty(t, p.View().Schedules)
	last, _ := rec.Last()
	require.Equal(t, pagestate.KindError, last.Kind)
}

func TestToggleAlternatesAndFailureKeepsState(t *testing.T) {
	t.Parallel()

	p, svc, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))
	created, err := p.Create(ctx, "Signage", "")
	require.NoError(t, err)
	require.False(t, created.IsActive)

	for _, want := range []bool{true, false, true} {
		require.NoError(t, p.ToggleActive(ctx, created.ID))
		require.Equal(t, want, p.View().Schedules[0].IsActive)
	}

	svc.activeErr = errors.New("write failed")
	require.Error(t, p.ToggleActive(ctx, created.ID))
	v := p.View()
	require.True(t, v.Schedules[0].IsActive)
	require.Empty(t, v.Toggling)

	svc.activeErr = nil
	require.NoError(t, p.ToggleActive(ctx, created.ID))
	require.False(t, p.View().Schedules[0].IsActive)
}

func TestDuplicateAndDelete(t *testing.T) {
	t.Parallel()

	p, _, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))
	src, err := p.Create(ctx, "Lunch", "")
	require.NoError(t, err)

	dup, err := p.Duplicate(ctx, src.ID)
	require.NoError(t, err)
	v := p.View()
	require.Len(t, v.Schedules, 2)
	require.Equal(t, dup.ID, v.Schedules[0].ID)
	require.Equal(t, "Lunch (Copy)", v.Schedules[0].Name)

	require.NoError(t, p.Delete(ctx, src.ID))
	v = p.View()
	require.Len(t, v.Schedules, 1)
	_, found := pagestate.Find(v.Schedules, src.ID, byID)
	require.False(t, found)

	require.ErrorIs(t, p.Delete(ctx, src.ID), service.ErrNotFound)
	require.Len(t, p.View().Schedules, 1)
}
