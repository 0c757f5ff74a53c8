package page

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/scenes/be/repo"
	"github.com/bizscreen/console/domains/scenes/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
)

type flaky struct {
	service.Service
	fetchErr error
	fetches  int
}

func (f *flaky) FetchScenesWithDeviceCounts(ctx context.Context, scope tenant.Scope, req service.PageRequest) (service.ScenePage, error) {
	f.fetches++
	if f.fetchErr != nil {
		return service.ScenePage{}, f.fetchErr
	}
	return f.Service.FetchScenesWithDeviceCounts(ctx, scope, req)
}

func setup(t *testing.T) (*Page, *flaky, *pagestate.Recorder, tenant.Scope) {
	t.Helper()
	scope := tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleEditor}
	svc := &flaky{Service: service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))}
	rec := &pagestate.Recorder{}
	p := New(context.Background(), svc, scope, rec, zaptest.NewLogger(t))
	t.Cleanup(p.Close)
	return p, svc, rec, scope
}

func TestPublishRefetchesDeviceCounts(t *testing.T) {
	t.Parallel()

	p, svc, rec, scope := setup(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	sc, err := p.Create(ctx, service.CreateInput{Name: "Menu", BusinessType: "cafe"})
	require.NoError(t, err)
	require.Equal(t, 1, p.View().Pagination.TotalCount)

	screen, err := svc.CreateScreen(ctx, scope, "Counter")
	require.NoError(t, err)

	before := svc.fetches
	require.NoError(t, p.Publish(ctx, sc.ID, []uuid.UUID{screen.ID}))
	require.Equal(t, before+1, svc.fetches)
	require.Equal(t, 1, p.View().Scenes[0].DeviceCount)

	last, _ := rec.Last()
	require.Equal(t, pagestate.KindSuccess, last.Kind)
}

func TestLoadFailureShowsBannerAndToast(t *testing.T) {
	t.Parallel()

	p, svc, rec, _ := setup(t)
	svc.fetchErr = errors.New("timeout")

	require.Error(t, p.Load(context.Background()))
	require.Equal(t, "timeout", p.View().Err)
	last, ok := rec.Last()
	require.True(t, ok)
	require.Equal(t, pagestate.KindError, last.Kind)

	svc.fetchErr = nil
	require.NoError(t, p.Retry(context.Background()))
	require.Empty(t, p.View().Err)
}

func TestPagingTwelvePerPage(t *testing.T) {
	t.Parallel()

	p, svc, _, scope := setup(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := svc.CreateScene(ctx, scope, service.CreateInput{Name: fmt.Sprintf("S%d", i), BusinessType: "gym"})
		require.NoError(t, err)
	}

	require.NoError(t, p.Load(ctx))
	v := p.View()
	require.Len(t, v.Scenes, 12)
	require.Equal(t, 3, v.Pagination.TotalPages())

	require.NoError(t, p.GoToPage(ctx, 9))
	v = p.View()
	require.Equal(t, 2, v.Pagination.Page)
	require.Len(t, v.Scenes, 1)
	require.False(t, v.Pagination.HasNext())
}

func TestPublishWithoutScreensSkipsCall(t *testing.T) {
	t.Parallel()

	p, svc, rec, _ := setup(t)
	require.NoError(t, p.Load(context.Background()))
	before := svc.fetches

	require.Error(t, p.Publish(context.Background(), uuid.New(), nil))
	require.Equal(t, before, svc.fetches)
	last, _ := rec.Last()
	require.Equal(t, pagestate.KindError, last.Kind)
}
