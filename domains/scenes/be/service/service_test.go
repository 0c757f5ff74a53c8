package service_test

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
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

func editorScope() tenant.Scope {
	return tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleEditor}
}

func TestDeviceCountsFollowPublications(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))
	scope := editorScope()
	ctx := context.Background()

	a, err := svc.CreateScene(ctx, scope, service.CreateInput{Name: "Breakfast", BusinessType: "Restaurant"})
	require.NoError(t, err)
	require.Equal(t, "restaurant", a.BusinessType)
	b, err := svc.CreateScene(ctx, scope, service.CreateInput{Name: "Dinner", BusinessType: "restaurant"})
	require.NoError(t, err)

	var screens []uuid.UUID
	for i := 0; i < 3; i++ {
		sc, err := svc.CreateScreen(ctx, scope, fmt.Sprintf("Screen %d", i))
		require.NoError(t, err)
		screens = append(screens, sc.ID)
	}

	require.NoError(t, svc.PublishScene(ctx, scope, a.ID, screens))
	got, err := svc.GetScene(ctx, scope, a.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.DeviceCount)

	// A screen shows one scene, so publishing b moves it.
	require.NoError(t, svc.PublishScene(ctx, scope, b.ID, screens[:1]))
	page, err := svc.FetchScenesWithDeviceCounts(ctx, scope, service.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	counts := map[uuid.UUID]int{}
	for _, s := range page.Items {
		counts[s.ID] = s.DeviceCount
	}
	require.Equal(t, 2, counts[a.ID])
	require.Equal(t, 1, counts[b.ID])
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))
	scope := editorScope()
	ctx := context.Background()
	sc, err := svc.CreateScene(ctx, scope, service.CreateInput{Name: "Promo", BusinessType: "retail"})
	require.NoError(t, err)

	var vErr *validation.Error
	require.True(t, errors.As(svc.PublishScene(ctx, scope, sc.ID, nil), &vErr))
	require.ErrorIs(t, svc.PublishScene(ctx, scope, sc.ID, []uuid.UUID{uuid.New()}), service.ErrUnknownScreens)
	require.ErrorIs(t, svc.PublishScene(ctx, scope, uuid.New(), []uuid.UUID{uuid.New()}), service.ErrNotFound)

	viewer := scope
	viewer.Role = platformauth.RoleViewer
	require.ErrorIs(t, svc.PublishScene(ctx, viewer, sc.ID, []uuid.UUID{uuid.New()}), tenant.ErrForbidden)
}

func TestPaging(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))
	scope := editorScope()
	ctx := context.Background()
	for i := 0; i < 14; i++ {
		_, err := svc.CreateScene(ctx, scope, service.CreateInput{Name: fmt.Sprintf("Scene %d", i), BusinessType: "gym"})
		require.NoError(t, err)
	}

	first, err := svc.FetchScenesWithDeviceCounts(ctx, scope, service.PageRequest{Page: 0, PageSize: 12})
	require.NoError(t, err)
	require.Len(t, first.Items, 12)
	require.Equal(t, 14, first.Total)

	second, err := svc.FetchScenesWithDeviceCounts(ctx, scope, service.PageRequest{Page: 1, PageSize: 12})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)

	_, err = svc.FetchScenesWithDeviceCounts(ctx, scope, service.PageRequest{Page: -1, PageSize: 1000})
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, []string{"page", "pageSize"}, vErr.Fields.Keys())
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))
	same := uuid.New()
	_, err := svc.CreateScene(context.Background(), editorScope(), service.CreateInput{PrimaryPlaylistID: &same, SecondaryPlaylistID: &same})
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, []string{"businessType", "name", "secondaryPlaylistId"}, vErr.Fields.Keys())
}
