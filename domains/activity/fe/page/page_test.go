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

	"github.com/bizscreen/console/domains/activity/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

type call struct {
	filter service.Filter
	page   int
	count  bool
}

type mockService struct {
	mu      sync.Mutex
	calls   []call
	listFn  func(ctx context.Context, filter service.Filter, page, pageSize int) ([]service.Activity, error)
	countFn func(ctx context.Context, filter service.Filter) (int, error)
}

func (m *mockService) GetActivityLog(ctx context.Context, _ tenant.Scope, filter service.Filter, page, pageSize int) ([]service.Activity, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call{filter: filter, page: page})
	m.mu.Unlock()
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, filter, page, pageSize)
}

func (m *mockService) GetActivityLogCount(ctx context.Context, _ tenant.Scope, filter service.Filter) (int, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call{filter: filter, count: true})
	m.mu.Unlock()
	if m.countFn == nil {
		panic("countFn not configured")
	}
	return m.countFn(ctx, filter)
}

func (m *mockService) Record(context.Context, tenant.Scope, requesttrace.AuditInfo, string, string, string) error {
	panic("Record not expected")
}

func (m *mockService) take() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.calls
	m.calls = nil
	return out
}

func rows(n int) []service.Activity {
	out := make([]service.Activity, n)
	for i := range out {
		out[i] = service.Activity{ID: uuid.New(), Action: "screen.updated", ResourceType: "screen"}
	}
	return out
}

func newPage(t *testing.T, svc *mockService) *Page {
	t.Helper()
	scope := tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleViewer}
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := New(context.Background(), svc, scope, zaptest.NewLogger(t), WithClock(func() time.Time { return fixed }))
	t.Cleanup(p.Close)
	return p
}

func fiftySeven() *mockService {
	return &mockService{
		listFn: func(ctx context.Context, filter service.Filter, page, pageSize int) ([]service.Activity, error) {
			remaining := 57 - page*pageSize
			if remaining > pageSize {
				remaining = pageSize
			}
			if remaining < 0 {
				remaining = 0
			}
			return rows(remaining), nil
		},
		countFn: func(ctx context.Context, filter service.Filter) (int, error) { return 57, nil },
	}
}

func TestPaginationClampsAtLastPage(t *testing.T) {
	t.Parallel()

	svc := fiftySeven()
	p := newPage(t, svc)
	ctx := context.Background()

	require.NoError(t, p.Load(ctx))
	v := p.View()
	require.Equal(t, 3, v.Pagination.TotalPages())
	require.Len(t, v.Items, 25)
	require.False(t, v.Pagination.HasPrev())

	require.NoError(t, p.GoToPage(ctx, 5))
	v = p.View()
	require.Equal(t, 2, v.Pagination.Page)
	require.Equal(t, 3, v.Pagination.DisplayPage())
	require.False(t, v.Pagination.HasNext())
	require.Len(t, v.Items, 7)

	svc.take()
	require.NoError(t, p.Next(ctx))
	require.Empty(t, svc.take(), "next at the last page must not fetch")

	require.NoError(t, p.Prev(ctx))
	require.Equal(t, 1, p.View().Pagination.Page)
}

func TestFilterChangeResetsPageAndSharesSnapshot(t *testing.T) {
	t.Parallel()

	svc := fiftySeven()
	p := newPage(t, svc)
	ctx := context.Background()

	require.NoError(t, p.Load(ctx))
	require.NoError(t, p.GoToPage(ctx, 2))
	svc.take()

	scene := "scene"
	require.NoError(t, p.SetResourceType(ctx, &scene))
	calls := svc.take()
	require.Len(t, calls, 2)
	require.Equal(t, calls[0].filter, calls[1].filter)
	require.NotNil(t, calls[0].filter.AsOf)
	require.Equal(t, "scene", *calls[0].filter.ResourceType)
	for _, c := range calls {
		if !c.count {
			require.Equal(t, 0, c.page)
		}
	}
	require.Equal(t, 0, p.View().Pagination.Page)

	require.NoError(t, p.GoToPage(ctx, 1))
	require.NoError(t, p.SetDays(ctx, 7))
	calls = svc.take()
	last := calls[len(calls)-2:]
	require.Equal(t, 7, last[0].filter.Days)
	require.Equal(t, last[0].filter, last[1].filter)
	require.Equal(t, 0, p.View().Pagination.Page)

	require.NoError(t, p.ClearFilters(ctx))
	v := p.View()
	require.Nil(t, v.Filter.ResourceType)
	require.Equal(t, service.DefaultDays, v.Filter.Days)
}

func TestSetDaysRejectsUnsupportedWindowWithoutCall(t *testing.T) {
	t.Parallel()

	svc := fiftySeven()
	p := newPage(t, svc)

	err := p.SetDays(context.Background(), 14)
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))
	require.Empty(t, svc.take())
}

func TestLoadFailureShowsBannerAndRetryRecovers(t *testing.T) {
	t.Parallel()

	fail := true
	svc := fiftySeven()
	svc.countFn = func(ctx context.Context, filter service.Filter) (int, error) {
		if fail {
			return 0, errors.New("backend unavailable")
		}
		return 57, nil
	}
	p := newPage(t, svc)
	ctx := context.Background()

	require.Error(t, p.Load(ctx))
	v := p.View()
	require.Equal(t, "backend unavailable", v.Err)
	require.False(t, v.Loading)
	require.Empty(t, v.Items)

	fail = false
	require.NoError(t, p.Retry(ctx))
	v = p.View()
	require.Empty(t, v.Err)
	require.Len(t, v.Items, 25)
}

func TestNewestFilterWins(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	svc := &mockService{
		listFn: func(ctx context.Context, filter service.Filter, page, pageSize int) ([]service.Activity, error) {
			if filter.Days == 90 {
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return rows(filter.Days % 10), nil
		},
		countFn: func(ctx context.Context, filter service.Filter) (int, error) { return filter.Days, nil },
	}
	p := newPage(t, svc)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- p.SetDays(ctx, 90) }()
	require.Eventually(t, func() bool { return p.View().Loading }, time.Second, time.Millisecond)

	require.NoError(t, p.SetDays(ctx, 7))
	close(release)
	require.ErrorIs(t, <-slow, pagestate.ErrStale)

	v := p.View()
	require.Equal(t, 7, v.Pagination.TotalCount)
	require.Len(t, v.Items, 7)
}
