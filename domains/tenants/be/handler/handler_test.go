package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/tenants/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/httpapi"
)

type mockService struct {
	listFn      func(ctx context.Context, op *platformauth.UserCredentials, req service.ListRequest) (service.TenantPage, error)
	statsFn     func(ctx context.Context, op *platformauth.UserCredentials, ids []uuid.UUID) (map[uuid.UUID]service.ClientStats, error)
	flagFn      func(ctx context.Context, op *platformauth.UserCredentials, id uuid.UUID, flag string, enabled bool) (map[string]bool, error)
	dashboardFn func(ctx context.Context, op *platformauth.UserCredentials) (service.Summary, error)
	createFn    func(ctx context.Context, op *platformauth.UserCredentials, in service.CreateInput) (service.Tenant, error)
	statusFn    func(ctx context.Context, op *platformauth.UserCredentials, id uuid.UUID, status service.Status) (service.Tenant, error)
}

func (m *mockService) ListTenants(ctx context.Context, op *platformauth.UserCredentials, req service.ListRequest) (service.TenantPage, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, op, req)
}

func (m *mockService) GetClientStats(ctx context.Context, op *platformauth.UserCredentials, ids []uuid.UUID) (map[uuid.UUID]service.ClientStats, error) {
	if m.statsFn == nil {
		panic("statsFn not configured")
	}
	return m.statsFn(ctx, op, ids)
}

func (m *mockService) SetFeatureFlag(ctx context.Context, op *platformauth.UserCredentials, id uuid.UUID, flag string, enabled bool) (map[string]bool, error) {
	if m.flagFn == nil {
		panic("flagFn not configured")
	}
	return m.flagFn(ctx, op, id, flag, enabled)
}

func (m *mockService) DashboardSummary(ctx context.Context, op *platformauth.UserCredentials) (service.Summary, error) {
	if m.dashboardFn == nil {
		panic("dashboardFn not configured")
	}
	return m.dashboardFn(ctx, op)
}

func (m *mockService) CreateTenant(ctx context.Context, op *platformauth.UserCredentials, in service.CreateInput) (service.Tenant, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, op, in)
}

func (m *mockService) SetTenantStatus(ctx context.Context, op *platformauth.UserCredentials, id uuid.UUID, status service.Status) (service.Tenant, error) {
	if m.statusFn == nil {
		panic("statusFn not configured")
	}
	return m.statusFn(ctx, op, id, status)
}

func (m *mockService) TenantActive(ctx context.Context, id uuid.UUID) (bool, error) {
	panic("TenantActive is not served over HTTP")
}

var testOperator = &platformauth.UserCredentials{ID: "ops-1", Role: platformauth.RolePlatformAdmin, IsPlatformAdmin: true}

func do(t *testing.T, svc service.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	New(svc, zaptest.NewLogger(t)).Register(r)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(platformauth.WithUser(req.Context(), testOperator))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListTenantsTranslatesPaging(t *testing.T) {
	t.Parallel()
	var got service.ListRequest
	svc := &mockService{
		listFn: func(ctx context.Context, op *platformauth.UserCredentials, req service.ListRequest) (service.TenantPage, error) {
			got = req
			require.Same(t, testOperator, op)
			return service.TenantPage{
				Items: []service.Tenant{{ID: uuid.New(), Slug: "acme", Status: service.StatusSuspended, Plan: "pro", Flags: map[string]bool{"ai_assistant": true}}},
				Total: 21,
			}, nil
		},
	}
	rec := do(t, svc, http.MethodGet, "/admin/tenants?page=2&pageSize=10&status=suspended", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, got.Page)
	require.Equal(t, 10, got.PageSize)
	require.Equal(t, service.StatusSuspended, *got.Status)

	var page httpapi.Page[tenantDTO]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 2, page.Page)
	require.Equal(t, 3, page.TotalPages)
	require.True(t, page.Items[0].Flags["ai_assistant"])

	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodGet, "/admin/tenants?status=archived", "").Code)
}

func TestStatsParsesIDs(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	svc := &mockService{
		statsFn: func(ctx context.Context, op *platformauth.UserCredentials, ids []uuid.UUID) (map[uuid.UUID]service.ClientStats, error) {
			require.Equal(t, []uuid.UUID{a, b}, ids)
			return map[uuid.UUID]service.ClientStats{
				a: {TenantID: a, Screens: 2, Scenes: 3, Schedules: 1},
				b: {TenantID: b},
			}, nil
		},
	}
	rec := do(t, svc, http.MethodGet, "/admin/tenants/stats?ids="+a.String()+","+b.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stats map[string]statsDTO `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, statsDTO{Screens: 2, Scenes: 3, Schedules: 1}, body.Stats[a.String()])

	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodGet, "/admin/tenants/stats?ids=nope", "").Code)
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	svc := &mockService{
		dashboardFn: func(ctx context.Context, op *platformauth.UserCredentials) (service.Summary, error) {
			return service.Summary{Totals: service.Totals{Tenants: 4, Screens: 40}, GeneratedAt: at}, nil
		},
	}
	rec := do(t, svc, http.MethodGet, "/admin/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"tenants":4`)
	require.Contains(t, rec.Body.String(), `"screens":40`)
}

func TestSetFlagRequiresEnabled(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	svc := &mockService{
		flagFn: func(ctx context.Context, op *platformauth.UserCredentials, got uuid.UUID, flag string, enabled bool) (map[string]bool, error) {
			require.Equal(t, id, got)
			require.Equal(t, "white_label", flag)
			return map[string]bool{flag: enabled}, nil
		},
	}
	target := "/admin/tenants/" + id.String() + "/flags/white_label"
	rec := do(t, svc, http.MethodPut, target, `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"white_label":true`)

	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodPut, target, `{}`).Code)
}

func TestTenantsErrorMapping(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		createFn: func(ctx context.Context, op *platformauth.UserCredentials, in service.CreateInput) (service.Tenant, error) {
			return service.Tenant{}, service.ErrConflictSlug
		},
		statusFn: func(ctx context.Context, op *platformauth.UserCredentials, id uuid.UUID, status service.Status) (service.Tenant, error) {
			return service.Tenant{}, service.ErrNotFound
		},
		dashboardFn: func(ctx context.Context, op *platformauth.UserCredentials) (service.Summary, error) {
			return service.Summary{}, service.ErrNotOperator
		},
	}
	require.Equal(t, http.StatusConflict, do(t, svc, http.MethodPost, "/admin/tenants", `{"slug":"acme"}`).Code)
	require.Equal(t, http.StatusNotFound, do(t, svc, http.MethodPatch, "/admin/tenants/"+uuid.NewString()+"/status", `{"status":"active"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodPatch, "/admin/tenants/"+uuid.NewString()+"/status", `{"status":"gone"}`).Code)
	require.Equal(t, http.StatusForbidden, do(t, svc, http.MethodGet, "/admin/dashboard", "").Code)
}
