package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	tenantsservice "github.com/bizscreen/console/domains/tenants/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/auth/devtoken"
	"github.com/bizscreen/console/platform/go/cache"
	"github.com/bizscreen/console/platform/go/metrics"
)

const testSecret = "test-secret"

type server struct {
	handler http.Handler
	app     *app
}

func newTestServer(t *testing.T, pings map[string]func(ctx context.Context) error) server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config{
		RequestTimeout:    5 * time.Second,
		EnvKey:            "test",
		AuthProvider:      "supabase",
		SupabaseJWTSecret: testSecret,
		JWTAudience:       "authenticated",
		DashboardCacheTTL: time.Minute,
	}

	a, err := newApp(cfg, backends{kv: cache.NewMemoryKV(nil)}, logger)
	require.NoError(t, err)
	auth, err := buildAuthMiddleware(context.Background(), cfg, logger)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return server{
		app: a,
		handler: newRouter(cfg, routerDeps{
			app:         a,
			auth:        auth,
			pings:       pings,
			gatherer:    reg,
			httpMetrics: metrics.NewHTTP(reg),
		}, logger),
	}
}

func token(t *testing.T, p devtoken.Params) string {
	t.Helper()
	if p.Email == "" {
		p.Email = p.UserID + "@example.com"
	}
	tok, err := devtoken.BuildSignedToken(p, []byte(testSecret), time.Now())
	require.NoError(t, err)
	return tok
}

func (s server) get(t *testing.T, path, bearer string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, s.get(t, "/healthz", ""))
	require.Equal(t, http.StatusOK, s.get(t, "/readyz", ""))
	require.Equal(t, http.StatusOK, s.get(t, "/metrics", ""))
}

func TestReadinessReportsFailingBackend(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, map[string]func(ctx context.Context) error{
		"postgres": func(context.Context) error { return errors.New("down") },
	})
	require.Equal(t, http.StatusServiceUnavailable, s.get(t, "/readyz", ""))
}

func TestTenantRoutesRequireActiveTenant(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	ops := &platformauth.UserCredentials{ID: "ops", Role: platformauth.RolePlatformAdmin, IsPlatformAdmin: true}
	tn, err := s.app.tenants.CreateTenant(context.Background(), ops, tenantsservice.CreateInput{Slug: "acme"})
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, s.get(t, "/api/v1/activity", ""))

	owner := token(t, devtoken.Params{TenantID: tn.ID.String(), UserID: "owner-1", Role: "owner"})
	require.Equal(t, http.StatusOK, s.get(t, "/api/v1/activity", owner))
	require.Equal(t, http.StatusOK, s.get(t, "/api/v1/social/accounts", owner))

	stranger := token(t, devtoken.Params{TenantID: "7b0d5c7e-0a4e-4b8e-9d0b-1f1c2a3b4c5d", UserID: "u", Role: "owner"})
	require.Equal(t, http.StatusUnauthorized, s.get(t, "/api/v1/activity", stranger))

	_, err = s.app.tenants.SetTenantStatus(context.Background(), ops, tn.ID, tenantsservice.StatusSuspended)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, s.get(t, "/api/v1/activity", owner))
}

func TestAdminRoutesRequirePlatformAdmin(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	ops := &platformauth.UserCredentials{ID: "ops", Role: platformauth.RolePlatformAdmin, IsPlatformAdmin: true}
	tn, err := s.app.tenants.CreateTenant(context.Background(), ops, tenantsservice.CreateInput{Slug: "acme"})
	require.NoError(t, err)

	owner := token(t, devtoken.Params{TenantID: tn.ID.String(), UserID: "owner-1", Role: "owner"})
	require.Equal(t, http.StatusForbidden, s.get(t, "/api/v1/admin/dashboard", owner))

	admin := token(t, devtoken.Params{UserID: "ops-1", PlatformAdmin: true, Role: "platform_admin"})
	require.Equal(t, http.StatusOK, s.get(t, "/api/v1/admin/dashboard", admin))
	require.Equal(t, http.StatusOK, s.get(t, "/api/v1/admin/tenants", admin))
}

func TestBuildAuthMiddlewareRejectsUnknownProvider(t *testing.T) {
	t.Parallel()
	_, err := buildAuthMiddleware(context.Background(), config{AuthProvider: "ldap"}, zaptest.NewLogger(t))
	require.Error(t, err)
	_, err = buildAuthMiddleware(context.Background(), config{AuthProvider: "supabase"}, zaptest.NewLogger(t))
	require.Error(t, err)
}
