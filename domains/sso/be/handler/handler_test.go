package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/sso/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

type mockService struct {
	getFn      func(ctx context.Context, scope tenant.Scope) (service.Provider, error)
	saveFn     func(ctx context.Context, scope tenant.Scope, p service.Provider) (service.Provider, error)
	toggleFn   func(ctx context.Context, scope tenant.Scope, enabled bool) (service.Provider, error)
	validateFn func(ctx context.Context, scope tenant.Scope, issuer string) (service.Discovery, error)
}

func (m *mockService) GetSSOProvider(ctx context.Context, scope tenant.Scope) (service.Provider, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, scope)
}

func (m *mockService) SaveSSOProvider(ctx context.Context, scope tenant.Scope, p service.Provider) (service.Provider, error) {
	if m.saveFn == nil {
		panic("saveFn not configured")
	}
	return m.saveFn(ctx, scope, p)
}

func (m *mockService) ToggleSSOEnabled(ctx context.Context, scope tenant.Scope, enabled bool) (service.Provider, error) {
	if m.toggleFn == nil {
		panic("toggleFn not configured")
	}
	return m.toggleFn(ctx, scope, enabled)
}

func (m *mockService) ValidateOIDCIssuer(ctx context.Context, scope tenant.Scope, issuer string) (service.Discovery, error) {
	if m.validateFn == nil {
		panic("validateFn not configured")
	}
	return m.validateFn(ctx, scope, issuer)
}

func (m *mockService) SCIMEndpoints() []service.SCIMEndpoint {
	return []service.SCIMEndpoint{{Method: "GET", Path: "/api/scim/users"}}
}

var testScope = tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleOwner}

func do(t *testing.T, svc service.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	New(svc, zaptest.NewLogger(t)).Register(r)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(tenant.WithScope(req.Context(), testScope))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetMasksSecret(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		getFn: func(ctx context.Context, scope tenant.Scope) (service.Provider, error) {
			return service.Provider{Type: service.TypeOIDC, ClientID: "c", ClientSecret: "super-secret-1234"}, nil
		},
	}
	rec := do(t, svc, http.MethodGet, "/sso/provider", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "super-secret")

	var body providerDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Configured)
	require.Equal(t, "••••1234", body.ClientSecretHint)
}

func TestGetUnconfigured(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		getFn: func(ctx context.Context, scope tenant.Scope) (service.Provider, error) {
			return service.Provider{}, service.ErrNotConfigured
		},
	}
	rec := do(t, svc, http.MethodGet, "/sso/provider", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"configured":false,"isEnabled":false,"enforceSso":false}`, rec.Body.String())
}

func TestToggleErrors(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		toggleFn: func(ctx context.Context, scope tenant.Scope, enabled bool) (service.Provider, error) {
			require.True(t, enabled)
			return service.Provider{}, service.ErrIncomplete
		},
	}
	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodPatch, "/sso/provider/enabled", `{}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, do(t, svc, http.MethodPatch, "/sso/provider/enabled", `{"enabled":true}`).Code)
}

func TestValidateIssuerReportsReason(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		validateFn: func(ctx context.Context, scope tenant.Scope, issuer string) (service.Discovery, error) {
			return service.Discovery{}, fmt.Errorf("%w: issuer mismatch", service.ErrDiscovery)
		},
	}
	rec := do(t, svc, http.MethodPost, "/sso/oidc/validate", `{"issuer":"https://idp"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "issuer mismatch")
}

func TestSaveRejectsUnknownType(t *testing.T) {
	t.Parallel()
	rec := do(t, &mockService{}, http.MethodPut, "/sso/provider", `{"type":"ldap"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSCIMEndpoints(t *testing.T) {
	t.Parallel()
	rec := do(t, &mockService{}, http.MethodGet, "/sso/scim/endpoints", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/api/scim/users")
}
