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

	"github.com/bizscreen/console/domains/social/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

type mockService struct {
	connectFn    func(ctx context.Context, scope tenant.Scope, provider service.Provider, name string) (service.Account, error)
	listFn       func(ctx context.Context, scope tenant.Scope) ([]service.AccountWithStatus, error)
	statusFn     func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.SyncStatus, error)
	syncFn       func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.SyncStatus, error)
	recordFn     func(ctx context.Context, scope tenant.Scope, id uuid.UUID, failure error) (service.SyncStatus, error)
	disconnectFn func(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

func (m *mockService) ConnectAccount(ctx context.Context, scope tenant.Scope, provider service.Provider, name string) (service.Account, error) {
	if m.connectFn == nil {
		panic("connectFn not configured")
	}
	return m.connectFn(ctx, scope, provider, name)
}

func (m *mockService) ListAccounts(ctx context.Context, scope tenant.Scope) ([]service.AccountWithStatus, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, scope)
}

func (m *mockService) GetSyncStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.SyncStatus, error) {
	if m.statusFn == nil {
		panic("statusFn not configured")
	}
	return m.statusFn(ctx, scope, id)
}

func (m *mockService) ForceSyncAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.SyncStatus, error) {
	if m.syncFn == nil {
		panic("syncFn not configured")
	}
	return m.syncFn(ctx, scope, id)
}

func (m *mockService) RecordSyncResult(ctx context.Context, scope tenant.Scope, id uuid.UUID, failure error) (service.SyncStatus, error) {
	if m.recordFn == nil {
		panic("recordFn not configured")
	}
	return m.recordFn(ctx, scope, id, failure)
}

func (m *mockService) DisconnectAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if m.disconnectFn == nil {
		panic("disconnectFn not configured")
	}
	return m.disconnectFn(ctx, scope, id)
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

func TestListIncludesDerivedStatus(t *testing.T) {
	t.Parallel()
	synced := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := &mockService{
		listFn: func(ctx context.Context, scope tenant.Scope) ([]service.AccountWithStatus, error) {
			return []service.AccountWithStatus{{
				Account: service.Account{ID: uuid.New(), Provider: service.ProviderInstagram, AccountName: "@cafe"},
				Status:  service.SyncStatus{State: service.SyncSynced, LastSyncAt: &synced},
			}}, nil
		},
	}
	rec := do(t, svc, http.MethodGet, "/social/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []accountDTO `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	require.Equal(t, "synced", body.Items[0].Status.State)
	require.Equal(t, "instagram", body.Items[0].Provider)
}

func TestForceSyncIsAccepted(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		syncFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.SyncStatus, error) {
			return service.SyncStatus{AccountID: id, State: service.SyncStale, SyncRequested: true}, nil
		},
	}
	rec := do(t, svc, http.MethodPost, "/social/accounts/"+uuid.NewString()+"/sync", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"syncRequested":true`)
}

func TestSocialErrorMapping(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		statusFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.SyncStatus, error) {
			return service.SyncStatus{}, service.ErrNotFound
		},
		disconnectFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID) error { return tenant.ErrForbidden },
	}
	id := uuid.NewString()
	require.Equal(t, http.StatusNotFound, do(t, svc, http.MethodGet, "/social/accounts/"+id+"/sync-status", "").Code)
	require.Equal(t, http.StatusForbidden, do(t, svc, http.MethodDelete, "/social/accounts/"+id, "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodDelete, "/social/accounts/not-a-uuid", "").Code)
}
