package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/social/be/repo"
	"github.com/bizscreen/console/domains/social/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T, revokers map[service.Provider]service.Revoker) (service.Service, *clock, tenant.Scope) {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := service.New(service.Config{
		Repo:     repo.NewMemoryRepository(),
		Revokers: revokers,
		Logger:   zaptest.NewLogger(t),
		Now:      c.Now,
	})
	return svc, c, tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleOwner}
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	old := now.Add(-25 * time.Hour)
	msg := "token expired"

	cases := []struct {
		name string
		acct service.Account
		want service.SyncState
	}{
		{"never synced", service.Account{}, service.SyncStale},
		{"older than a day", service.Account{LastSyncAt: &old}, service.SyncStale},
		{"recent", service.Account{LastSyncAt: &recent}, service.SyncSynced},
		{"error wins over recent", service.Account{LastSyncAt: &recent, LastSyncError: &msg}, service.SyncError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, service.DeriveStatus(tc.acct, now).State)
		})
	}
}

func TestSyncLifecycle(t *testing.T) {
	t.Parallel()
	svc, c, scope := newService(t, nil)
	ctx := context.Background()

	a, err := svc.ConnectAccount(ctx, scope, "Instagram", " @cafe ")
	require.NoError(t, err)
	require.Equal(t, service.ProviderInstagram, a.Provider)
	require.Equal(t, "@cafe", a.AccountName)

	st, err := svc.GetSyncStatus(ctx, scope, a.ID)
	require.NoError(t, err)
	require.Equal(t, service.SyncStale, st.State)

	st, err = svc.ForceSyncAccount(ctx, scope, a.ID)
	require.NoError(t, err)
	require.True(t, st.SyncRequested)

	st, err = svc.RecordSyncResult(ctx, scope, a.ID, nil)
	require.NoError(t, err)
	require.Equal(t, service.SyncSynced, st.State)
	require.False(t, st.SyncRequested)

	st, err = svc.RecordSyncResult(ctx, scope, a.ID, errors.New("rate limited"))
	require.NoError(t, err)
	require.Equal(t, service.SyncError, st.State)
	require.Equal(t, "rate limited", st.LastSyncError)
	require.NotNil(t, st.LastSyncAt, "a failed sync keeps the last good timestamp")

	_, err = svc.RecordSyncResult(ctx, scope, a.ID, nil)
	require.NoError(t, err)
	c.Advance(25 * time.Hour)
	items, err := svc.ListAccounts(ctx, scope)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, service.SyncStale, items[0].Status.State)
}

func TestConnectValidates(t *testing.T) {
	t.Parallel()
	svc, _, scope := newService(t, nil)

	_, err := svc.ConnectAccount(context.Background(), scope, "myspace", "")
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "provider")
	require.Contains(t, verr.Fields, "accountName")
}

func TestDisconnectUsesProviderRevoker(t *testing.T) {
	t.Parallel()
	var revoked []uuid.UUID
	revokers := map[service.Provider]service.Revoker{
		service.ProviderFacebook: service.RevokerFunc(func(ctx context.Context, a service.Account) error {
			revoked = append(revoked, a.ID)
			return errors.New("graph api down")
		}),
	}
	svc, _, scope := newService(t, revokers)
	ctx := context.Background()

	fb, err := svc.ConnectAccount(ctx, scope, service.ProviderFacebook, "Cafe Page")
	require.NoError(t, err)
	tt, err := svc.ConnectAccount(ctx, scope, service.ProviderTikTok, "@cafe")
	require.NoError(t, err)

	require.NoError(t, svc.DisconnectAccount(ctx, scope, fb.ID))
	require.NoError(t, svc.DisconnectAccount(ctx, scope, tt.ID))
	require.Equal(t, []uuid.UUID{fb.ID}, revoked)

	items, err := svc.ListAccounts(ctx, scope)
	require.NoError(t, err)
	require.Empty(t, items)

	require.ErrorIs(t, svc.DisconnectAccount(ctx, scope, fb.ID), service.ErrNotFound)
}

func TestTenantIsolationAndRoles(t *testing.T) {
	t.Parallel()
	svc, _, scope := newService(t, nil)
	ctx := context.Background()

	a, err := svc.ConnectAccount(ctx, scope, service.ProviderGoogle, "Cafe on Maps")
	require.NoError(t, err)

	other := tenant.Scope{TenantID: uuid.New(), UserID: "x", Role: platformauth.RoleOwner}
	_, err = svc.GetSyncStatus(ctx, other, a.ID)
	require.ErrorIs(t, err, service.ErrNotFound)

	viewer := scope
	viewer.Role = platformauth.RoleViewer
	_, err = svc.ForceSyncAccount(ctx, viewer, a.ID)
	require.ErrorIs(t, err, tenant.ErrForbidden)
	editor := scope
	editor.Role = platformauth.RoleEditor
	require.ErrorIs(t, svc.DisconnectAccount(ctx, editor, a.ID), tenant.ErrForbidden)
}
