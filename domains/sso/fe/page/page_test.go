package page

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/sso/be/repo"
	"github.com/bizscreen/console/domains/sso/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/pagestate"
	"github.com/bizscreen/console/platform/go/tenant"
)

type fakeDiscoverer struct{}

func (fakeDiscoverer) Discover(ctx context.Context, issuer string) (service.Discovery, error) {
	if issuer == "https://down.example.com" {
		return service.Discovery{}, errors.Join(service.ErrDiscovery, errors.New("connection refused"))
	}
	return service.Discovery{
		Issuer:                issuer,
		AuthorizationEndpoint: issuer + "/authorize",
		TokenEndpoint:         issuer + "/token",
		UserinfoEndpoint:      issuer + "/userinfo",
		JWKSURI:               issuer + "/jwks",
	}, nil
}

type failing struct {
	service.Service
	toggleErr error
}

func (f *failing) ToggleSSOEnabled(ctx context.Context, scope tenant.Scope, enabled bool) (service.Provider, error) {
	if f.toggleErr != nil {
		return service.Provider{}, f.toggleErr
	}
	return f.Service.ToggleSSOEnabled(ctx, scope, enabled)
}

func setup(t *testing.T) (*Page, *failing, *pagestate.Recorder) {
	t.Helper()
	scope := tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleAdmin}
	svc := &failing{Service: service.New(repo.NewMemoryRepository(), fakeDiscoverer{}, nil, zaptest.NewLogger(t))}
	rec := &pagestate.Recorder{}
	p := New(context.Background(), svc, scope, rec, zaptest.NewLogger(t))
	t.Cleanup(p.Close)
	return p, svc, rec
}

func TestUnconfiguredLoadIsNotAnError(t *testing.T) {
	t.Parallel()
	p, _, rec := setup(t)
	require.NoError(t, p.Load(context.Background()))
	v := p.View()
	require.False(t, v.Configured)
	require.Empty(t, v.Err)
	require.Equal(t, service.TypeOIDC, v.Draft.Type)
	require.Len(t, v.SCIM, 6)
	require.Empty(t, rec.Toasts())
}

func TestDiscoveryFillsEndpointsThenSaveAndEnable(t *testing.T) {
	t.Parallel()
	p, _, rec := setup(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	p.Edit(func(d *service.Provider) {
		d.Issuer = "https://idp.example.com"
		d.ClientID = "console"
		d.ClientSecret = "secret-1"
	})
	require.NoError(t, p.ApplyDiscovery(ctx))
	v := p.View()
	require.Equal(t, "https://idp.example.com/token", v.Draft.TokenURL)
	require.NotNil(t, v.Discovery)

	require.NoError(t, p.Save(ctx))
	v = p.View()
	require.True(t, v.Configured)
	require.Empty(t, v.Draft.ClientSecret, "secret is not echoed back into the form")

	require.NoError(t, p.ToggleEnabled(ctx))
	require.True(t, p.View().Saved.IsEnabled)
	last, _ := rec.Last()
	require.Equal(t, "SSO enabled", last.Message)
}

func TestDiscoveryFailureToasts(t *testing.T) {
	t.Parallel()
	p, _, rec := setup(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	p.Edit(func(d *service.Provider) { d.Issuer = "https://down.example.com" })
	require.ErrorIs(t, p.ApplyDiscovery(ctx), service.ErrDiscovery)
	require.Nil(t, p.View().Discovery)
	last, _ := rec.Last()
	require.Equal(t, pagestate.KindError, last.Kind)
}

func TestToggleFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	p, svc, rec := setup(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))
	p.Edit(func(d *service.Provider) {
		d.Issuer = "https://idp.example.com"
		d.ClientID = "console"
		d.ClientSecret = "secret-1"
	})
	require.NoError(t, p.ApplyDiscovery(ctx))
	require.NoError(t, p.Save(ctx))

	svc.toggleErr = errors.New("network down")
	require.Error(t, p.ToggleEnabled(ctx))
	require.False(t, p.View().Saved.IsEnabled)
	require.False(t, p.View().Toggling)
	last, _ := rec.Last()
	require.Equal(t, pagestate.KindError, last.Kind)
}

func TestToggleWithoutProviderToasts(t *testing.T) {
	t.Parallel()
	p, _, rec := setup(t)
	require.NoError(t, p.Load(context.Background()))
	require.ErrorIs(t, p.ToggleEnabled(context.Background()), service.ErrNotConfigured)
	require.Len(t, rec.Toasts(), 1)
}
