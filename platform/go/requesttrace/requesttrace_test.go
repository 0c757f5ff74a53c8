package requesttrace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	audit := System("req-1")

	got, ok := FromContext(IntoContext(context.Background(), audit))
	require.True(t, ok)
	require.Equal(t, audit, got)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
	require.Equal(t, ActorKindAnonymous, FromContextOrAnonymous(context.Background()).ActorKind)
}

func TestFromCredentials(t *testing.T) {
	t.Parallel()

	audit, err := FromCredentials(&platformauth.UserCredentials{ID: "u-1", Email: "owner@acme.test"}, "req-2")
	require.NoError(t, err)
	require.Equal(t, ActorKindUser, audit.ActorKind)
	require.Equal(t, "u-1", *audit.UserID)
	require.False(t, audit.PlatformAdmin)
	require.Equal(t, "owner@acme.test", audit.Actor())

	_, err = FromCredentials(&platformauth.UserCredentials{}, "req-3")
	require.Error(t, err)
	_, err = FromCredentials(nil, "req-3")
	require.Error(t, err)
}

func TestActorLabels(t *testing.T) {
	t.Parallel()
	id := "u-9"

	require.Equal(t, "u-9", AuditInfo{ActorKind: ActorKindUser, UserID: &id}.Actor())
	require.Equal(t, "system", System("").Actor())
	require.Equal(t, "anonymous", Anonymous("").Actor())
}

func TestForScopeMarksImpersonatedWrites(t *testing.T) {
	t.Parallel()

	ops, err := FromCredentials(&platformauth.UserCredentials{ID: "ops-1", Email: "ops@bizscreen.test", IsPlatformAdmin: true}, "")
	require.NoError(t, err)

	own := tenant.Scope{TenantID: uuid.New(), UserID: "ops-1", Role: platformauth.RoleOwner}
	require.Equal(t, ActorKindUser, ops.ForScope(own).ActorKind)

	own.Impersonating = true
	support := ops.ForScope(own)
	require.Equal(t, ActorKindSupport, support.ActorKind)
	require.Equal(t, "support: ops@bizscreen.test", support.Actor())

	require.Equal(t, ActorKindSystem, System("").ForScope(own).ActorKind)
}
