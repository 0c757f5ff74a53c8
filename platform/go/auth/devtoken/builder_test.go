package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildUnsignedToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := BuildUnsignedToken(Params{
		TenantID:      "7b0d5c7e-0a4e-4b8e-9d0b-1f1c2a3b4c5d",
		UserID:        "user-123",
		Email:         "owner@example.com",
		Name:          "Dev Owner",
		Role:          "admin",
		EmailVerified: true,
		ExpiresIn:     time.Hour,
	}, now)
	require.NoError(t, err)

	header, payload := splitToken(t, token)
	require.Equal(t, "none", header["alg"])
	require.Equal(t, "authenticated", payload["aud"])
	require.Equal(t, "user-123", payload["sub"])
	require.Equal(t, "owner@example.com", payload["email"])
	require.Equal(t, float64(now.Add(time.Hour).Unix()), payload["exp"])

	appMeta, ok := payload["app_metadata"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "7b0d5c7e-0a4e-4b8e-9d0b-1f1c2a3b4c5d", appMeta["tenant_id"])
	require.Equal(t, "admin", appMeta["role"])
}

func TestBuildUnsignedTokenRequiresFields(t *testing.T) {
	_, err := BuildUnsignedToken(Params{UserID: "u", Email: "e@example.com"}, time.Time{})
	require.ErrorContains(t, err, "tenantID")

	_, err = BuildUnsignedToken(Params{TenantID: "t", Email: "e@example.com"}, time.Time{})
	require.ErrorContains(t, err, "userID")

	// platform admins may mint tokens without a home tenant
	_, err = BuildUnsignedToken(Params{UserID: "u", Email: "e@example.com", PlatformAdmin: true}, time.Time{})
	require.NoError(t, err)
}

func TestBuildSignedTokenHasThreeSegments(t *testing.T) {
	token, err := BuildSignedToken(Params{TenantID: "t", UserID: "u", Email: "e@example.com"}, []byte("secret"), time.Now())
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	_, err = BuildSignedToken(Params{TenantID: "t", UserID: "u", Email: "e@example.com"}, nil, time.Now())
	require.Error(t, err)
}

func splitToken(t *testing.T, token string) (map[string]interface{}, map[string]interface{}) {
	t.Helper()
	parts := strings.Split(token, ".")
	require.GreaterOrEqual(t, len(parts), 2, "invalid token format: %q", token)
	return decodeSegment(t, parts[0]), decodeSegment(t, parts[1])
}

func decodeSegment(t *testing.T, segment string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
