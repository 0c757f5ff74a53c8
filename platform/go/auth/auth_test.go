package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestExtractTenantID(t *testing.T) {
	tenant := "tenant-dev"
	supabaseTenant := "tenant-supabase"
	firebaseTenant := "tenant-firebase"

	testCases := []struct {
		name   string
		claims map[string]interface{}
		want   *string
	}{
		{
			name:   "top level tenant_id",
			claims: map[string]interface{}{"tenant_id": tenant},
			want:   &tenant,
		},
		{
			name:   "top level tenantId",
			claims: map[string]interface{}{"tenantId": tenant},
			want:   &tenant,
		},
		{
			name: "supabase app metadata",
			claims: map[string]interface{}{
				"app_metadata": map[string]interface{}{"tenant_id": supabaseTenant},
			},
			want: &supabaseTenant,
		},
		{
			name: "firebase tenant claim",
			claims: map[string]interface{}{
				"firebase": map[string]interface{}{"tenant": firebaseTenant},
			},
			want: &firebaseTenant,
		},
		{
			name:   "missing tenant",
			claims: map[string]interface{}{},
			want:   nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := extractTenantID(tc.claims)
			if tc.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, *tc.want, *got)
		})
	}
}

func TestDefaultCredentialExtractor(t *testing.T) {
	creds, err := DefaultCredentialExtractor(map[string]interface{}{
		"sub":            "user-123",
		"email":          "user@example.com",
		"email_verified": true,
		"app_metadata": map[string]interface{}{
			"tenant_id": "tenant-dev",
			"role":      "editor",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "user-123", creds.ID)
	require.Equal(t, RoleEditor, creds.Role)
	require.False(t, creds.IsPlatformAdmin)
	require.NotNil(t, creds.TenantID)
	require.Equal(t, "tenant-dev", *creds.TenantID)
}

func TestDefaultCredentialExtractorPlatformAdmin(t *testing.T) {
	creds, err := DefaultCredentialExtractor(map[string]interface{}{
		"sub":          "ops-1",
		"app_metadata": map[string]interface{}{"role": "platform_admin"},
	})
	require.NoError(t, err)
	require.True(t, creds.IsPlatformAdmin)
	require.Nil(t, creds.TenantID)
}

func TestDefaultCredentialExtractorRequiresSubject(t *testing.T) {
	_, err := DefaultCredentialExtractor(map[string]interface{}{"email": "x@example.com"})
	require.Error(t, err)
}

func TestParseRoleDefaultsToViewer(t *testing.T) {
	require.Equal(t, RoleOwner, ParseRole(" Owner "))
	require.Equal(t, RoleViewer, ParseRole("authenticated"))
	require.False(t, RoleViewer.CanWrite())
	require.True(t, RoleEditor.CanWrite())
}

func TestSupabaseTokenVerifier(t *testing.T) {
	secret := []byte("super-secret")
	verify := SupabaseTokenVerifier(secret, "authenticated")

	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}

	valid := sign(jwt.MapClaims{
		"sub": "user-1",
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, secret)

	claims, err := verify(context.Background(), valid)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])

	expired := sign(jwt.MapClaims{
		"sub": "user-1",
		"aud": "authenticated",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, jwt.SigningMethodHS256, secret)
	_, err = verify(context.Background(), expired)
	require.Error(t, err)

	wrongKey := sign(jwt.MapClaims{
		"sub": "user-1",
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, []byte("other"))
	_, err = verify(context.Background(), wrongKey)
	require.Error(t, err)

	wrongAudience := sign(jwt.MapClaims{
		"sub": "user-1",
		"aud": "anon",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, secret)
	_, err = verify(context.Background(), wrongAudience)
	require.Error(t, err)
}

func TestJWTMiddlewareRejectsInvalidToken(t *testing.T) {
	t.Parallel()

	mw := JWT(SupabaseTokenVerifier([]byte("k"), ""), nil)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatedAndRequireRole(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Authenticated(RequireRole(RoleOwner, RoleAdmin)(ok))

	serve := func(creds *UserCredentials) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if creds != nil {
			req = req.WithContext(WithUser(req.Context(), creds))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusUnauthorized, serve(nil))
	require.Equal(t, http.StatusForbidden, serve(&UserCredentials{ID: "u", Role: RoleViewer}))
	require.Equal(t, http.StatusOK, serve(&UserCredentials{ID: "u", Role: RoleAdmin}))
	require.Equal(t, http.StatusOK, serve(&UserCredentials{ID: "u", Role: RoleViewer, IsPlatformAdmin: true}))
}
