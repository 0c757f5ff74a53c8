package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const (
	ctxUserCredentials ctxKey = "BIZSCREEN_USER_CREDENTIALS"
)

// Role is the tenant-level role carried by the access token.
type Role string

const (
	RoleOwner         Role = "owner"
	RoleAdmin         Role = "admin"
	RoleEditor        Role = "editor"
	RoleViewer        Role = "viewer"
	RoleReseller      Role = "reseller"
	RolePlatformAdmin Role = "platform_admin"
)

// ParseRole maps a claim value onto a known role; unknown values degrade to viewer.
func ParseRole(raw string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer, RoleReseller, RolePlatformAdmin:
		return r
	default:
		return RoleViewer
	}
}

// CanWrite reports whether the role may mutate tenant content.
func (r Role) CanWrite() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RolePlatformAdmin:
		return true
	default:
		return false
	}
}

type UserCredentials struct {
	ID              string
	Email           string
	EmailVerified   bool
	Name            *string
	Role            Role
	IsPlatformAdmin bool
	TenantID        *string
}

func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	v := ctx.Value(ctxUserCredentials)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*UserCredentials)
	return u, ok
}

// WithUser stores credentials on the context. Used by the JWT middleware and by tests.
func WithUser(ctx context.Context, creds *UserCredentials) context.Context {
	return context.WithValue(ctx, ctxUserCredentials, creds)
}

// VerifyFunc validates the incoming JWT and returns its claims map.
type VerifyFunc func(ctx context.Context, token string) (map[string]interface{}, error)

// ExtractFunc converts a claims map into UserCredentials.
type ExtractFunc func(claims map[string]interface{}) (*UserCredentials, error)

// JWT parses the request and sets the context credentials using the provided verify/extract functions.
// Requests without a bearer token pass through anonymously; Authenticated decides whether that is acceptable.
func JWT(verify VerifyFunc, extract ExtractFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}
	if extract == nil {
		extract = DefaultCredentialExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractJWTToken(r)
			if token == "" || !found {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			creds, err := extract(claims)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="invalid claims"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), creds)))
		})
	}
}

// Authenticated rejects requests that reached it without credentials.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if creds, ok := UserFromContext(r.Context()); !ok || creds == nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DefaultCredentialExtractor converts Supabase, Firebase and dev claims into UserCredentials.
func DefaultCredentialExtractor(claims map[string]interface{}) (*UserCredentials, error) {
	if claims == nil {
		return nil, errors.New("missing claims")
	}

	id := fallbackStringClaim(claims, []string{"uid", "user_id", "sub"}, "")
	if id == "" {
		return nil, errors.New("subject claim is required")
	}

	appMeta, _ := claims["app_metadata"].(map[string]interface{})

	role := extractStringClaim(appMeta, "role")
	if role == "" {
		role = extractStringClaim(claims, "user_role")
	}

	creds := &UserCredentials{
		ID:              id,
		Email:           extractStringClaim(claims, "email"),
		EmailVerified:   extractBoolClaim(claims, "email_verified"),
		Name:            extractOptionalStringClaim(claims, "name"),
		Role:            ParseRole(role),
		IsPlatformAdmin: extractBoolClaim(appMeta, "is_platform_admin") || extractBoolClaim(claims, "isAdmin"),
		TenantID:        extractTenantID(claims),
	}
	if creds.Role == RolePlatformAdmin {
		creds.IsPlatformAdmin = true
	}

	return creds, nil
}

func extractBoolClaim(claims map[string]interface{}, key string) bool {
	if v, ok := claims[key]; ok {
		if boolVal, valid := v.(bool); valid {
			return boolVal
		}
	}
	return false
}

func extractStringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key]; ok {
		if strVal, valid := v.(string); valid {
			return strVal
		}
	}
	return ""
}

func extractOptionalStringClaim(claims map[string]interface{}, key string) *string {
	if v := extractStringClaim(claims, key); v != "" {
		return &v
	}
	return nil
}

// extractTenantID checks the top-level claim, Supabase app_metadata and the Firebase tenant, in that order.
func extractTenantID(claims map[string]interface{}) *string {
	for _, key := range []string{"tenant_id", "tenantId"} {
		if v := extractOptionalStringClaim(claims, key); v != nil {
			return v
		}
	}

	if appMeta, ok := claims["app_metadata"].(map[string]interface{}); ok {
		if v := extractOptionalStringClaim(appMeta, "tenant_id"); v != nil {
			return v
		}
	}

	if firebaseClaim, ok := claims["firebase"].(map[string]interface{}); ok {
		if v := extractOptionalStringClaim(firebaseClaim, "tenant"); v != nil {
			return v
		}
	}

	return nil
}

func parseUnsignedJWTClaims(token string) (map[string]interface{}, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, errors.New("invalid token format")
	}

	payload := parts[1]
	switch len(payload) % 4 {
	case 2:
		payload += "=="
	case 3:
		payload += "="
	}

	decoded, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	claims := make(map[string]interface{})
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	return claims, nil
}

func fallbackStringClaim(claims map[string]interface{}, keys []string, def string) string {
	for _, key := range keys {
		if v := extractStringClaim(claims, key); v != "" {
			return v
		}
	}
	return def
}

// SupabaseTokenVerifier validates HS256 access tokens signed with the project's JWT secret.
func SupabaseTokenVerifier(secret []byte, audience string) VerifyFunc {
	if len(secret) == 0 {
		panic("auth.SupabaseTokenVerifier: secret must not be empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	parser := jwt.NewParser(opts...)

	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}); err != nil {
			return nil, fmt.Errorf("verify access token: %w", err)
		}
		return map[string]interface{}(claims), nil
	}
}

// FirebaseTokenVerifier returns a VerifyFunc that validates tokens via Firebase Auth.
func FirebaseTokenVerifier(fbAuth *auth.Client) VerifyFunc {
	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		t, err := fbAuth.VerifyIDToken(ctx, token)
		if err != nil {
			return nil, err
		}

		claims := make(map[string]interface{}, len(t.Claims)+2)
		for k, v := range t.Claims {
			claims[k] = v
		}
		claims["uid"] = t.UID
		claims["sub"] = t.Subject
		if tenant := t.Firebase.Tenant; tenant != "" {
			if firebaseClaim, ok := claims["firebase"].(map[string]interface{}); ok {
				firebaseClaim["tenant"] = tenant
				claims["firebase"] = firebaseClaim
			} else {
				claims["firebase"] = map[string]interface{}{"tenant": tenant}
			}
		}

		return claims, nil
	}
}

// UnsignedTokenVerifier returns a VerifyFunc that decodes unsigned JWT payloads without validation.
// Only for local development (AUTH_PROVIDER=dev).
func UnsignedTokenVerifier() VerifyFunc {
	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		return parseUnsignedJWTClaims(token)
	}
}

// RequireRole allows the request when the caller holds one of the roles. Platform admins always pass.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := UserFromContext(r.Context())
			if !ok || creds == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			if !creds.IsPlatformAdmin && !slices.Contains(roles, creds.Role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
