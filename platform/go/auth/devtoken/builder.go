package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Params captures the Supabase-shaped claims needed to mint a token for local and CI environments.
// No environment variables are read so the builder stays deterministic for tooling.
type Params struct {
	TenantID      string        // app_metadata.tenant_id (required)
	UserID        string        // sub (required)
	Email         string        // email (required)
	Name          string        // display name (optional)
	Role          string        // app_metadata.role; defaults to "owner"
	PlatformAdmin bool          // app_metadata.is_platform_admin
	EmailVerified bool          // email_verified
	ExpiresIn     time.Duration // relative expiry; default 1h if zero
	Audience      string        // defaults to "authenticated"
	Issuer        string        // defaults to "bizscreen-dev"
}

// Claims returns the payload for p at the given instant.
func Claims(p Params, now time.Time) (map[string]interface{}, error) {
	if strings.TrimSpace(p.TenantID) == "" && !p.PlatformAdmin {
		return nil, errors.New("tenantID is required")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return nil, errors.New("userID is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, errors.New("email is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	audience := p.Audience
	if strings.TrimSpace(audience) == "" {
		audience = "authenticated"
	}

	issuer := p.Issuer
	if strings.TrimSpace(issuer) == "" {
		issuer = "bizscreen-dev"
	}

	role := p.Role
	if strings.TrimSpace(role) == "" {
		role = "owner"
	}

	appMeta := map[string]interface{}{
		"role":              role,
		"is_platform_admin": p.PlatformAdmin,
	}
	if p.TenantID != "" {
		appMeta["tenant_id"] = p.TenantID
	}

	payload := map[string]interface{}{
		"iss":            issuer,
		"aud":            audience,
		"sub":            p.UserID,
		"iat":            now.Unix(),
		"exp":            now.Add(expiresIn).Unix(),
		"email":          p.Email,
		"email_verified": p.EmailVerified,
		"role":           "authenticated",
		"app_metadata":   appMeta,
	}
	if p.Name != "" {
		payload["name"] = p.Name
	}

	return payload, nil
}

// BuildUnsignedToken returns a JWT string with alg "none" and no signature.
// It flows through the auth middleware when AUTH_PROVIDER=dev.
func BuildUnsignedToken(p Params, now time.Time) (string, error) {
	payload, err := Claims(p, now)
	if err != nil {
		return "", err
	}

	headerSegment, err := encodeSegment(map[string]interface{}{"alg": "none", "typ": "JWT"})
	if err != nil {
		return "", err
	}

	payloadSegment, err := encodeSegment(payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s.%s", headerSegment, payloadSegment), nil
}

// BuildSignedToken signs the same payload with HS256, matching what the Supabase verifier accepts.
func BuildSignedToken(p Params, secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("secret is required")
	}
	payload, err := Claims(p, now)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(payload))
	return token.SignedString(secret)
}

func encodeSegment(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
