package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/gcp"
)

// buildAuthMiddleware picks the token verifier for the configured identity provider.
func buildAuthMiddleware(ctx context.Context, cfg config, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	var verify platformauth.VerifyFunc
	switch cfg.AuthProvider {
	case "supabase":
		if cfg.SupabaseJWTSecret == "" {
			return nil, fmt.Errorf("SUPABASE_JWT_SECRET is required when AUTH_PROVIDER=supabase")
		}
		verify = platformauth.SupabaseTokenVerifier([]byte(cfg.SupabaseJWTSecret), cfg.JWTAudience)
	case "firebase":
		fbAuth, err := gcp.NewFirebaseAuth(ctx, gcp.Credentials{File: cfg.GCPCredentialsFile, ProjectID: cfg.GCPProjectID})
		if err != nil {
			return nil, err
		}
		verify = platformauth.FirebaseTokenVerifier(fbAuth)
	case "dev":
		logger.Warn("using dev auth middleware; do not use in production")
		verify = platformauth.UnsignedTokenVerifier()
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.AuthProvider)
	}
	return platformauth.JWT(verify, platformauth.DefaultCredentialExtractor), nil
}
