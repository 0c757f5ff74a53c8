package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	platformlogging "github.com/bizscreen/console/platform/go/logging"
	"github.com/bizscreen/console/platform/go/requesttrace"
)

// RequestTrace attributes the request to its caller and tags the request logger with it.
// Mount it after platformauth.JWT; without credentials the request stays anonymous.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := chimw.GetReqID(ctx)

		audit := requesttrace.Anonymous(reqID)
		if creds, ok := platformauth.UserFromContext(ctx); ok {
			traced, err := requesttrace.FromCredentials(creds, reqID)
			if err != nil {
				platformlogging.FromContextOr(ctx, zap.NewNop()).Warn("credentials without user id", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			audit = traced
		}
		ctx = requesttrace.IntoContext(ctx, audit)

		if logger := platformlogging.FromContextOr(ctx, nil); logger != nil && audit.UserID != nil {
			ctx = platformlogging.WithLogger(ctx, logger.With(
				zap.String("user_id", *audit.UserID),
				zap.Bool("platform_admin", audit.PlatformAdmin),
			))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
