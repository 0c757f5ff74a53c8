package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	platformlogging "github.com/bizscreen/console/platform/go/logging"
	"github.com/bizscreen/console/platform/go/metrics"
	platformmiddleware "github.com/bizscreen/console/platform/go/middleware"
	tenantmiddleware "github.com/bizscreen/console/platform/go/tenant/middleware"
)

type routerDeps struct {
	app         *app
	auth        func(http.Handler) http.Handler
	pings       map[string]func(ctx context.Context) error
	gatherer    prometheus.Gatherer
	httpMetrics *metrics.HTTP
}

func newRouter(cfg config, deps routerDeps, logger *zap.Logger) http.Handler {
	root := chi.NewRouter()
	root.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.CORS(cfg.CORSOrigins),
		platformlogging.RequestLogger(logger, "/healthz", "/readyz", "/metrics"),
	)
	if deps.httpMetrics != nil {
		root.Use(deps.httpMetrics.Middleware)
	}

	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/readyz", readiness(deps.pings, logger))
	if deps.gatherer != nil {
		root.Method(http.MethodGet, "/metrics", metrics.Handler(deps.gatherer))
	}

	api := chi.NewRouter()
	api.Use(deps.auth)
	api.Use(platformauth.Authenticated)
	api.Use(platformmiddleware.RequestTrace)

	api.Group(func(r chi.Router) {
		r.Use(platformauth.RequireRole(platformauth.RolePlatformAdmin))
		for _, h := range deps.app.admin {
			h.Register(r)
		}
	})
	api.Group(func(r chi.Router) {
		r.Use(tenantmiddleware.WithScope(deps.app.tenants, tenantmiddleware.Config{CacheTTL: cfg.TenantCacheTTL}))
		for _, h := range deps.app.scoped {
			h.Register(r)
		}
	})

	root.Mount("/api/v1", api)
	return root
}

// readiness answers 503 when any backend fails its ping.
func readiness(pings map[string]func(ctx context.Context) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, ping := range pings {
			if err := ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.String("backend", name), zap.Error(err))
				http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
