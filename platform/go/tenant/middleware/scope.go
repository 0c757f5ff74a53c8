package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	platformlogging "github.com/bizscreen/console/platform/go/logging"
	"github.com/bizscreen/console/platform/go/tenant"
)

// ImpersonateHeader lets a platform admin act inside another tenant.
const ImpersonateHeader = "X-Impersonate-Tenant"

// ErrTenantUnknown is returned by resolvers for tenants that do not exist.
var ErrTenantUnknown = errors.New("tenant unknown")

// Resolver reports whether a tenant exists and may be served.
// Implemented by the tenants service.
type Resolver interface {
	TenantActive(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

// Config controls middleware behavior.
type Config struct {
	// Small in-memory TTL cache to avoid DB hits; zero disables caching.
	CacheTTL time.Duration
}

// WithScope builds the tenant.Scope from the authenticated credentials and attaches it to the context.
// Platform admins may send ImpersonateHeader to scope the request to another tenant.
func WithScope(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	var cache *tenantCache
	if cfg.CacheTTL > 0 {
		cache = newTenantCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := platformauth.UserFromContext(r.Context())
			if !ok || creds == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			scope, status, msg := scopeFor(creds, r.Header.Get(ImpersonateHeader))
			if status != 0 {
				http.Error(w, msg, status)
				return
			}

			active, cached := cache.get(scope.TenantID)
			if !cached {
				var err error
				active, err = resolver.TenantActive(r.Context(), scope.TenantID)
				switch {
				case errors.Is(err, ErrTenantUnknown):
					http.Error(w, "tenant not found", http.StatusUnauthorized)
					return
				case err != nil:
					platformlogging.FromRequest(r, zap.NewNop()).Error("resolve tenant", zap.Error(err))
					http.Error(w, "tenant lookup failed", http.StatusServiceUnavailable)
					return
				}
				cache.put(scope.TenantID, active)
			}

			if !active && !scope.Impersonating {
				http.Error(w, "tenant suspended", http.StatusForbidden)
				return
			}

			ctx := tenant.WithScope(r.Context(), scope)
			if logger, ok := platformlogging.FromContext(ctx); ok {
				ctx = platformlogging.WithLogger(ctx, logger.With(
					zap.String("tenant_id", scope.TenantID.String()),
					zap.Bool("impersonating", scope.Impersonating),
				))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func scopeFor(creds *platformauth.UserCredentials, impersonate string) (tenant.Scope, int, string) {
	if impersonate = strings.TrimSpace(impersonate); impersonate != "" {
		if !creds.IsPlatformAdmin {
			return tenant.Scope{}, http.StatusForbidden, "impersonation requires platform admin"
		}
		tid, err := uuid.Parse(impersonate)
		if err != nil {
			return tenant.Scope{}, http.StatusBadRequest, "invalid impersonated tenant id"
		}
		return tenant.Scope{
			TenantID:      tid,
			UserID:        creds.ID,
			Role:          platformauth.RolePlatformAdmin,
			Impersonating: true,
		}, 0, ""
	}

	if creds.TenantID == nil || *creds.TenantID == "" {
		return tenant.Scope{}, http.StatusUnauthorized, "tenant required"
	}
	tid, err := uuid.Parse(*creds.TenantID)
	if err != nil {
		return tenant.Scope{}, http.StatusUnauthorized, "invalid tenant id"
	}

	role := creds.Role
	if creds.IsPlatformAdmin {
		role = platformauth.RolePlatformAdmin
	}
	return tenant.Scope{TenantID: tid, UserID: creds.ID, Role: role}, 0, ""
}

type tenantCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[uuid.UUID]cacheItem
}

type cacheItem struct {
	active    bool
	expiresAt time.Time
}

func newTenantCache(ttl time.Duration) *tenantCache {
	return &tenantCache{ttl: ttl, now: time.Now, items: make(map[uuid.UUID]cacheItem)}
}

func (c *tenantCache) get(id uuid.UUID) (bool, bool) {
	if c == nil {
		return false, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok || c.now().After(item.expiresAt) {
		return false, false
	}
	return item.active, true
}

func (c *tenantCache) put(id uuid.UUID, active bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = cacheItem{active: active, expiresAt: c.now().Add(c.ttl)}
}
