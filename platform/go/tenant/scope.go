package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"

	platformauth "github.com/bizscreen/console/platform/go/auth"
)

// ErrMissingScope is returned when a tenant-scoped call receives no tenant.
var ErrMissingScope = errors.New("tenant scope missing")

// ErrForbidden is returned when the caller's role does not permit the operation.
var ErrForbidden = errors.New("operation not permitted for role")

// Scope is the request context every service call receives explicitly:
// which tenant is being acted on, by whom, with which role, and whether a
// platform admin is impersonating the tenant.
type Scope struct {
	TenantID      uuid.UUID
	UserID        string
	Role          platformauth.Role
	Impersonating bool
}

// Validate ensures the scope names a tenant.
func (s Scope) Validate() error {
	if s.TenantID == uuid.Nil {
		return ErrMissingScope
	}
	return nil
}

// RequireWrite validates the scope and checks the role may mutate tenant data.
func (s Scope) RequireWrite() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !s.Role.CanWrite() {
		return ErrForbidden
	}
	return nil
}

// RequireRole validates the scope and checks the role is one of roles.
// Impersonating platform admins pass.
func (s Scope) RequireRole(roles ...platformauth.Role) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Impersonating || s.Role == platformauth.RolePlatformAdmin {
		return nil
	}
	for _, r := range roles {
		if s.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

type ctxKey string

const scopeKey ctxKey = "BIZSCREEN_TENANT_SCOPE"

// WithScope returns a derived context carrying the scope. Only HTTP handlers read it back;
// services take the scope as a parameter.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// FromContext extracts the scope and a boolean indicating presence.
func FromContext(ctx context.Context) (Scope, bool) {
	v := ctx.Value(scopeKey)
	if v == nil {
		return Scope{}, false
	}

	scope, ok := v.(Scope)
	return scope, ok
}
