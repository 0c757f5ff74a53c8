// Package requesttrace carries who performed a request so writes can stamp the activity log.
package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

type contextKey struct{}

// ActorKind classifies the author of an activity entry.
type ActorKind string

const (
	ActorKindUser ActorKind = "user"
	// ActorKindSupport is a platform admin acting inside a tenant it impersonates.
	ActorKindSupport   ActorKind = "support"
	ActorKindSystem    ActorKind = "system"
	ActorKindAnonymous ActorKind = "anonymous"
)

// AuditInfo is the request-scoped author of writes. UserID is set for user and support actors.
type AuditInfo struct {
	ActorKind     ActorKind
	UserID        *string
	Email         string
	PlatformAdmin bool
	RequestID     string
}

// Actor is the label shown in the activity log.
func (a AuditInfo) Actor() string {
	name := string(a.ActorKind)
	switch {
	case a.Email != "":
		name = a.Email
	case a.UserID != nil && *a.UserID != "":
		name = *a.UserID
	}
	if a.ActorKind == ActorKindSupport {
		return "support: " + name
	}
	return name
}

// ForScope marks a platform admin's writes inside an impersonated tenant as support actions.
func (a AuditInfo) ForScope(scope tenant.Scope) AuditInfo {
	if scope.Impersonating && a.ActorKind == ActorKindUser {
		a.ActorKind = ActorKindSupport
	}
	return a
}

func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, audit)
}

func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	audit, ok := ctx.Value(contextKey{}).(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous never fails; writes without a trace are attributed to nobody.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromCredentials attributes a request to the authenticated user.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	if creds == nil || creds.ID == "" {
		return AuditInfo{}, errors.New("audit info needs an authenticated user id")
	}
	id := creds.ID
	return AuditInfo{
		ActorKind:     ActorKindUser,
		UserID:        &id,
		Email:         creds.Email,
		PlatformAdmin: creds.IsPlatformAdmin,
		RequestID:     requestID,
	}, nil
}

func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System attributes CLI and background writes.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
