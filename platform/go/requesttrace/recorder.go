package requesttrace

import (
	"context"

	"go.uber.org/zap"

	platformlogging "github.com/bizscreen/console/platform/go/logging"
	"github.com/bizscreen/console/platform/go/tenant"
)

// Recorder appends activity log entries. The activity service implements it.
type Recorder interface {
	Record(ctx context.Context, scope tenant.Scope, audit AuditInfo, action, resourceType, resourceID string) error
}

// RecordBestEffort stamps an entry for a write that already committed. A failure is logged, not returned.
func RecordBestEffort(ctx context.Context, rec Recorder, fallback *zap.Logger, scope tenant.Scope, action, resourceType, resourceID string) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, scope, FromContextOrAnonymous(ctx).ForScope(scope), action, resourceType, resourceID); err != nil {
		logger := platformlogging.FromContextOr(ctx, fallback)
		if logger == nil {
			return
		}
		logger.Warn("activity not recorded",
			zap.String("action", action),
			zap.String("resourceType", resourceType),
			zap.String("resourceId", resourceID),
			zap.Error(err))
	}
}
