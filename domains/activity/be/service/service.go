package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	DefaultDays     = 30
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// AllowedDays are the supported lookback windows.
var AllowedDays = []int{1, 7, 30, 90}

// Activity is one append-only audit entry.
type Activity struct {
	ID           uuid.UUID
	Actor        string
	ActorKind    requesttrace.ActorKind
	Action       string
	ResourceType string
	ResourceID   *string
	CreatedAt    time.Time
}

// Filter selects log entries. A nil ResourceType means all types; Days of 0 means DefaultDays.
// AsOf pins the window end so that count and page queries see the same rows.
type Filter struct {
	ResourceType *string
	Days         int
	AsOf         *time.Time
}

// Window is the resolved, inclusive time range of a Filter.
type Window struct {
	ResourceType *string
	Since        time.Time
	Until        time.Time
}

// Repository abstracts persistence. There is deliberately no update or delete.
type Repository interface {
	Append(ctx context.Context, scope tenant.Scope, a Activity, requestID string) (Activity, error)
	List(ctx context.Context, scope tenant.Scope, w Window, limit, offset int) ([]Activity, error)
	Count(ctx context.Context, scope tenant.Scope, w Window) (int, error)
}

// Service exposes the activity log. It also satisfies requesttrace.Recorder.
type Service interface {
	GetActivityLog(ctx context.Context, scope tenant.Scope, filter Filter, page, pageSize int) ([]Activity, error)
	GetActivityLogCount(ctx context.Context, scope tenant.Scope, filter Filter) (int, error)
	Record(ctx context.Context, scope tenant.Scope, audit requesttrace.AuditInfo, action, resourceType, resourceID string) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// New builds the activity Service; now may be nil for the wall clock.
func New(repo Repository, now func() time.Time) Service {
	if repo == nil {
		panic("activity repo is required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}
}

// GetActivityLog returns one page (0-based) of entries, newest first.
func (s *service) GetActivityLog(ctx context.Context, scope tenant.Scope, filter Filter, page, pageSize int) ([]Activity, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	w, err := s.window(filter)
	fe := validation.FieldErrors{}
	if err != nil {
		fe.Add("days", err.Error())
	}
	if page < 0 {
		fe.Add("page", "page must be zero or greater")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		fe.Add("pageSize", fmt.Sprintf("pageSize must be between 1 and %d", MaxPageSize))
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, scope, w, pageSize, page*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return items, nil
}

// GetActivityLogCount returns how many entries match filter.
func (s *service) GetActivityLogCount(ctx context.Context, scope tenant.Scope, filter Filter) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	w, err := s.window(filter)
	if err != nil {
		return 0, validation.New(map[string]string{"days": err.Error()})
	}
	n, err := s.repo.Count(ctx, scope, w)
	if err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return n, nil
}

// Record appends an entry stamped with the actor from audit.
func (s *service) Record(ctx context.Context, scope tenant.Scope, audit requesttrace.AuditInfo, action, resourceType, resourceID string) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	fe := validation.FieldErrors{}
	if strings.TrimSpace(action) == "" {
		fe.Add("action", "action is required")
	}
	if strings.TrimSpace(resourceType) == "" {
		fe.Add("resourceType", "resourceType is required")
	}
	if err := fe.Err(); err != nil {
		return err
	}

	entry := Activity{
		ID:           uuid.New(),
		Actor:        audit.Actor(),
		ActorKind:    audit.ActorKind,
		Action:       action,
		ResourceType: resourceType,
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	entry.CreatedAt = s.now().UTC()
	if _, err := s.repo.Append(ctx, scope, entry, audit.RequestID); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (s *service) window(f Filter) (Window, error) {
	days := f.Days
	if days == 0 {
		days = DefaultDays
	}
	if !slices.Contains(AllowedDays, days) {
		return Window{}, fmt.Errorf("days must be one of %v", AllowedDays)
	}
	end := s.now()
	if f.AsOf != nil {
		end = *f.AsOf
	}
	var rt *string
	if f.ResourceType != nil && strings.TrimSpace(*f.ResourceType) != "" {
		v := strings.TrimSpace(*f.ResourceType)
		rt = &v
	}
	return Window{ResourceType: rt, Since: end.Add(-time.Duration(days) * 24 * time.Hour), Until: end}, nil
}
