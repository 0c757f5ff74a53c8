package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	maxNameLength        = 120
	maxDescriptionLength = 500
	minutesPerDay        = 24 * 60
	resourceType         = "schedule"
)

// Domain-level error sentinel values.
var (
	ErrNotFound = errors.New("schedule not found")
	ErrConflict = errors.New("schedule conflict")
)

// Schedule is a named set of time slots that decides what plays when.
type Schedule struct {
	ID          uuid.UUID
	Name        string
	Description string
	IsActive    bool
	EntryCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Entry is one recurring slot. Minutes count from local midnight; End is exclusive.
type Entry struct {
	ID          uuid.UUID
	PlaylistID  *uuid.UUID
	StartMinute int
	EndMinute   int
	DaysOfWeek  []time.Weekday
	Priority    int
}

// EntryInput describes a slot to add.
type EntryInput struct {
	PlaylistID  *uuid.UUID
	StartMinute int
	EndMinute   int
	DaysOfWeek  []time.Weekday
	Priority    int
}

// Repository abstracts persistence for schedules.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope) ([]Schedule, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Schedule, error)
	Create(ctx context.Context, scope tenant.Scope, name, description string) (Schedule, error)
	AddEntry(ctx context.Context, scope tenant.Scope, scheduleID uuid.UUID, entry Entry) (Entry, error)
	Duplicate(ctx context.Context, scope tenant.Scope, id uuid.UUID, name string) (Schedule, error)
	SetActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (Schedule, error)
	Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

// Service exposes the schedules domain operations.
type Service interface {
	FetchSchedules(ctx context.Context, scope tenant.Scope) ([]Schedule, error)
	CreateSchedule(ctx context.Context, scope tenant.Scope, name, description string) (Schedule, error)
	DeleteSchedule(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	DuplicateSchedule(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Schedule, error)
	SetScheduleActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (Schedule, error)
	AddEntry(ctx context.Context, scope tenant.Scope, scheduleID uuid.UUID, input EntryInput) (Entry, error)
}

type service struct {
	repo     Repository
	activity requesttrace.Recorder
	logger   *zap.Logger
}

// New builds a schedules Service. activity may be nil.
func New(repo Repository, activity requesttrace.Recorder, logger *zap.Logger) Service {
	if repo == nil {
		panic("schedules repo is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: repo, activity: activity, logger: logger}
}

func (s *service) FetchSchedules(ctx context.Context, scope tenant.Scope) ([]Schedule, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return items, nil
}

func (s *service) CreateSchedule(ctx context.Context, scope tenant.Scope, name, description string) (Schedule, error) {
	if err := scope.RequireWrite(); err != nil {
		return Schedule{}, err
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	fe := validation.FieldErrors{}
	switch {
	case name == "":
		fe.Add("name", "name is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		fe.Add("name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		fe.Add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if err := fe.Err(); err != nil {
		return Schedule{}, err
	}

	created, err := s.repo.Create(ctx, scope, name, description)
	if err != nil {
		return Schedule{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "schedule.created", resourceType, created.ID.String())
	return created, nil
}

func (s *service) DeleteSchedule(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.RequireWrite(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, scope, id); err != nil {
		return err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "schedule.deleted", resourceType, id.String())
	return nil
}

// DuplicateSchedule copies a schedule with its entries. The copy starts paused.
func (s *service) DuplicateSchedule(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Schedule, error) {
	if err := scope.RequireWrite(); err != nil {
		return Schedule{}, err
	}
	original, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return Schedule{}, err
	}
	copied, err := s.repo.Duplicate(ctx, scope, id, CopyName(original.Name))
	if err != nil {
		return Schedule{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "schedule.duplicated", resourceType, copied.ID.String())
	return copied, nil
}

func (s *service) SetScheduleActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (Schedule, error) {
	if err := scope.RequireWrite(); err != nil {
		return Schedule{}, err
	}
	updated, err := s.repo.SetActive(ctx, scope, id, active)
	if err != nil {
		return Schedule{}, err
	}
	action := "schedule.paused"
	if active {
		action = "schedule.activated"
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, action, resourceType, id.String())
	return updated, nil
}

func (s *service) AddEntry(ctx context.Context, scope tenant.Scope, scheduleID uuid.UUID, input EntryInput) (Entry, error) {
	if err := scope.RequireWrite(); err != nil {
		return Entry{}, err
	}
	if err := validateEntry(input); err != nil {
		return Entry{}, err
	}

	days := slices.Clone(input.DaysOfWeek)
	slices.Sort(days)
	days = slices.Compact(days)

	entry, err := s.repo.AddEntry(ctx, scope, scheduleID, Entry{
		ID:          uuid.New(),
		PlaylistID:  input.PlaylistID,
		StartMinute: input.StartMinute,
		EndMinute:   input.EndMinute,
		DaysOfWeek:  days,
		Priority:    input.Priority,
	})
	if err != nil {
		return Entry{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "schedule.entry_added", resourceType, scheduleID.String())
	return entry, nil
}

func validateEntry(input EntryInput) error {
	fe := validation.FieldErrors{}
	if input.StartMinute < 0 || input.StartMinute >= minutesPerDay {
		fe.Add("startMinute", "startMinute must be within the day")
	}
	if input.EndMinute <= input.StartMinute || input.EndMinute > minutesPerDay {
		fe.Add("endMinute", "endMinute must be after startMinute and at most 1440")
	}
	if len(input.DaysOfWeek) == 0 {
		fe.Add("daysOfWeek", "at least one day is required")
	}
	for _, d := range input.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			fe.Add("daysOfWeek", "days must be between 0 (Sunday) and 6 (Saturday)")
			break
		}
	}
	if input.Priority < 0 {
		fe.Add("priority", "priority must be zero or greater")
	}
	return fe.Err()
}

// CopyName is the name given to a duplicate.
func CopyName(name string) string {
	return name + " (Copy)"
}
