package service

import (
	"context"
	"errors"
	"fmt"
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
	DefaultPageSize   = 12
	MaxPageSize       = 100
	MaxPublishScreens = 500
	maxNameLength     = 120
	resourceType      = "scene"
)

// Domain-level error sentinel values.
var (
	ErrNotFound       = errors.New("scene not found")
	ErrUnknownScreens = errors.New("one or more screens do not belong to this tenant")
)

// Scene bundles a layout with playlists. DeviceCount is computed from publications.
type Scene struct {
	ID                  uuid.UUID
	Name                string
	BusinessType        string
	LayoutID            *uuid.UUID
	PrimaryPlaylistID   *uuid.UUID
	SecondaryPlaylistID *uuid.UUID
	DeviceCount         int
	CreatedAt           time.Time
}

// Screen is a physical display.
type Screen struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// PageRequest is 0-based.
type PageRequest struct {
	Page     int
	PageSize int
}

// ScenePage is one page plus the unpaged total.
type ScenePage struct {
	Items []Scene
	Total int
}

// CreateInput defines the payload required to create a scene.
type CreateInput struct {
	Name                string
	BusinessType        string
	LayoutID            *uuid.UUID
	PrimaryPlaylistID   *uuid.UUID
	SecondaryPlaylistID *uuid.UUID
}

// Repository abstracts persistence for scenes and screens.
type Repository interface {
	ListWithDeviceCounts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]Scene, int, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Scene, error)
	Create(ctx context.Context, scope tenant.Scope, scene Scene) (Scene, error)
	Publish(ctx context.Context, scope tenant.Scope, sceneID uuid.UUID, screenIDs []uuid.UUID) error
	CreateScreen(ctx context.Context, scope tenant.Scope, name string) (Screen, error)
	ListScreens(ctx context.Context, scope tenant.Scope) ([]Screen, error)
}

// Service exposes the scenes domain operations.
type Service interface {
	FetchScenesWithDeviceCounts(ctx context.Context, scope tenant.Scope, req PageRequest) (ScenePage, error)
	GetScene(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Scene, error)
	CreateScene(ctx context.Context, scope tenant.Scope, input CreateInput) (Scene, error)
	PublishScene(ctx context.Context, scope tenant.Scope, sceneID uuid.UUID, screenIDs []uuid.UUID) error
	CreateScreen(ctx context.Context, scope tenant.Scope, name string) (Screen, error)
	ListScreens(ctx context.Context, scope tenant.Scope) ([]Screen, error)
}

type service struct {
	repo     Repository
	activity requesttrace.Recorder
	logger   *zap.Logger
}

// New builds a scenes Service. activity may be nil.
func New(repo Repository, activity requesttrace.Recorder, logger *zap.Logger) Service {
	if repo == nil {
		panic("scenes repo is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: repo, activity: activity, logger: logger}
}

// FetchScenesWithDeviceCounts reads scenes and their device counts in one grouped query.
func (s *service) FetchScenesWithDeviceCounts(ctx context.Context, scope tenant.Scope, req PageRequest) (ScenePage, error) {
	if err := scope.Validate(); err != nil {
		return ScenePage{}, err
	}
	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}
	fe := validation.FieldErrors{}
	if req.Page < 0 {
		fe.Add("page", "page must be zero or greater")
	}
	if req.PageSize < 1 || req.PageSize > MaxPageSize {
		fe.Add("pageSize", fmt.Sprintf("pageSize must be between 1 and %d", MaxPageSize))
	}
	if err := fe.Err(); err != nil {
		return ScenePage{}, err
	}

	items, total, err := s.repo.ListWithDeviceCounts(ctx, scope, req.PageSize, req.Page*req.PageSize)
	if err != nil {
		return ScenePage{}, fmt.Errorf("list scenes: %w", err)
	}
	return ScenePage{Items: items, Total: total}, nil
}

func (s *service) GetScene(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Scene, error) {
	if err := scope.Validate(); err != nil {
		return Scene{}, err
	}
	return s.repo.Get(ctx, scope, id)
}

func (s *service) CreateScene(ctx context.Context, scope tenant.Scope, input CreateInput) (Scene, error) {
	if err := scope.RequireWrite(); err != nil {
		return Scene{}, err
	}
	name := strings.TrimSpace(input.Name)
	businessType := strings.ToLower(strings.TrimSpace(input.BusinessType))

	fe := validation.FieldErrors{}
	switch {
	case name == "":
		fe.Add("name", "name is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		fe.Add("name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if businessType == "" {
		fe.Add("businessType", "businessType is required")
	}
	if input.PrimaryPlaylistID != nil && input.SecondaryPlaylistID != nil && *input.PrimaryPlaylistID == *input.SecondaryPlaylistID {
		fe.Add("secondaryPlaylistId", "secondary playlist must differ from the primary one")
	}
	if err := fe.Err(); err != nil {
		return Scene{}, err
	}

	created, err := s.repo.Create(ctx, scope, Scene{
		ID:                  uuid.New(),
		Name:                name,
		BusinessType:        businessType,
		LayoutID:            input.LayoutID,
		PrimaryPlaylistID:   input.PrimaryPlaylistID,
		SecondaryPlaylistID: input.SecondaryPlaylistID,
	})
	if err != nil {
		return Scene{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "scene.created", resourceType, created.ID.String())
	return created, nil
}

// PublishScene assigns the scene to screens, replacing whatever those screens showed before.
func (s *service) PublishScene(ctx context.Context, scope tenant.Scope, sceneID uuid.UUID, screenIDs []uuid.UUID) error {
	if err := scope.RequireWrite(); err != nil {
		return err
	}
	switch {
	case len(screenIDs) == 0:
		return validation.New(map[string]string{"screenIds": "select at least one screen"})
	case len(screenIDs) > MaxPublishScreens:
		return validation.New(map[string]string{"screenIds": fmt.Sprintf("at most %d screens per publish", MaxPublishScreens)})
	}

	if err := s.repo.Publish(ctx, scope, sceneID, screenIDs); err != nil {
		return err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "scene.published", resourceType, sceneID.String())
	return nil
}

func (s *service) CreateScreen(ctx context.Context, scope tenant.Scope, name string) (Screen, error) {
	if err := scope.RequireWrite(); err != nil {
		return Screen{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Screen{}, validation.New(map[string]string{"name": "name is required"})
	}
	screen, err := s.repo.CreateScreen(ctx, scope, name)
	if err != nil {
		return Screen{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "screen.created", "screen", screen.ID.String())
	return screen, nil
}

func (s *service) ListScreens(ctx context.Context, scope tenant.Scope) ([]Screen, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListScreens(ctx, scope)
}
