package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/platform/go/metrics"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// SuggestionTTL bounds how long an unused plan stays retrievable.
const SuggestionTTL = 24 * time.Hour

// Domain-level error sentinel values.
var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrSuggestionRejected = errors.New("suggestion was rejected")
	ErrUnknownPlaylist    = errors.New("playlist is not part of this suggestion")
	ErrGeneration         = errors.New("content generation failed")
)

// BusinessContext is the wizard's first step.
type BusinessContext struct {
	BusinessName string `json:"businessName"`
	BusinessType string `json:"businessType"`
	Audience     string `json:"audience"`
	Tone         string `json:"tone"`
}

// PlannedPlaylist is one playlist proposed by a plan. Key is unique within its suggestion.
type PlannedPlaylist struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Themes      []string `json:"themes"`
	SlideCount  int      `json:"slideCount"`
}

// Slide is one generated item of a playlist.
type Slide struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	DurationSeconds int    `json:"durationSeconds"`
}

// Suggestion is a generated plan held in the ephemeral store until materialized or rejected.
type Suggestion struct {
	ID        uuid.UUID         `json:"id"`
	TenantID  uuid.UUID         `json:"tenantId"`
	Context   BusinessContext   `json:"context"`
	Playlists []PlannedPlaylist `json:"playlists"`
	Generator string            `json:"generator"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Playlist is a materialized playlist.
type Playlist struct {
	ID          uuid.UUID
	Name        string
	Description string
	Slides      []Slide
	CreatedAt   time.Time
}

// Generator produces plans and slides.
type Generator interface {
	Name() string
	GeneratePlan(ctx context.Context, bc BusinessContext) ([]PlannedPlaylist, error)
	GenerateSlides(ctx context.Context, bc BusinessContext, playlist PlannedPlaylist) ([]Slide, error)
}

// SuggestionStore keeps suggestions and their generated slides. Get reports
// ErrSuggestionRejected for tombstoned ids and ErrSuggestionNotFound for unknown or expired ones.
type SuggestionStore interface {
	Save(ctx context.Context, s Suggestion, ttl time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (Suggestion, error)
	Reject(ctx context.Context, id uuid.UUID, ttl time.Duration) error
	SaveSlides(ctx context.Context, id uuid.UUID, key string, slides []Slide, ttl time.Duration) error
	GetSlides(ctx context.Context, id uuid.UUID, key string) ([]Slide, bool, error)
}

// PlaylistRepository persists materialized playlists.
type PlaylistRepository interface {
	Create(ctx context.Context, scope tenant.Scope, p Playlist) (Playlist, error)
}

// Service exposes the content assistant operations.
type Service interface {
	GeneratePlan(ctx context.Context, scope tenant.Scope, bc BusinessContext) (Suggestion, error)
	RejectSuggestion(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	GenerateSlides(ctx context.Context, scope tenant.Scope, suggestionID uuid.UUID, playlistKey string) ([]Slide, error)
	MaterializePlaylist(ctx context.Context, scope tenant.Scope, suggestionID uuid.UUID, playlistKey string) (Playlist, error)
}

type service struct {
	generator Generator
	store     SuggestionStore
	playlists PlaylistRepository
	activity  requesttrace.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// Config wires the assistant's collaborators. Activity and Now are optional.
type Config struct {
	Generator Generator
	Store     SuggestionStore
	Playlists PlaylistRepository
	Activity  requesttrace.Recorder
	Logger    *zap.Logger
	Now       func() time.Time
}

// New builds the assistant Service.
func New(cfg Config) Service {
	if cfg.Generator == nil || cfg.Store == nil || cfg.Playlists == nil {
		panic("assistant generator, store and playlist repository are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{
		generator: cfg.Generator,
		store:     cfg.Store,
		playlists: cfg.Playlists,
		activity:  cfg.Activity,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// ValidateContext is the gate of the wizard's first step.
func ValidateContext(bc BusinessContext) error {
	fe := validation.FieldErrors{}
	if strings.TrimSpace(bc.BusinessName) == "" {
		fe.Add("businessName", "Business name is required")
	}
	if strings.TrimSpace(bc.BusinessType) == "" {
		fe.Add("businessType", "Business type is required")
	}
	return fe.Err()
}

func (s *service) GeneratePlan(ctx context.Context, scope tenant.Scope, bc BusinessContext) (Suggestion, error) {
	if err := scope.RequireWrite(); err != nil {
		return Suggestion{}, err
	}
	bc = BusinessContext{
		BusinessName: strings.TrimSpace(bc.BusinessName),
		BusinessType: strings.ToLower(strings.TrimSpace(bc.BusinessType)),
		Audience:     strings.TrimSpace(bc.Audience),
		Tone:         strings.TrimSpace(bc.Tone),
	}
	if err := ValidateContext(bc); err != nil {
		return Suggestion{}, err
	}

	playlists, err := s.generator.GeneratePlan(ctx, bc)
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: plan: %w", ErrGeneration, err)
	}
	if err := checkPlan(playlists); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	sug := Suggestion{
		ID:        uuid.New(),
		TenantID:  scope.TenantID,
		Context:   bc,
		Playlists: playlists,
		Generator: s.generator.Name(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, sug, SuggestionTTL); err != nil {
		return Suggestion{}, fmt.Errorf("store suggestion: %w", err)
	}
	metrics.Business().PlansGenerated.WithLabelValues(sug.Generator).Inc()
	s.logger.Info("assistant plan generated",
		zap.String("suggestionId", sug.ID.String()),
		zap.String("generator", sug.Generator),
		zap.Int("playlists", len(playlists)))
	return sug, nil
}

// RejectSuggestion tombstones the id; every later call with it fails with ErrSuggestionRejected.
func (s *service) RejectSuggestion(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.RequireWrite(); err != nil {
		return err
	}
	if _, err := s.load(ctx, scope, id); err != nil {
		if errors.Is(err, ErrSuggestionRejected) {
			return nil
		}
		return err
	}
	if err := s.store.Reject(ctx, id, SuggestionTTL); err != nil {
		return fmt.Errorf("reject suggestion: %w", err)
	}
	return nil
}

func (s *service) GenerateSlides(ctx context.Context, scope tenant.Scope, suggestionID uuid.UUID, playlistKey string) ([]Slide, error) {
	if err := scope.RequireWrite(); err != nil {
		return nil, err
	}
	sug, planned, err := s.playlist(ctx, scope, suggestionID, playlistKey)
	if err != nil {
		return nil, err
	}
	return s.slides(ctx, sug, planned)
}

func (s *service) MaterializePlaylist(ctx context.Context, scope tenant.Scope, suggestionID uuid.UUID, playlistKey string) (Playlist, error) {
	if err := scope.RequireWrite(); err != nil {
		return Playlist{}, err
	}
	sug, planned, err := s.playlist(ctx, scope, suggestionID, playlistKey)
	if err != nil {
		return Playlist{}, err
	}
	slides, err := s.slides(ctx, sug, planned)
	if err != nil {
		return Playlist{}, err
	}

	created, err := s.playlists.Create(ctx, scope, Playlist{
		ID:          uuid.New(),
		Name:        planned.Name,
		Description: planned.Description,
		Slides:      slides,
	})
	if err != nil {
		return Playlist{}, fmt.Errorf("create playlist: %w", err)
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "playlist.created", "playlist", created.ID.String())
	return created, nil
}

func (s *service) load(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Suggestion, error) {
	sug, err := s.store.Get(ctx, id)
	if err != nil {
		return Suggestion{}, err
	}
	if sug.TenantID != scope.TenantID {
		return Suggestion{}, ErrSuggestionNotFound
	}
	return sug, nil
}

func (s *service) playlist(ctx context.Context, scope tenant.Scope, id uuid.UUID, key string) (Suggestion, PlannedPlaylist, error) {
	sug, err := s.load(ctx, scope, id)
	if err != nil {
		return Suggestion{}, PlannedPlaylist{}, err
	}
	for _, p := range sug.Playlists {
		if p.Key == key {
			return sug, p, nil
		}
	}
	return Suggestion{}, PlannedPlaylist{}, ErrUnknownPlaylist
}

// slides returns cached slides for the playlist or generates and caches them.
func (s *service) slides(ctx context.Context, sug Suggestion, planned PlannedPlaylist) ([]Slide, error) {
	cached, ok, err := s.store.GetSlides(ctx, sug.ID, planned.Key)
	if err != nil {
		return nil, fmt.Errorf("read slides: %w", err)
	}
	if ok {
		return cached, nil
	}

	slides, err := s.generator.GenerateSlides(ctx, sug.Context, planned)
	if err != nil {
		return nil, fmt.Errorf("%w: slides: %w", ErrGeneration, err)
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slides for %q", ErrGeneration, planned.Key)
	}
	if err := s.store.SaveSlides(ctx, sug.ID, planned.Key, slides, SuggestionTTL); err != nil {
		s.logger.Warn("slides not cached", zap.String("suggestionId", sug.ID.String()), zap.Error(err))
	}
	return slides, nil
}

func checkPlan(playlists []PlannedPlaylist) error {
	if len(playlists) == 0 {
		return errors.New("plan has no playlists")
	}
	seen := make(map[string]struct{}, len(playlists))
	for _, p := range playlists {
		if p.Key == "" || p.Name == "" {
			return errors.New("plan playlist is missing a key or name")
		}
		if _, dup := seen[p.Key]; dup {
			return fmt.Errorf("plan repeats playlist key %q", p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	return nil
}
