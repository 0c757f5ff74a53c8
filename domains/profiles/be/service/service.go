package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// ErrNoBusinessContext is returned when the tenant has not filled in its profile yet.
var ErrNoBusinessContext = errors.New("profile has no business context")

// Tones supported by content generation. The first is the default.
var Tones = []string{"friendly", "professional", "playful", "bold", "calm"}

const maxFieldLength = 200

// BusinessContext describes the tenant's business; it seeds generated content.
type BusinessContext struct {
	BusinessName string
	BusinessType string
	Audience     string
	Tone         string
	UpdatedAt    time.Time
}

// Repository abstracts persistence for profiles.
type Repository interface {
	Get(ctx context.Context, scope tenant.Scope) (BusinessContext, error)
	Upsert(ctx context.Context, scope tenant.Scope, bc BusinessContext) (BusinessContext, error)
}

// Service defines the business operations for the tenant profile.
type Service interface {
	GetBusinessContext(ctx context.Context, scope tenant.Scope) (BusinessContext, error)
	UpdateBusinessContext(ctx context.Context, scope tenant.Scope, bc BusinessContext) (BusinessContext, error)
}

type service struct {
	repo     Repository
	activity requesttrace.Recorder
	logger   *zap.Logger
}

// New constructs a profiles Service instance backed by the provided repository.
func New(r Repository, activity requesttrace.Recorder, logger *zap.Logger) Service {
	if r == nil {
		panic("profiles repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: r, activity: activity, logger: logger}
}

func (s *service) GetBusinessContext(ctx context.Context, scope tenant.Scope) (BusinessContext, error) {
	if err := scope.Validate(); err != nil {
		return BusinessContext{}, err
	}
	bc, err := s.repo.Get(ctx, scope)
	if err != nil {
		return BusinessContext{}, err
	}
	if strings.TrimSpace(bc.BusinessName) == "" {
		return BusinessContext{}, ErrNoBusinessContext
	}
	return bc, nil
}

func (s *service) UpdateBusinessContext(ctx context.Context, scope tenant.Scope, bc BusinessContext) (BusinessContext, error) {
	if err := scope.RequireRole(platformauth.RoleOwner, platformauth.RoleAdmin); err != nil {
		return BusinessContext{}, err
	}
	normalized, err := Normalize(bc)
	if err != nil {
		return BusinessContext{}, err
	}
	saved, err := s.repo.Upsert(ctx, scope, normalized)
	if err != nil {
		return BusinessContext{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "profile.updated", "profile", scope.TenantID.String())
	return saved, nil
}

// Normalize trims and validates a business context. An empty tone becomes the default.
func Normalize(bc BusinessContext) (BusinessContext, error) {
	bc.BusinessName = strings.TrimSpace(bc.BusinessName)
	bc.BusinessType = strings.ToLower(strings.TrimSpace(bc.BusinessType))
	bc.Audience = strings.TrimSpace(bc.Audience)
	bc.Tone = strings.ToLower(strings.TrimSpace(bc.Tone))
	if bc.Tone == "" {
		bc.Tone = Tones[0]
	}

	fe := validation.FieldErrors{}
	if bc.BusinessName == "" {
		fe.Add("businessName", "businessName is required")
	}
	if bc.BusinessType == "" {
		fe.Add("businessType", "businessType is required")
	}
	for field, v := range map[string]string{"businessName": bc.BusinessName, "businessType": bc.BusinessType, "audience": bc.Audience} {
		if utf8.RuneCountInString(v) > maxFieldLength {
			fe.Add(field, fmt.Sprintf("%s must be at most %d characters", field, maxFieldLength))
		}
	}
	if !slices.Contains(Tones, bc.Tone) {
		fe.Add("tone", fmt.Sprintf("tone must be one of %v", Tones))
	}
	return bc, fe.Err()
}
