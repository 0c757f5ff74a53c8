package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/cache"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/storage"
	"github.com/bizscreen/console/platform/go/tenant"
	tenantmw "github.com/bizscreen/console/platform/go/tenant/middleware"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxStatsBatch bounds GetClientStats to one table page worth of tenants.
	MaxStatsBatch = 100
	// DashboardTTL is the default lifetime of a cached dashboard summary.
	DashboardTTL = time.Minute

	dashboardKey  = "dashboard:summary"
	provisionMark = ".provisioned"
)

var (
	ErrNotFound     = errors.New("tenant not found")
	ErrConflictSlug = errors.New("tenant slug already exists")
	ErrNotOperator  = errors.New("platform admin required")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusActive, StatusSuspended:
		return s, true
	}
	return "", false
}

// Plans are the subscription tiers a tenant can be on.
var Plans = []string{"free", "starter", "pro", "enterprise"}

// FeatureFlags are the per-tenant switches operators may toggle.
var FeatureFlags = []string{"ai_assistant", "white_label", "enterprise_sso", "social_integrations", "reseller_portal"}

// Tenant is a registry entry as the operations console sees it.
type Tenant struct {
	ID          uuid.UUID
	Slug        string
	DisplayName *string
	Status      Status
	Plan        string
	CreatedAt   time.Time
	Flags       map[string]bool
}

// ClientStats holds one tenant's content counts.
type ClientStats struct {
	TenantID  uuid.UUID
	Screens   int
	Scenes    int
	Schedules int
}

// Totals aggregates the whole platform.
type Totals struct {
	Tenants           int
	ActiveTenants     int
	SuspendedTenants  int
	Screens           int
	Scenes            int
	Schedules         int
	LicensesActivated int
}

// Summary is the dashboard payload; GeneratedAt tells how fresh the cached copy is.
type Summary struct {
	Totals      Totals    `json:"totals"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ListRequest is 0-based. A nil Status lists every tenant.
type ListRequest struct {
	Page     int
	PageSize int
	Status   *Status
}

type TenantPage struct {
	Items []Tenant
	Total int
}

// CreateInput registers a tenant.
type CreateInput struct {
	Slug        string
	DisplayName *string
	Plan        string
}

// Repository abstracts the tenant registry and its cross-tenant aggregates.
type Repository interface {
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) (Tenant, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]Tenant, int, error)
	// ClientStats answers for every id in one round trip.
	ClientStats(ctx context.Context, ids []uuid.UUID) ([]ClientStats, error)
	Totals(ctx context.Context) (Totals, error)
	// SetFeatureFlag returns ErrNotFound for unknown tenants.
	SetFeatureFlag(ctx context.Context, tenantID uuid.UUID, flag string, enabled bool) error
	FeatureFlags(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]map[string]bool, error)
}

// Service is the platform operations console. Every call except TenantActive needs a platform admin.
type Service interface {
	ListTenants(ctx context.Context, op *platformauth.UserCredentials, req ListRequest) (TenantPage, error)
	GetClientStats(ctx context.Context, op *platformauth.UserCredentials, ids []uuid.UUID) (map[uuid.UUID]ClientStats, error)
	SetFeatureFlag(ctx context.Context, op *platformauth.UserCredentials, tenantID uuid.UUID, flag string, enabled bool) (map[string]bool, error)
	DashboardSummary(ctx context.Context, op *platformauth.UserCredentials) (Summary, error)
	CreateTenant(ctx context.Context, op *platformauth.UserCredentials, in CreateInput) (Tenant, error)
	SetTenantStatus(ctx context.Context, op *platformauth.UserCredentials, id uuid.UUID, status Status) (Tenant, error)
	// TenantActive backs the tenant scope middleware.
	TenantActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// Config wires the service. Store is optional; without it new tenants get no storage prefix.
type Config struct {
	Repo     Repository
	Cache    cache.KV
	Store    storage.Store
	EnvKey   string
	Activity requesttrace.Recorder
	Logger   *zap.Logger
	Now      func() time.Time
	// CacheTTL overrides DashboardTTL.
	CacheTTL time.Duration
}

type service struct {
	repo     Repository
	kv       cache.KV
	store    storage.Store
	envKey   string
	activity requesttrace.Recorder
	logger   *zap.Logger
	now      func() time.Time
	ttl      time.Duration
	group    singleflight.Group
}

func New(cfg Config) Service {
	if cfg.Repo == nil {
		panic("tenants repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryKV(cfg.Now)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DashboardTTL
	}
	return &service{
		repo:     cfg.Repo,
		kv:       cfg.Cache,
		store:    cfg.Store,
		envKey:   cfg.EnvKey,
		activity: cfg.Activity,
		logger:   cfg.Logger,
		now:      cfg.Now,
		ttl:      cfg.CacheTTL,
	}
}

func requireOperator(op *platformauth.UserCredentials) error {
	if op == nil || !op.IsPlatformAdmin {
		return ErrNotOperator
	}
	return nil
}

// auditScope files operator actions in the activity log of the tenant they touched.
func auditScope(op *platformauth.UserCredentials, tenantID uuid.UUID) tenant.Scope {
	return tenant.Scope{TenantID: tenantID, UserID: op.ID, Role: platformauth.RolePlatformAdmin, Impersonating: true}
}

func (s *service) ListTenants(ctx context.Context, op *platformauth.UserCredentials, req ListRequest) (TenantPage, error) {
	if err := requireOperator(op); err != nil {
		return TenantPage{}, err
	}
	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}
	fe := validation.FieldErrors{}
	if req.Page < 0 {
		fe.Add("page", "page must be positive")
	}
	if req.PageSize < 1 || req.PageSize > MaxPageSize {
		fe.Add("pageSize", fmt.Sprintf("pageSize must be between 1 and %d", MaxPageSize))
	}
	if err := fe.Err(); err != nil {
		return TenantPage{}, err
	}

	items, total, err := s.repo.List(ctx, req.Status, req.PageSize, req.Page*req.PageSize)
	if err != nil {
		return TenantPage{}, fmt.Errorf("list tenants: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, t := range items {
		ids = append(ids, t.ID)
	}
	flags, err := s.repo.FeatureFlags(ctx, ids)
	if err != nil {
		return TenantPage{}, fmt.Errorf("feature flags: %w", err)
	}
	for i := range items {
		items[i].Flags = withDefaults(flags[items[i].ID])
	}
	return TenantPage{Items: items, Total: total}, nil
}

// withDefaults lists every known flag, off unless stored as on.
func withDefaults(stored map[string]bool) map[string]bool {
	out := make(map[string]bool, len(FeatureFlags))
	for _, f := range FeatureFlags {
		out[f] = stored[f]
	}
	return out
}

// GetClientStats answers for all ids with a single grouped query. Unknown ids come back as zero counts.
func (s *service) GetClientStats(ctx context.Context, op *platformauth.UserCredentials, ids []uuid.UUID) (map[uuid.UUID]ClientStats, error) {
	if err := requireOperator(op); err != nil {
		return nil, err
	}
	if len(ids) > MaxStatsBatch {
		return nil, validation.New(map[string]string{"ids": fmt.Sprintf("at most %d tenants per request", MaxStatsBatch)})
	}
	rows, err := s.repo.ClientStats(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("client stats: %w", err)
	}
	out := make(map[uuid.UUID]ClientStats, len(ids))
	for _, id := range ids {
		out[id] = ClientStats{TenantID: id}
	}
	for _, r := range rows {
		out[r.TenantID] = r
	}
	return out, nil
}

func (s *service) SetFeatureFlag(ctx context.Context, op *platformauth.UserCredentials, tenantID uuid.UUID, flag string, enabled bool) (map[string]bool, error) {
	if err := requireOperator(op); err != nil {
		return nil, err
	}
	flag = strings.ToLower(strings.TrimSpace(flag))
	if !slices.Contains(FeatureFlags, flag) {
		return nil, validation.New(map[string]string{"flag": "unknown feature flag " + flag})
	}
	if err := s.repo.SetFeatureFlag(ctx, tenantID, flag, enabled); err != nil {
		return nil, err
	}
	flags, err := s.repo.FeatureFlags(ctx, []uuid.UUID{tenantID})
	if err != nil {
		return nil, fmt.Errorf("feature flags: %w", err)
	}
	action := "feature_flag.disabled"
	if enabled {
		action = "feature_flag.enabled"
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, auditScope(op, tenantID), action, "feature_flag", flag)
	return withDefaults(flags[tenantID]), nil
}

// DashboardSummary serves the cached summary while fresh. Concurrent misses share one computation.
func (s *service) DashboardSummary(ctx context.Context, op *platformauth.UserCredentials) (Summary, error) {
	if err := requireOperator(op); err != nil {
		return Summary{}, err
	}
	if raw, err := s.kv.Get(ctx, dashboardKey); err == nil {
		var cached Summary
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("discarding unreadable dashboard cache entry")
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	}

	v, err, _ := s.group.Do(dashboardKey, func() (any, error) {
		totals, err := s.repo.Totals(context.WithoutCancel(ctx))
		if err != nil {
			return Summary{}, fmt.Errorf("platform totals: %w", err)
		}
		sum := Summary{Totals: totals, GeneratedAt: s.now().UTC()}
		if raw, err := json.Marshal(sum); err == nil {
			if err := s.kv.Set(ctx, dashboardKey, raw, s.ttl); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
		return sum, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

func (s *service) invalidateDashboard(ctx context.Context) {
	if err := s.kv.Delete(ctx, dashboardKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// CreateTenant registers a tenant and prepares its storage prefix.
func (s *service) CreateTenant(ctx context.Context, op *platformauth.UserCredentials, in CreateInput) (Tenant, error) {
	if err := requireOperator(op); err != nil {
		return Tenant{}, err
	}
	fe := validation.FieldErrors{}
	slug, err := persistence.NormalizeSlug(in.Slug)
	if err != nil {
		fe.Add("slug", err.Error())
	}
	plan := strings.ToLower(strings.TrimSpace(in.Plan))
	if plan == "" {
		plan = Plans[0]
	}
	if !slices.Contains(Plans, plan) {
		fe.Add("plan", "plan must be one of "+strings.Join(Plans, ", "))
	}
	if err := fe.Err(); err != nil {
		return Tenant{}, err
	}

	t, err := s.repo.Create(ctx, Tenant{
		ID:          uuid.New(),
		Slug:        slug,
		DisplayName: in.DisplayName,
		Status:      StatusActive,
		Plan:        plan,
	})
	if err != nil {
		return Tenant{}, err
	}
	t.Flags = withDefaults(nil)

	if err := s.provisionStorage(ctx, t.ID); err != nil {
		// the tenant exists; an operator can re-run provisioning from the CLI
		s.logger.Error("tenant storage provisioning failed", zap.String("tenant_id", t.ID.String()), zap.Error(err))
	}
	s.invalidateDashboard(ctx)
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, auditScope(op, t.ID), "tenant.created", "tenant", t.ID.String())
	return t, nil
}

// ProvisionStorage writes the marker object of a tenant prefix and checks it is readable.
func ProvisionStorage(ctx context.Context, store storage.Store, envKey string, id uuid.UUID) error {
	prefix := tenant.ObjectPrefix(envKey, id)
	loc, err := storage.ResolveObjectLocation(prefix, store.Bucket(), provisionMark)
	if err != nil {
		return err
	}
	if _, err := store.Put(ctx, loc, "text/plain", strings.NewReader(id.String())); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return store.Check(ctx, prefix)
}

func (s *service) provisionStorage(ctx context.Context, id uuid.UUID) error {
	if s.store == nil {
		return nil
	}
	return ProvisionStorage(ctx, s.store, s.envKey, id)
}

func (s *service) SetTenantStatus(ctx context.Context, op *platformauth.UserCredentials, id uuid.UUID, status Status) (Tenant, error) {
	if err := requireOperator(op); err != nil {
		return Tenant{}, err
	}
	if _, ok := ParseStatus(string(status)); !ok {
		return Tenant{}, validation.New(map[string]string{"status": "status must be active or suspended"})
	}
	t, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return Tenant{}, err
	}
	s.invalidateDashboard(ctx)
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, auditScope(op, id), "tenant."+string(status), "tenant", id.String())
	return t, nil
}

func (s *service) TenantActive(ctx context.Context, id uuid.UUID) (bool, error) {
	t, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("%w: %s", tenantmw.ErrTenantUnknown, id)
	}
	if err != nil {
		return false, err
	}
	return t.Status == StatusActive, nil
}
