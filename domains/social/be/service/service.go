package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/metrics"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// StaleAfter is how old the last successful sync may get before an account is stale.
const StaleAfter = 24 * time.Hour

var ErrNotFound = errors.New("social account not found")

type Provider string

const (
	ProviderInstagram Provider = "instagram"
	ProviderFacebook  Provider = "facebook"
	ProviderTikTok    Provider = "tiktok"
	ProviderGoogle    Provider = "google"
)

// Providers lists every supported network.
var Providers = []Provider{ProviderInstagram, ProviderFacebook, ProviderTikTok, ProviderGoogle}

func (p Provider) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// SyncState is derived from the sync timestamps, never stored.
type SyncState string

const (
	SyncSynced SyncState = "synced"
	SyncStale  SyncState = "stale"
	SyncError  SyncState = "error"
)

// Account is a connected social media account.
type Account struct {
	ID              uuid.UUID
	Provider        Provider
	AccountName     string
	LastSyncAt      *time.Time
	LastSyncError   *string
	SyncRequestedAt *time.Time
	CreatedAt       time.Time
}

// SyncStatus is what the integrations screen shows per account.
type SyncStatus struct {
	AccountID       uuid.UUID
	State           SyncState
	LastSyncAt      *time.Time
	LastSyncError   string
	SyncRequested   bool
	SyncRequestedAt *time.Time
}

// DeriveStatus reports error when the last sync failed, stale when it never ran or is older
// than StaleAfter, and synced otherwise.
func DeriveStatus(a Account, now time.Time) SyncStatus {
	st := SyncStatus{
		AccountID:       a.ID,
		LastSyncAt:      a.LastSyncAt,
		SyncRequested:   a.SyncRequestedAt != nil,
		SyncRequestedAt: a.SyncRequestedAt,
	}
	switch {
	case a.LastSyncError != nil && *a.LastSyncError != "":
		st.State = SyncError
		st.LastSyncError = *a.LastSyncError
	case a.LastSyncAt == nil || now.Sub(*a.LastSyncAt) > StaleAfter:
		st.State = SyncStale
	default:
		st.State = SyncSynced
	}
	return st
}

// AccountWithStatus pairs an account with its derived status.
type AccountWithStatus struct {
	Account
	Status SyncStatus
}

// Repository abstracts social account persistence.
type Repository interface {
	Connect(ctx context.Context, scope tenant.Scope, provider Provider, accountName string) (Account, error)
	List(ctx context.Context, scope tenant.Scope) ([]Account, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Account, error)
	RequestSync(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time) (Account, error)
	// RecordSync stores a sync outcome; a nil failure clears the error and advances LastSyncAt.
	RecordSync(ctx context.Context, scope tenant.Scope, id uuid.UUID, at time.Time, failure *string) (Account, error)
	Disconnect(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Account, error)
}

// Revoker drops the provider-side grant of an account. Each network has its own.
type Revoker interface {
	Revoke(ctx context.Context, a Account) error
}

// RevokerFunc adapts a function to Revoker.
type RevokerFunc func(ctx context.Context, a Account) error

func (f RevokerFunc) Revoke(ctx context.Context, a Account) error { return f(ctx, a) }

// Service defines social integration operations.
type Service interface {
	ConnectAccount(ctx context.Context, scope tenant.Scope, provider Provider, accountName string) (Account, error)
	ListAccounts(ctx context.Context, scope tenant.Scope) ([]AccountWithStatus, error)
	GetSyncStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID) (SyncStatus, error)
	ForceSyncAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) (SyncStatus, error)
	RecordSyncResult(ctx context.Context, scope tenant.Scope, id uuid.UUID, failure error) (SyncStatus, error)
	DisconnectAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

// Config wires the service. Revokers is keyed by provider; providers without one are only unlinked locally.
type Config struct {
	Repo     Repository
	Revokers map[Provider]Revoker
	Activity requesttrace.Recorder
	Logger   *zap.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	revokers map[Provider]Revoker
	activity requesttrace.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func New(cfg Config) Service {
	if cfg.Repo == nil {
		panic("social repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{
		repo:     cfg.Repo,
		revokers: cfg.Revokers,
		activity: cfg.Activity,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

var adminRoles = []platformauth.Role{platformauth.RoleOwner, platformauth.RoleAdmin}

func (s *service) ConnectAccount(ctx context.Context, scope tenant.Scope, provider Provider, accountName string) (Account, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Account{}, err
	}
	provider = Provider(strings.ToLower(strings.TrimSpace(string(provider))))
	accountName = strings.TrimSpace(accountName)
	fe := validation.FieldErrors{}
	if !provider.Valid() {
		fe.Add("provider", "provider must be one of instagram, facebook, tiktok, google")
	}
	if accountName == "" {
		fe.Add("accountName", "accountName is required")
	}
	if err := fe.Err(); err != nil {
		return Account{}, err
	}
	a, err := s.repo.Connect(ctx, scope, provider, accountName)
	if err != nil {
		return Account{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "social.connected", "social_account", a.ID.String())
	return a, nil
}

func (s *service) ListAccounts(ctx context.Context, scope tenant.Scope) ([]AccountWithStatus, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	now := s.now()
	out := make([]AccountWithStatus, 0, len(items))
	for _, a := range items {
		out = append(out, AccountWithStatus{Account: a, Status: DeriveStatus(a, now)})
	}
	return out, nil
}

func (s *service) GetSyncStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID) (SyncStatus, error) {
	if err := scope.Validate(); err != nil {
		return SyncStatus{}, err
	}
	a, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return SyncStatus{}, err
	}
	return DeriveStatus(a, s.now()), nil
}

// ForceSyncAccount stamps a sync request for the provider worker. It does not sync inline.
func (s *service) ForceSyncAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) (SyncStatus, error) {
	if err := scope.RequireWrite(); err != nil {
		return SyncStatus{}, err
	}
	now := s.now().UTC()
	a, err := s.repo.RequestSync(ctx, scope, id, now)
	if err != nil {
		return SyncStatus{}, err
	}
	metrics.Business().SocialSyncRequests.WithLabelValues(string(a.Provider)).Inc()
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "social.sync_requested", "social_account", id.String())
	return DeriveStatus(a, now), nil
}

// RecordSyncResult is called by the sync worker once a provider call finishes.
func (s *service) RecordSyncResult(ctx context.Context, scope tenant.Scope, id uuid.UUID, failure error) (SyncStatus, error) {
	if err := scope.Validate(); err != nil {
		return SyncStatus{}, err
	}
	var msg *string
	if failure != nil {
		m := failure.Error()
		msg = &m
	}
	now := s.now().UTC()
	a, err := s.repo.RecordSync(ctx, scope, id, now, msg)
	if err != nil {
		return SyncStatus{}, err
	}
	return DeriveStatus(a, now), nil
}

// DisconnectAccount revokes the provider grant when a revoker exists, then removes the account.
// A failed revoke is logged and does not keep the account linked.
func (s *service) DisconnectAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return err
	}
	a, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if rv, ok := s.revokers[a.Provider]; ok {
		if err := rv.Revoke(ctx, a); err != nil {
			s.logger.Warn("provider revoke failed",
				zap.String("provider", string(a.Provider)),
				zap.String("account_id", id.String()),
				zap.Error(err))
		}
	}
	if _, err := s.repo.Disconnect(ctx, scope, id); err != nil {
		return err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "social.disconnected", "social_account", id.String())
	return nil
}
