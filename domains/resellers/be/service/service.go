package service

import (
	"context"
	"crypto/rand"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
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

const (
	MaxBatch        = 100
	DefaultPageSize = 25
	MaxPageSize     = 100

	// CodeAlphabet leaves out 0, O, 1, I and L so codes survive being read aloud.
	CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeGroups   = 4
	codeGroupLen = 4

	maxGenerateRounds = 5
)

var (
	ErrNotReseller        = errors.New("tenant is not a reseller")
	ErrResellerInactive   = errors.New("reseller account is not active")
	ErrLicenseNotFound    = errors.New("license not found")
	ErrAlreadyActivated   = errors.New("license already activated")
	ErrCodeSpaceExhausted = errors.New("could not generate unique license codes")
)

type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

type LicenseStatus string

const (
	LicenseAvailable LicenseStatus = "available"
	LicenseActivated LicenseStatus = "activated"
)

// ParseLicenseStatus accepts the two license states, case-insensitively.
func ParseLicenseStatus(raw string) (LicenseStatus, bool) {
	switch LicenseStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case LicenseAvailable:
		return LicenseAvailable, true
	case LicenseActivated:
		return LicenseActivated, true
	}
	return "", false
}

// PlanLevels are the tiers a license can carry.
var PlanLevels = []string{"starter", "pro", "enterprise"}

// Account is a reseller partner attached to a tenant.
type Account struct {
	ID                uuid.UUID
	CompanyName       string
	Status            AccountStatus
	CommissionPercent float64
	CreatedAt         time.Time
}

// License is a redeemable code bound to a plan tier and a screen cap.
type License struct {
	ID                uuid.UUID
	ResellerID        uuid.UUID
	Code              string
	Status            LicenseStatus
	PlanLevel         string
	MaxScreens        int
	ActivatedTenantID *uuid.UUID
	ActivatedAt       *time.Time
	CreatedAt         time.Time
}

type LicenseCounts struct {
	Total     int
	Available int
	Activated int
}

// Portfolio is the reseller dashboard aggregate.
type Portfolio struct {
	Clients            int
	Licenses           LicenseCounts
	ScreensProvisioned int
	CommissionPercent  float64
}

// GenerateRequest describes one batch of licenses.
type GenerateRequest struct {
	Quantity   int
	PlanLevel  string
	MaxScreens int
}

// Validate reports field errors for the batch. The page runs it before calling the service.
func (r GenerateRequest) Validate() error {
	fe := validation.FieldErrors{}
	if r.Quantity < 1 || r.Quantity > MaxBatch {
		fe.Add("quantity", fmt.Sprintf("quantity must be between 1 and %d", MaxBatch))
	}
	if !validPlan(r.PlanLevel) {
		fe.Add("planLevel", "planLevel must be one of "+strings.Join(PlanLevels, ", "))
	}
	if r.MaxScreens < 1 || r.MaxScreens > 1000 {
		fe.Add("maxScreens", "maxScreens must be between 1 and 1000")
	}
	return fe.Err()
}

func validPlan(p string) bool {
	for _, l := range PlanLevels {
		if p == l {
			return true
		}
	}
	return false
}

// ListRequest is 0-based. A nil Status lists every license.
type ListRequest struct {
	Status   *LicenseStatus
	Page     int
	PageSize int
}

type LicensePage struct {
	Items []License
	Total int
}

// Repository abstracts reseller persistence.
type Repository interface {
	// GetAccount returns ErrNotReseller when the tenant has no reseller account.
	GetAccount(ctx context.Context, scope tenant.Scope) (Account, error)
	Portfolio(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID) (Portfolio, error)
	// InsertLicenses skips codes that already exist and returns only the stored rows.
	InsertLicenses(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID, codes []string, planLevel string, maxScreens int) ([]License, error)
	// ListLicenses pages newest first. A limit of 0 returns everything.
	ListLicenses(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID, status *LicenseStatus, limit, offset int) ([]License, int, error)
	Counts(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID) (LicenseCounts, error)
	// Activate moves an available code to activated for tenantID.
	Activate(ctx context.Context, code string, tenantID uuid.UUID) (License, error)
}

// Service defines reseller and license operations.
type Service interface {
	GetResellerAccount(ctx context.Context, scope tenant.Scope) (Account, error)
	GetPortfolioStats(ctx context.Context, scope tenant.Scope) (Portfolio, error)
	GenerateLicenses(ctx context.Context, scope tenant.Scope, req GenerateRequest) ([]License, error)
	ListResellerLicenses(ctx context.Context, scope tenant.Scope, req ListRequest) (LicensePage, error)
	GetLicenseStats(ctx context.Context, scope tenant.Scope) (LicenseCounts, error)
	ExportLicensesCSV(ctx context.Context, scope tenant.Scope, w io.Writer) error
	ActivateLicense(ctx context.Context, scope tenant.Scope, code string) (License, error)
}

type service struct {
	repo     Repository
	activity requesttrace.Recorder
	logger   *zap.Logger
	newCode  func() (string, error)
}

func New(repo Repository, activity requesttrace.Recorder, logger *zap.Logger) Service {
	if repo == nil {
		panic("reseller repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: repo, activity: activity, logger: logger, newCode: NewCode}
}

var adminRoles = []platformauth.Role{platformauth.RoleOwner, platformauth.RoleAdmin}

func (s *service) GetResellerAccount(ctx context.Context, scope tenant.Scope) (Account, error) {
	if err := scope.Validate(); err != nil {
		return Account{}, err
	}
	return s.repo.GetAccount(ctx, scope)
}

func (s *service) activeAccount(ctx context.Context, scope tenant.Scope) (Account, error) {
	acct, err := s.repo.GetAccount(ctx, scope)
	if err != nil {
		return Account{}, err
	}
	if acct.Status != AccountActive {
		return Account{}, ErrResellerInactive
	}
	return acct, nil
}

func (s *service) GetPortfolioStats(ctx context.Context, scope tenant.Scope) (Portfolio, error) {
	if err := scope.Validate(); err != nil {
		return Portfolio{}, err
	}
	acct, err := s.activeAccount(ctx, scope)
	if err != nil {
		return Portfolio{}, err
	}
	p, err := s.repo.Portfolio(ctx, scope, acct.ID)
	if err != nil {
		return Portfolio{}, fmt.Errorf("portfolio: %w", err)
	}
	p.CommissionPercent = acct.CommissionPercent
	return p, nil
}

// GenerateLicenses stores exactly req.Quantity new codes. Codes that collide are drawn again.
// When a later round fails, the licenses already stored are returned along with the error.
func (s *service) GenerateLicenses(ctx context.Context, scope tenant.Scope, req GenerateRequest) ([]License, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return nil, err
	}
	req.PlanLevel = strings.ToLower(strings.TrimSpace(req.PlanLevel))
	if err := req.Validate(); err != nil {
		return nil, err
	}
	acct, err := s.activeAccount(ctx, scope)
	if err != nil {
		return nil, err
	}

	out, err := s.insertUnique(ctx, scope, acct.ID, req)
	if len(out) > 0 {
		metrics.Business().LicensesGenerated.Add(float64(len(out)))
		requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "licenses.generated", "reseller", acct.ID.String())
	}
	if err != nil {
		if len(out) > 0 {
			s.logger.Warn("license batch stored partially", zap.Int("stored", len(out)), zap.Int("requested", req.Quantity), zap.Error(err))
		}
		return out, err
	}
	return out, nil
}

func (s *service) insertUnique(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID, req GenerateRequest) ([]License, error) {
	out := make([]License, 0, req.Quantity)
	for round := 0; len(out) < req.Quantity; round++ {
		if round == maxGenerateRounds {
			return out, ErrCodeSpaceExhausted
		}
		codes, err := s.drawCodes(req.Quantity - len(out))
		if err != nil {
			return out, err
		}
		inserted, err := s.repo.InsertLicenses(ctx, scope, resellerID, codes, req.PlanLevel, req.MaxScreens)
		if err != nil {
			return out, fmt.Errorf("insert licenses: %w", err)
		}
		if skipped := len(codes) - len(inserted); skipped > 0 {
			s.logger.Info("license codes collided, regenerating", zap.Int("count", skipped))
		}
		out = append(out, inserted...)
	}
	return out, nil
}

// drawCodes returns n distinct codes.
func (s *service) drawCodes(n int) ([]string, error) {
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for attempts := 0; len(codes) < n; attempts++ {
		if attempts > n*maxGenerateRounds {
			return nil, ErrCodeSpaceExhausted
		}
		c, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("license code: %w", err)
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes, nil
}

func (s *service) ListResellerLicenses(ctx context.Context, scope tenant.Scope, req ListRequest) (LicensePage, error) {
	if err := scope.Validate(); err != nil {
		return LicensePage{}, err
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
		return LicensePage{}, err
	}
	acct, err := s.repo.GetAccount(ctx, scope)
	if err != nil {
		return LicensePage{}, err
	}
	items, total, err := s.repo.ListLicenses(ctx, scope, acct.ID, req.Status, req.PageSize, req.Page*req.PageSize)
	if err != nil {
		return LicensePage{}, fmt.Errorf("list licenses: %w", err)
	}
	return LicensePage{Items: items, Total: total}, nil
}

func (s *service) GetLicenseStats(ctx context.Context, scope tenant.Scope) (LicenseCounts, error) {
	if err := scope.Validate(); err != nil {
		return LicenseCounts{}, err
	}
	acct, err := s.repo.GetAccount(ctx, scope)
	if err != nil {
		return LicenseCounts{}, err
	}
	return s.repo.Counts(ctx, scope, acct.ID)
}

var csvHeader = []string{"code", "status", "plan_level", "max_screens", "activated_at", "created_at"}

// ExportLicensesCSV writes every license of the reseller, newest first.
func (s *service) ExportLicensesCSV(ctx context.Context, scope tenant.Scope, w io.Writer) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	acct, err := s.repo.GetAccount(ctx, scope)
	if err != nil {
		return err
	}
	items, _, err := s.repo.ListLicenses(ctx, scope, acct.ID, nil, 0, 0)
	if err != nil {
		return fmt.Errorf("list licenses: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range items {
		activated := ""
		if l.ActivatedAt != nil {
			activated = l.ActivatedAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{
			l.Code,
			string(l.Status),
			l.PlanLevel,
			strconv.Itoa(l.MaxScreens),
			activated,
			l.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ActivateLicense redeems code for the caller's tenant.
func (s *service) ActivateLicense(ctx context.Context, scope tenant.Scope, code string) (License, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return License{}, err
	}
	normalized, ok := NormalizeCode(code)
	if !ok {
		return License{}, validation.New(map[string]string{"code": "code must look like XXXX-XXXX-XXXX-XXXX"})
	}
	l, err := s.repo.Activate(ctx, normalized, scope.TenantID)
	if err != nil {
		return License{}, err
	}
	metrics.Business().LicensesActivated.Inc()
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "license.activated", "license", l.ID.String())
	return l, nil
}

// NewCode draws a random XXXX-XXXX-XXXX-XXXX code from CodeAlphabet.
func NewCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(CodeAlphabet)))
	for g := 0; g < codeGroups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < codeGroupLen; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			b.WriteByte(CodeAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// NormalizeCode uppercases raw, restores the dashes and checks the alphabet.
func NormalizeCode(raw string) (string, bool) {
	compact := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw)))
	if len(compact) != codeGroups*codeGroupLen {
		return "", false
	}
	var b strings.Builder
	for i, r := range compact {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return "", false
		}
		if i > 0 && i%codeGroupLen == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String(), true
}
