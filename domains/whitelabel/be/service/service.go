package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/metrics"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/storage"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	// VerificationHostPrefix is prepended to the domain to form the TXT record host.
	VerificationHostPrefix = "_bizscreen-verify."
	// VerificationValuePrefix starts the TXT record value.
	VerificationValuePrefix = "bizscreen-verify="
	// MaxLogoBytes bounds uploaded logos.
	MaxLogoBytes = 2 << 20

	dnsTimeout = 5 * time.Second
)

// Domain-level error sentinel values.
var (
	ErrNotFound       = errors.New("domain not found")
	ErrConflict       = errors.New("domain is already registered")
	ErrNotVerified    = errors.New("domain must be verified first")
	ErrPrimaryRemoval = errors.New("primary domain cannot be removed")
	ErrLogoTooLarge   = errors.New("logo exceeds the size limit")
	ErrLogoType       = errors.New("logo must be png, jpeg, webp or svg")
)

// Domain is a custom hostname a tenant serves the player and console from.
type Domain struct {
	ID                    uuid.UUID
	DomainName            string
	VerificationToken     string
	IsVerified            bool
	IsPrimary             bool
	LastVerificationError *string
	VerifiedAt            *time.Time
	CreatedAt             time.Time
}

// Instruction tells the operator which DNS record proves ownership.
func (d Domain) Instruction() VerificationInstruction {
	return VerificationInstruction{
		RecordType: "TXT",
		Host:       VerificationHostPrefix + d.DomainName,
		Value:      VerificationValuePrefix + d.VerificationToken,
	}
}

// VerificationInstruction is a DNS record the tenant must publish.
type VerificationInstruction struct {
	RecordType string `json:"recordType"`
	Host       string `json:"host"`
	Value      string `json:"value"`
}

// VerifyResult is the outcome of one manual DNS check.
type VerifyResult struct {
	Domain   Domain
	Verified bool
	Reason   string
}

// Branding is the tenant's white-label look.
type Branding struct {
	ProductName    string
	PrimaryColor   string
	SecondaryColor string
	LogoURL        string
	HidePoweredBy  bool
	UpdatedAt      time.Time
}

// DefaultBranding is returned until a tenant saves its own.
var DefaultBranding = Branding{ProductName: "BizScreen", PrimaryColor: "#2563EB", SecondaryColor: "#0F172A"}

// TXTResolver looks up DNS TXT records. *net.Resolver satisfies it.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Repository abstracts persistence for domains and branding.
type Repository interface {
	ListDomains(ctx context.Context, scope tenant.Scope) ([]Domain, error)
	GetDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Domain, error)
	AddDomain(ctx context.Context, scope tenant.Scope, name, token string) (Domain, error)
	// RecordVerification marks the domain verified when failure is nil, else stores the failure.
	RecordVerification(ctx context.Context, scope tenant.Scope, id uuid.UUID, failure *string) (Domain, error)
	// SetPrimary demotes the current primary and promotes id atomically.
	SetPrimary(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Domain, error)
	RemoveDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	// GetBranding returns ErrNotFound when nothing is saved.
	GetBranding(ctx context.Context, scope tenant.Scope) (Branding, error)
	UpsertBranding(ctx context.Context, scope tenant.Scope, b Branding) (Branding, error)
}

// Service defines white-label operations.
type Service interface {
	ListDomains(ctx context.Context, scope tenant.Scope) ([]Domain, error)
	AddDomain(ctx context.Context, scope tenant.Scope, name string) (Domain, VerificationInstruction, error)
	VerifyDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (VerifyResult, error)
	SetPrimaryDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Domain, error)
	RemoveDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	GetBranding(ctx context.Context, scope tenant.Scope) (Branding, error)
	SaveBranding(ctx context.Context, scope tenant.Scope, b Branding) (Branding, error)
	UploadLogo(ctx context.Context, scope tenant.Scope, contentType string, body io.Reader) (Branding, error)
}

// Config wires the service. Resolver defaults to net.DefaultResolver; Store may be nil when logo upload is off.
type Config struct {
	Repo     Repository
	Resolver TXTResolver
	Store    storage.Store
	EnvKey   string
	Activity requesttrace.Recorder
	Logger   *zap.Logger
}

type service struct {
	repo     Repository
	resolver TXTResolver
	store    storage.Store
	envKey   string
	activity requesttrace.Recorder
	logger   *zap.Logger
}

func New(cfg Config) Service {
	if cfg.Repo == nil {
		panic("whitelabel repository is required")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &service{
		repo:     cfg.Repo,
		resolver: cfg.Resolver,
		store:    cfg.Store,
		envKey:   cfg.EnvKey,
		activity: cfg.Activity,
		logger:   cfg.Logger,
	}
}

var adminRoles = []platformauth.Role{platformauth.RoleOwner, platformauth.RoleAdmin}

func (s *service) ListDomains(ctx context.Context, scope tenant.Scope) ([]Domain, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListDomains(ctx, scope)
}

func (s *service) AddDomain(ctx context.Context, scope tenant.Scope, name string) (Domain, VerificationInstruction, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Domain{}, VerificationInstruction{}, err
	}
	host, err := NormalizeHostname(name)
	if err != nil {
		return Domain{}, VerificationInstruction{}, validation.New(map[string]string{"domainName": err.Error()})
	}
	token, err := newToken()
	if err != nil {
		return Domain{}, VerificationInstruction{}, fmt.Errorf("verification token: %w", err)
	}
	d, err := s.repo.AddDomain(ctx, scope, host, token)
	if err != nil {
		return Domain{}, VerificationInstruction{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "domain.added", "domain", d.ID.String())
	return d, d.Instruction(), nil
}

// VerifyDomain performs one DNS TXT lookup. A failed check is a normal result carrying a reason, not an error.
func (s *service) VerifyDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (VerifyResult, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return VerifyResult{}, err
	}
	d, err := s.repo.GetDomain(ctx, scope, id)
	if err != nil {
		return VerifyResult{}, err
	}
	if d.IsVerified {
		return VerifyResult{Domain: d, Verified: true}, nil
	}

	var failure *string
	if reason := s.checkTXT(ctx, d); reason != "" {
		failure = &reason
	}
	updated, err := s.repo.RecordVerification(ctx, scope, id, failure)
	if err != nil {
		return VerifyResult{}, err
	}

	if failure != nil {
		metrics.Business().DomainVerifications.WithLabelValues("failed").Inc()
		return VerifyResult{Domain: updated, Reason: *failure}, nil
	}
	metrics.Business().DomainVerifications.WithLabelValues("verified").Inc()
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "domain.verified", "domain", id.String())
	return VerifyResult{Domain: updated, Verified: true}, nil
}

func (s *service) checkTXT(ctx context.Context, d Domain) string {
	inst := d.Instruction()
	lookupCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	records, err := s.resolver.LookupTXT(lookupCtx, inst.Host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return fmt.Sprintf("no TXT record found at %s", inst.Host)
		}
		s.logger.Warn("dns lookup failed", zap.String("host", inst.Host), zap.Error(err))
		return fmt.Sprintf("DNS lookup for %s failed, try again later", inst.Host)
	}
	for _, r := range records {
		if strings.TrimSpace(r) == inst.Value {
			return ""
		}
	}
	return fmt.Sprintf("TXT record at %s does not contain %s", inst.Host, inst.Value)
}

func (s *service) SetPrimaryDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Domain, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Domain{}, err
	}
	d, err := s.repo.SetPrimary(ctx, scope, id)
	if err != nil {
		return Domain{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "domain.primary_set", "domain", id.String())
	return d, nil
}

func (s *service) RemoveDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return err
	}
	if err := s.repo.RemoveDomain(ctx, scope, id); err != nil {
		return err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "domain.removed", "domain", id.String())
	return nil
}

func (s *service) GetBranding(ctx context.Context, scope tenant.Scope) (Branding, error) {
	if err := scope.Validate(); err != nil {
		return Branding{}, err
	}
	b, err := s.repo.GetBranding(ctx, scope)
	if errors.Is(err, ErrNotFound) {
		return DefaultBranding, nil
	}
	return b, err
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func (s *service) SaveBranding(ctx context.Context, scope tenant.Scope, b Branding) (Branding, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Branding{}, err
	}
	b.ProductName = strings.TrimSpace(b.ProductName)
	b.PrimaryColor = strings.ToUpper(strings.TrimSpace(b.PrimaryColor))
	b.SecondaryColor = strings.ToUpper(strings.TrimSpace(b.SecondaryColor))

	fe := validation.FieldErrors{}
	if b.ProductName == "" {
		fe.Add("productName", "Product name is required")
	}
	if !hexColor.MatchString(b.PrimaryColor) {
		fe.Add("primaryColor", "Use a #RRGGBB color")
	}
	if b.SecondaryColor != "" && !hexColor.MatchString(b.SecondaryColor) {
		fe.Add("secondaryColor", "Use a #RRGGBB color")
	}
	if err := fe.Err(); err != nil {
		return Branding{}, err
	}

	saved, err := s.repo.UpsertBranding(ctx, scope, b)
	if err != nil {
		return Branding{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "branding.updated", "branding", scope.TenantID.String())
	return saved, nil
}

var logoExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

// UploadLogo stores the image under the tenant's object prefix and points the branding at it.
func (s *service) UploadLogo(ctx context.Context, scope tenant.Scope, contentType string, body io.Reader) (Branding, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Branding{}, err
	}
	if s.store == nil {
		return Branding{}, errors.New("object storage is not configured")
	}
	ext, ok := logoExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return Branding{}, ErrLogoType
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxLogoBytes+1))
	if err != nil {
		return Branding{}, fmt.Errorf("read logo: %w", err)
	}
	if len(data) > MaxLogoBytes {
		return Branding{}, ErrLogoTooLarge
	}

	current, err := s.GetBranding(ctx, scope)
	if err != nil {
		return Branding{}, err
	}
	loc, err := storage.ResolveObjectLocation(
		tenant.ObjectPrefix(s.envKey, scope.TenantID),
		s.store.Bucket(),
		fmt.Sprintf("branding/logo-%s.%s", uuid.NewString(), ext),
	)
	if err != nil {
		return Branding{}, err
	}
	url, err := s.store.Put(ctx, loc, contentType, bytes.NewReader(data))
	if err != nil {
		return Branding{}, fmt.Errorf("store logo: %w", err)
	}

	current.LogoURL = url
	saved, err := s.repo.UpsertBranding(ctx, scope, current)
	if err != nil {
		return Branding{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "branding.logo_uploaded", "branding", scope.TenantID.String())
	return saved, nil
}

// NormalizeHostname lowercases name and rejects anything but a bare hostname.
func NormalizeHostname(raw string) (string, error) {
	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	switch {
	case host == "":
		return "", errors.New("domain is required")
	case strings.Contains(host, "://"):
		return "", errors.New("enter the domain without http:// or https://")
	case strings.ContainsAny(host, "/:?# \t"):
		return "", errors.New("enter a bare domain without port or path")
	case len(host) > 253:
		return "", errors.New("domain is too long")
	case !strings.Contains(host, "."):
		return "", errors.New("domain must contain a dot")
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", fmt.Errorf("invalid label %q", label)
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return "", fmt.Errorf("invalid character %q", r)
			}
		}
	}
	return host, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
