package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

// ProviderType selects the federation protocol.
type ProviderType string

const (
	TypeOIDC ProviderType = "oidc"
	TypeSAML ProviderType = "saml"
)

// Domain-level error sentinel values.
var (
	ErrNotConfigured = errors.New("sso provider not configured")
	ErrIncomplete    = errors.New("sso configuration is incomplete")
	ErrDiscovery     = errors.New("oidc discovery failed")
)

// Provider is the tenant's single identity provider.
type Provider struct {
	Type             ProviderType
	Issuer           string
	ClientID         string
	ClientSecret     string
	AuthorizationURL string
	TokenURL         string
	UserinfoURL      string
	JWKSURL          string
	SSOURL           string
	Certificate      string
	IsEnabled        bool
	EnforceSSO       bool
	UpdatedAt        time.Time
}

// Missing lists the fields that must be set before the provider can be enabled.
func (p Provider) Missing() []string {
	var out []string
	need := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			out = append(out, field)
		}
	}
	switch p.Type {
	case TypeOIDC:
		need("issuer", p.Issuer)
		need("clientId", p.ClientID)
		need("clientSecret", p.ClientSecret)
		need("authorizationUrl", p.AuthorizationURL)
		need("tokenUrl", p.TokenURL)
	case TypeSAML:
		need("ssoUrl", p.SSOURL)
		need("certificate", p.Certificate)
	default:
		out = append(out, "type")
	}
	return out
}

// Complete reports whether the provider can be enabled.
func (p Provider) Complete() bool { return len(p.Missing()) == 0 }

// Discovery is the subset of an OpenID configuration document the console uses.
type Discovery struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// Discoverer fetches an issuer's OpenID configuration.
type Discoverer interface {
	Discover(ctx context.Context, issuer string) (Discovery, error)
}

// SCIMEndpoint documents one provisioning route for operators. The routes are served elsewhere.
type SCIMEndpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var scimEndpoints = []SCIMEndpoint{
	{"GET", "/api/scim/users", "List provisioned users"},
	{"POST", "/api/scim/users", "Provision a user"},
	{"GET", "/api/scim/users/:id", "Read one user"},
	{"PUT", "/api/scim/users/:id", "Replace a user"},
	{"PATCH", "/api/scim/users/:id", "Update user attributes or deactivate"},
	{"DELETE", "/api/scim/users/:id", "Deprovision a user"},
}

// Repository abstracts persistence for the provider row.
type Repository interface {
	// Get returns ErrNotConfigured when the tenant has no row.
	Get(ctx context.Context, scope tenant.Scope) (Provider, error)
	Upsert(ctx context.Context, scope tenant.Scope, p Provider) (Provider, error)
}

// Service defines enterprise SSO operations.
type Service interface {
	GetSSOProvider(ctx context.Context, scope tenant.Scope) (Provider, error)
	SaveSSOProvider(ctx context.Context, scope tenant.Scope, p Provider) (Provider, error)
	ToggleSSOEnabled(ctx context.Context, scope tenant.Scope, enabled bool) (Provider, error)
	ValidateOIDCIssuer(ctx context.Context, scope tenant.Scope, issuer string) (Discovery, error)
	SCIMEndpoints() []SCIMEndpoint
}

type service struct {
	repo     Repository
	discover Discoverer
	activity requesttrace.Recorder
	logger   *zap.Logger
}

func New(repo Repository, discover Discoverer, activity requesttrace.Recorder, logger *zap.Logger) Service {
	if repo == nil {
		panic("sso repository is required")
	}
	if discover == nil {
		panic("oidc discoverer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: repo, discover: discover, activity: activity, logger: logger}
}

var adminRoles = []platformauth.Role{platformauth.RoleOwner, platformauth.RoleAdmin}

func (s *service) GetSSOProvider(ctx context.Context, scope tenant.Scope) (Provider, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Provider{}, err
	}
	return s.repo.Get(ctx, scope)
}

// SaveSSOProvider stores the configuration. An empty ClientSecret keeps the stored one.
// The enabled flag is not changed here, but a save that leaves an enabled provider incomplete is refused.
func (s *service) SaveSSOProvider(ctx context.Context, scope tenant.Scope, in Provider) (Provider, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Provider{}, err
	}
	current, err := s.repo.Get(ctx, scope)
	if err != nil && !errors.Is(err, ErrNotConfigured) {
		return Provider{}, err
	}

	next := normalize(in)
	if next.ClientSecret == "" {
		next.ClientSecret = current.ClientSecret
	}
	next.IsEnabled = current.IsEnabled
	next.EnforceSSO = in.EnforceSSO && current.IsEnabled

	if err := validate(next); err != nil {
		return Provider{}, err
	}
	if next.IsEnabled && !next.Complete() {
		fe := validation.FieldErrors{}
		for _, f := range next.Missing() {
			fe.Add(f, f+" is required while SSO is enabled")
		}
		return Provider{}, fe.Err()
	}

	saved, err := s.repo.Upsert(ctx, scope, next)
	if err != nil {
		return Provider{}, err
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, "sso.updated", "sso_provider", scope.TenantID.String())
	return saved, nil
}

// ToggleSSOEnabled flips the provider on or off. Turning it off also lifts enforcement.
func (s *service) ToggleSSOEnabled(ctx context.Context, scope tenant.Scope, enabled bool) (Provider, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Provider{}, err
	}
	current, err := s.repo.Get(ctx, scope)
	if err != nil {
		return Provider{}, err
	}
	if enabled && !current.Complete() {
		return Provider{}, ErrIncomplete
	}
	current.IsEnabled = enabled
	if !enabled {
		current.EnforceSSO = false
	}
	saved, err := s.repo.Upsert(ctx, scope, current)
	if err != nil {
		return Provider{}, err
	}
	action := "sso.disabled"
	if enabled {
		action = "sso.enabled"
	}
	requesttrace.RecordBestEffort(ctx, s.activity, s.logger, scope, action, "sso_provider", scope.TenantID.String())
	return saved, nil
}

func (s *service) ValidateOIDCIssuer(ctx context.Context, scope tenant.Scope, issuer string) (Discovery, error) {
	if err := scope.RequireRole(adminRoles...); err != nil {
		return Discovery{}, err
	}
	issuer = strings.TrimSpace(issuer)
	if err := checkURL(issuer); err != nil {
		return Discovery{}, validation.New(map[string]string{"issuer": err.Error()})
	}
	d, err := s.discover.Discover(ctx, issuer)
	if err != nil {
		s.logger.Info("oidc discovery failed", zap.String("issuer", issuer), zap.Error(err))
		return Discovery{}, err
	}
	return d, nil
}

func (s *service) SCIMEndpoints() []SCIMEndpoint {
	return append([]SCIMEndpoint(nil), scimEndpoints...)
}

func normalize(p Provider) Provider {
	p.Type = ProviderType(strings.ToLower(strings.TrimSpace(string(p.Type))))
	p.Issuer = strings.TrimSpace(p.Issuer)
	p.ClientID = strings.TrimSpace(p.ClientID)
	p.ClientSecret = strings.TrimSpace(p.ClientSecret)
	p.AuthorizationURL = strings.TrimSpace(p.AuthorizationURL)
	p.TokenURL = strings.TrimSpace(p.TokenURL)
	p.UserinfoURL = strings.TrimSpace(p.UserinfoURL)
	p.JWKSURL = strings.TrimSpace(p.JWKSURL)
	p.SSOURL = strings.TrimSpace(p.SSOURL)
	p.Certificate = strings.TrimSpace(p.Certificate)
	return p
}

func validate(p Provider) error {
	fe := validation.FieldErrors{}
	if p.Type != TypeOIDC && p.Type != TypeSAML {
		fe.Add("type", "type must be oidc or saml")
	}
	urls := map[string]string{
		"issuer":           p.Issuer,
		"authorizationUrl": p.AuthorizationURL,
		"tokenUrl":         p.TokenURL,
		"userinfoUrl":      p.UserinfoURL,
		"jwksUrl":          p.JWKSURL,
		"ssoUrl":           p.SSOURL,
	}
	for field, v := range urls {
		if v == "" {
			continue
		}
		if err := checkURL(v); err != nil {
			fe.Add(field, err.Error())
		}
	}
	if p.Certificate != "" && !strings.Contains(p.Certificate, "BEGIN CERTIFICATE") {
		fe.Add("certificate", "certificate must be PEM encoded")
	}
	return fe.Err()
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	if u.Scheme != "https" && !(u.Scheme == "http" && isLoopback(u.Hostname())) {
		return errors.New("must use https")
	}
	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// MaskSecret hides all but the last four characters.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "••••"
	}
	return "••••" + secret[len(secret)-4:]
}
