package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/sso/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
)

const (
	getOperation      = "getSSOProvider"
	saveOperation     = "saveSSOProvider"
	toggleOperation   = "toggleSSOEnabled"
	validateOperation = "validateOIDCIssuer"
)

// Handler exposes enterprise SSO settings over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("sso service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("sso", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		return httpapi.NotFound("sso provider not configured"), true
	case errors.Is(err, service.ErrIncomplete):
		return httpapi.Unprocessable("complete the provider configuration before enabling SSO"), true
	case errors.Is(err, service.ErrDiscovery):
		return httpapi.Unprocessable(err.Error()), true
	default:
		return httpapi.Problem{}, false
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/sso", func(r chi.Router) {
		r.Get("/provider", h.Get)
		r.Put("/provider", h.Save)
		r.Patch("/provider/enabled", h.Toggle)
		r.Post("/oidc/validate", h.ValidateIssuer)
		r.Get("/scim/endpoints", h.SCIM)
	})
}

// providerDTO never carries the client secret, only a masked hint.
type providerDTO struct {
	Configured       bool      `json:"configured"`
	Type             string    `json:"type,omitempty"`
	Issuer           string    `json:"issuer,omitempty"`
	ClientID         string    `json:"clientId,omitempty"`
	ClientSecretHint string    `json:"clientSecretHint,omitempty"`
	AuthorizationURL string    `json:"authorizationUrl,omitempty"`
	TokenURL         string    `json:"tokenUrl,omitempty"`
	UserinfoURL      string    `json:"userinfoUrl,omitempty"`
	JWKSURL          string    `json:"jwksUrl,omitempty"`
	SSOURL           string    `json:"ssoUrl,omitempty"`
	Certificate      string    `json:"certificate,omitempty"`
	IsEnabled        bool      `json:"isEnabled"`
	EnforceSSO       bool      `json:"enforceSso"`
	MissingForEnable []string  `json:"missingForEnable,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt,omitzero"`
}

func toDTO(p service.Provider) providerDTO {
	return providerDTO{
		Configured:       true,
		Type:             string(p.Type),
		Issuer:           p.Issuer,
		ClientID:         p.ClientID,
		ClientSecretHint: service.MaskSecret(p.ClientSecret),
		AuthorizationURL: p.AuthorizationURL,
		TokenURL:         p.TokenURL,
		UserinfoURL:      p.UserinfoURL,
		JWKSURL:          p.JWKSURL,
		SSOURL:           p.SSOURL,
		Certificate:      p.Certificate,
		IsEnabled:        p.IsEnabled,
		EnforceSSO:       p.EnforceSSO,
		MissingForEnable: p.Missing(),
		UpdatedAt:        p.UpdatedAt,
	}
}

type saveRequest struct {
	Type             string `json:"type" validate:"required,oneof=oidc saml"`
	Issuer           string `json:"issuer" validate:"max=500"`
	ClientID         string `json:"clientId" validate:"max=200"`
	ClientSecret     string `json:"clientSecret" validate:"max=500"`
	AuthorizationURL string `json:"authorizationUrl" validate:"max=500"`
	TokenURL         string `json:"tokenUrl" validate:"max=500"`
	UserinfoURL      string `json:"userinfoUrl" validate:"max=500"`
	JWKSURL          string `json:"jwksUrl" validate:"max=500"`
	SSOURL           string `json:"ssoUrl" validate:"max=500"`
	Certificate      string `json:"certificate" validate:"max=10000"`
	EnforceSSO       bool   `json:"enforceSso"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type validateRequest struct {
	Issuer string `json:"issuer" validate:"required,max=500"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, getOperation)
		return
	}
	p, err := h.svc.GetSSOProvider(r.Context(), scope)
	if errors.Is(err, service.ErrNotConfigured) {
		h.rs.JSON(w, http.StatusOK, providerDTO{})
		return
	}
	if err != nil {
		h.rs.Error(w, r, err, getOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(p))
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, saveOperation)
		return
	}
	var body saveRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, saveOperation)
		return
	}
	saved, err := h.svc.SaveSSOProvider(r.Context(), scope, service.Provider{
		Type:             service.ProviderType(body.Type),
		Issuer:           body.Issuer,
		ClientID:         body.ClientID,
		ClientSecret:     body.ClientSecret,
		AuthorizationURL: body.AuthorizationURL,
		TokenURL:         body.TokenURL,
		UserinfoURL:      body.UserinfoURL,
		JWKSURL:          body.JWKSURL,
		SSOURL:           body.SSOURL,
		Certificate:      body.Certificate,
		EnforceSSO:       body.EnforceSSO,
	})
	if err != nil {
		h.rs.Error(w, r, err, saveOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(saved))
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, toggleOperation)
		return
	}
	var body toggleRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, toggleOperation)
		return
	}
	p, err := h.svc.ToggleSSOEnabled(r.Context(), scope, *body.Enabled)
	if err != nil {
		h.rs.Error(w, r, err, toggleOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(p))
}

func (h *Handler) ValidateIssuer(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, validateOperation)
		return
	}
	var body validateRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, validateOperation)
		return
	}
	d, err := h.svc.ValidateOIDCIssuer(r.Context(), scope, body.Issuer)
	if err != nil {
		h.rs.Error(w, r, err, validateOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"valid": true, "discovery": d})
}

func (h *Handler) SCIM(w http.ResponseWriter, r *http.Request) {
	h.rs.JSON(w, http.StatusOK, map[string]any{"items": h.svc.SCIMEndpoints()})
}
