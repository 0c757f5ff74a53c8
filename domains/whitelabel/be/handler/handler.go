package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/whitelabel/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	listOperation     = "listDomains"
	addOperation      = "addDomain"
	verifyOperation   = "verifyDomain"
	primaryOperation  = "setPrimaryDomain"
	removeOperation   = "removeDomain"
	brandingOperation = "getBranding"
	saveOperation     = "saveBranding"
	logoOperation     = "uploadLogo"
)

// Handler exposes custom domains and branding over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("whitelabel service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("whitelabel", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpapi.NotFound("domain not found"), true
	case errors.Is(err, service.ErrConflict):
		return httpapi.Conflict("domain is already registered"), true
	case errors.Is(err, service.ErrNotVerified):
		return httpapi.Unprocessable("verify the domain before making it primary"), true
	case errors.Is(err, service.ErrPrimaryRemoval):
		return httpapi.Conflict("choose another primary domain before removing this one"), true
	case errors.Is(err, service.ErrLogoTooLarge):
		return httpapi.Problem{Type: httpapi.ProblemTypeValidation, Title: "Payload too large", Status: http.StatusRequestEntityTooLarge, Detail: "logo must be 2 MB or smaller"}, true
	case errors.Is(err, service.ErrLogoType):
		return httpapi.Problem{Type: httpapi.ProblemTypeValidation, Title: "Unsupported media type", Status: http.StatusUnsupportedMediaType, Detail: err.Error()}, true
	default:
		return httpapi.Problem{}, false
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/domains", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Post("/{domainId}/verify", h.Verify)
		r.Post("/{domainId}/primary", h.SetPrimary)
		r.Delete("/{domainId}", h.Remove)
	})
	r.Route("/branding", func(r chi.Router) {
		r.Get("/", h.GetBranding)
		r.Put("/", h.SaveBranding)
		r.Post("/logo", h.UploadLogo)
	})
}

type domainDTO struct {
	ID                    uuid.UUID                       `json:"id"`
	DomainName            string                          `json:"domainName"`
	IsVerified            bool                            `json:"isVerified"`
	IsPrimary             bool                            `json:"isPrimary"`
	LastVerificationError *string                         `json:"lastVerificationError,omitempty"`
	VerifiedAt            *time.Time                      `json:"verifiedAt,omitempty"`
	Instruction           service.VerificationInstruction `json:"verification"`
	CreatedAt             time.Time                       `json:"createdAt"`
}

func toDomainDTO(d service.Domain) domainDTO {
	return domainDTO{
		ID:                    d.ID,
		DomainName:            d.DomainName,
		IsVerified:            d.IsVerified,
		IsPrimary:             d.IsPrimary,
		LastVerificationError: d.LastVerificationError,
		VerifiedAt:            d.VerifiedAt,
		Instruction:           d.Instruction(),
		CreatedAt:             d.CreatedAt,
	}
}

type brandingDTO struct {
	ProductName    string    `json:"productName" validate:"required,max=80"`
	PrimaryColor   string    `json:"primaryColor" validate:"required"`
	SecondaryColor string    `json:"secondaryColor"`
	LogoURL        string    `json:"logoUrl"`
	HidePoweredBy  bool      `json:"hidePoweredBy"`
	UpdatedAt      time.Time `json:"updatedAt,omitzero"`
}

func toBrandingDTO(b service.Branding) brandingDTO {
	return brandingDTO{
		ProductName:    b.ProductName,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		LogoURL:        b.LogoURL,
		HidePoweredBy:  b.HidePoweredBy,
		UpdatedAt:      b.UpdatedAt,
	}
}

type addRequest struct {
	DomainName string `json:"domainName" validate:"required,max=253"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	items, err := h.svc.ListDomains(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	out := make([]domainDTO, 0, len(items))
	for _, d := range items {
		out = append(out, toDomainDTO(d))
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, addOperation)
		return
	}
	var body addRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, addOperation)
		return
	}
	d, _, err := h.svc.AddDomain(r.Context(), scope, body.DomainName)
	if err != nil {
		h.rs.Error(w, r, err, addOperation)
		return
	}
	w.Header().Set("Location", "/api/v1/domains/"+d.ID.String())
	h.rs.JSON(w, http.StatusCreated, toDomainDTO(d))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, verifyOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "domainId")
	if err != nil {
		h.rs.Error(w, r, err, verifyOperation)
		return
	}
	res, err := h.svc.VerifyDomain(r.Context(), scope, id)
	if err != nil {
		h.rs.Error(w, r, err, verifyOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{
		"verified": res.Verified,
		"reason":   res.Reason,
		"domain":   toDomainDTO(res.Domain),
	})
}

func (h *Handler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, primaryOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "domainId")
	if err != nil {
		h.rs.Error(w, r, err, primaryOperation)
		return
	}
	d, err := h.svc.SetPrimaryDomain(r.Context(), scope, id)
	if err != nil {
		h.rs.Error(w, r, err, primaryOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDomainDTO(d))
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, removeOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "domainId")
	if err != nil {
		h.rs.Error(w, r, err, removeOperation)
		return
	}
	if err := h.svc.RemoveDomain(r.Context(), scope, id); err != nil {
		h.rs.Error(w, r, err, removeOperation)
		return
	}
	h.rs.NoContent(w)
}

func (h *Handler) GetBranding(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, brandingOperation)
		return
	}
	b, err := h.svc.GetBranding(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, brandingOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toBrandingDTO(b))
}

func (h *Handler) SaveBranding(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, saveOperation)
		return
	}
	var body brandingDTO
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, saveOperation)
		return
	}
	saved, err := h.svc.SaveBranding(r.Context(), scope, service.Branding{
		ProductName:    body.ProductName,
		PrimaryColor:   body.PrimaryColor,
		SecondaryColor: body.SecondaryColor,
		LogoURL:        body.LogoURL,
		HidePoweredBy:  body.HidePoweredBy,
	})
	if err != nil {
		h.rs.Error(w, r, err, saveOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toBrandingDTO(saved))
}

// UploadLogo accepts a multipart form with a "logo" file part.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, logoOperation)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxLogoBytes+64<<10)
	file, header, err := r.FormFile("logo")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.rs.Error(w, r, service.ErrLogoTooLarge, logoOperation)
			return
		}
		h.rs.Error(w, r, validation.New(map[string]string{"logo": "logo file is required"}), logoOperation)
		return
	}
	defer func() { _ = file.Close() }()

	b, err := h.svc.UploadLogo(r.Context(), scope, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.rs.Error(w, r, err, logoOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toBrandingDTO(b))
}
