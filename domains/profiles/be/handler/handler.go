package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/profiles/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
)

const (
	getOperation    = "getBusinessContext"
	updateOperation = "updateBusinessContext"
)

// Handler exposes the tenant profile over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("profiles service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("profiles", logger, func(err error) (httpapi.Problem, bool) {
		if errors.Is(err, service.ErrNoBusinessContext) {
			return httpapi.NotFound("business context has not been set"), true
		}
		return httpapi.Problem{}, false
	})}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profile/business-context", h.Get)
	r.Put("/profile/business-context", h.Update)
}

type businessContextDTO struct {
	BusinessName string     `json:"businessName" validate:"required,max=200"`
	BusinessType string     `json:"businessType" validate:"required,max=200"`
	Audience     string     `json:"audience" validate:"max=200"`
	Tone         string     `json:"tone" validate:"omitempty,oneof=friendly professional playful bold calm"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

func toDTO(bc service.BusinessContext) businessContextDTO {
	updated := bc.UpdatedAt
	return businessContextDTO{
		BusinessName: bc.BusinessName,
		BusinessType: bc.BusinessType,
		Audience:     bc.Audience,
		Tone:         bc.Tone,
		UpdatedAt:    &updated,
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, getOperation)
		return
	}
	bc, err := h.svc.GetBusinessContext(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, getOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(bc))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, updateOperation)
		return
	}
	var body businessContextDTO
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, updateOperation)
		return
	}
	saved, err := h.svc.UpdateBusinessContext(r.Context(), scope, service.BusinessContext{
		BusinessName: body.BusinessName,
		BusinessType: body.BusinessType,
		Audience:     body.Audience,
		Tone:         body.Tone,
	})
	if err != nil {
		h.rs.Error(w, r, err, updateOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(saved))
}
