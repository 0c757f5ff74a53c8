package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/assistant/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
)

const (
	planOperation        = "generatePlan"
	rejectOperation      = "rejectSuggestion"
	slidesOperation      = "generateSlides"
	materializeOperation = "materializePlaylist"
)

// Handler exposes the content assistant over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("assistant service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("assistant", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	switch {
	case errors.Is(err, service.ErrSuggestionNotFound):
		return httpapi.NotFound("suggestion not found or expired"), true
	case errors.Is(err, service.ErrSuggestionRejected):
		return httpapi.Conflict("suggestion was rejected"), true
	case errors.Is(err, service.ErrUnknownPlaylist):
		return httpapi.Unprocessable("playlist is not part of this suggestion"), true
	case errors.Is(err, service.ErrGeneration):
		return httpapi.BadGateway("content generation failed, try again"), true
	default:
		return httpapi.Problem{}, false
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/assistant/plans", func(r chi.Router) {
		r.Post("/", h.GeneratePlan)
		r.Post("/{suggestionId}/reject", h.Reject)
		r.Post("/{suggestionId}/slides", h.GenerateSlides)
		r.Post("/{suggestionId}/playlists", h.Materialize)
	})
}

type planRequest struct {
	BusinessName string `json:"businessName" validate:"required,max=120"`
	BusinessType string `json:"businessType" validate:"required,max=60"`
	Audience     string `json:"audience" validate:"max=200"`
	Tone         string `json:"tone" validate:"max=40"`
}

type playlistKeyRequest struct {
	PlaylistKey string `json:"playlistKey" validate:"required,max=48"`
}

type suggestionDTO struct {
	ID        uuid.UUID                 `json:"id"`
	Generator string                    `json:"generator"`
	Playlists []service.PlannedPlaylist `json:"playlists"`
	CreatedAt time.Time                 `json:"createdAt"`
}

type playlistDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Slides      []service.Slide `json:"slides"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, planOperation)
		return
	}
	var body planRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, planOperation)
		return
	}
	sug, err := h.svc.GeneratePlan(r.Context(), scope, service.BusinessContext{
		BusinessName: body.BusinessName,
		BusinessType: body.BusinessType,
		Audience:     body.Audience,
		Tone:         body.Tone,
	})
	if err != nil {
		h.rs.Error(w, r, err, planOperation)
		return
	}
	h.rs.JSON(w, http.StatusCreated, suggestionDTO{ID: sug.ID, Generator: sug.Generator, Playlists: sug.Playlists, CreatedAt: sug.CreatedAt})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, rejectOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "suggestionId")
	if err != nil {
		h.rs.Error(w, r, err, rejectOperation)
		return
	}
	if err := h.svc.RejectSuggestion(r.Context(), scope, id); err != nil {
		h.rs.Error(w, r, err, rejectOperation)
		return
	}
	h.rs.NoContent(w)
}

func (h *Handler) GenerateSlides(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, slidesOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "suggestionId")
	if err != nil {
		h.rs.Error(w, r, err, slidesOperation)
		return
	}
	var body playlistKeyRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, slidesOperation)
		return
	}
	slides, err := h.svc.GenerateSlides(r.Context(), scope, id, body.PlaylistKey)
	if err != nil {
		h.rs.Error(w, r, err, slidesOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"slides": slides})
}

func (h *Handler) Materialize(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, materializeOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "suggestionId")
	if err != nil {
		h.rs.Error(w, r, err, materializeOperation)
		return
	}
	var body playlistKeyRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, materializeOperation)
		return
	}
	pl, err := h.svc.MaterializePlaylist(r.Context(), scope, id, body.PlaylistKey)
	if err != nil {
		h.rs.Error(w, r, err, materializeOperation)
		return
	}
	w.Header().Set("Location", "/api/v1/playlists/"+pl.ID.String())
	h.rs.JSON(w, http.StatusCreated, playlistDTO{ID: pl.ID, Name: pl.Name, Description: pl.Description, Slides: pl.Slides, CreatedAt: pl.CreatedAt})
}
