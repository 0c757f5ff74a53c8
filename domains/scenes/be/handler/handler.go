package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/scenes/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
)

const (
	listOperation         = "fetchScenesWithDeviceCounts"
	getOperation          = "getScene"
	createOperation       = "createScene"
	publishOperation      = "publishScene"
	listScreensOperation  = "listScreens"
	createScreenOperation = "createScreen"
)

// Handler exposes scenes and screens over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("scenes service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("scenes", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpapi.NotFound("scene not found"), true
	case errors.Is(err, service.ErrUnknownScreens):
		return httpapi.Unprocessable(err.Error()), true
	default:
		return httpapi.Problem{}, false
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/scenes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{sceneId}", h.Get)
		r.Post("/{sceneId}/publish", h.Publish)
	})
	r.Get("/screens", h.ListScreens)
	r.Post("/screens", h.CreateScreen)
}

type sceneDTO struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	BusinessType        string     `json:"businessType"`
	LayoutID            *uuid.UUID `json:"layoutId,omitempty"`
	PrimaryPlaylistID   *uuid.UUID `json:"primaryPlaylistId,omitempty"`
	SecondaryPlaylistID *uuid.UUID `json:"secondaryPlaylistId,omitempty"`
	DeviceCount         int        `json:"deviceCount"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func toDTO(s service.Scene) sceneDTO {
	return sceneDTO{
		ID:                  s.ID,
		Name:                s.Name,
		BusinessType:        s.BusinessType,
		LayoutID:            s.LayoutID,
		PrimaryPlaylistID:   s.PrimaryPlaylistID,
		SecondaryPlaylistID: s.SecondaryPlaylistID,
		DeviceCount:         s.DeviceCount,
		CreatedAt:           s.CreatedAt,
	}
}

type createRequest struct {
	Name                string     `json:"name" validate:"required,max=120"`
	BusinessType        string     `json:"businessType" validate:"required,max=60"`
	LayoutID            *uuid.UUID `json:"layoutId"`
	PrimaryPlaylistID   *uuid.UUID `json:"primaryPlaylistId"`
	SecondaryPlaylistID *uuid.UUID `json:"secondaryPlaylistId"`
}

type publishRequest struct {
	ScreenIDs []uuid.UUID `json:"screenIds" validate:"required,min=1"`
}

type screenRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type screenDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	page, err := httpapi.QueryInt(r, "page", 1)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	pageSize, err := httpapi.QueryInt(r, "pageSize", service.DefaultPageSize)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}

	index := httpapi.PageIndex(page)
	res, err := h.svc.FetchScenesWithDeviceCounts(r.Context(), scope, service.PageRequest{Page: index, PageSize: pageSize})
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	out := make([]sceneDTO, 0, len(res.Items))
	for _, s := range res.Items {
		out = append(out, toDTO(s))
	}
	h.rs.JSON(w, http.StatusOK, httpapi.NewPage(out, index, pageSize, res.Total))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, getOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "sceneId")
	if err != nil {
		h.rs.Error(w, r, err, getOperation)
		return
	}
	sc, err := h.svc.GetScene(r.Context(), scope, id)
	if err != nil {
		h.rs.Error(w, r, err, getOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(sc))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, createOperation)
		return
	}
	var body createRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, createOperation)
		return
	}
	sc, err := h.svc.CreateScene(r.Context(), scope, service.CreateInput{
		Name:                body.Name,
		BusinessType:        body.BusinessType,
		LayoutID:            body.LayoutID,
		PrimaryPlaylistID:   body.PrimaryPlaylistID,
		SecondaryPlaylistID: body.SecondaryPlaylistID,
	})
	if err != nil {
		h.rs.Error(w, r, err, createOperation)
		return
	}
	w.Header().Set("Location", "/api/v1/scenes/"+sc.ID.String())
	h.rs.JSON(w, http.StatusCreated, toDTO(sc))
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, publishOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "sceneId")
	if err != nil {
		h.rs.Error(w, r, err, publishOperation)
		return
	}
	var body publishRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, publishOperation)
		return
	}
	if err := h.svc.PublishScene(r.Context(), scope, id, body.ScreenIDs); err != nil {
		h.rs.Error(w, r, err, publishOperation)
		return
	}
	h.rs.NoContent(w)
}

func (h *Handler) ListScreens(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, listScreensOperation)
		return
	}
	screens, err := h.svc.ListScreens(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, listScreensOperation)
		return
	}
	out := make([]screenDTO, 0, len(screens))
	for _, s := range screens {
		out = append(out, screenDTO{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt})
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) CreateScreen(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, createScreenOperation)
		return
	}
	var body screenRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, createScreenOperation)
		return
	}
	s, err := h.svc.CreateScreen(r.Context(), scope, body.Name)
	if err != nil {
		h.rs.Error(w, r, err, createScreenOperation)
		return
	}
	h.rs.JSON(w, http.StatusCreated, screenDTO{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt})
}
