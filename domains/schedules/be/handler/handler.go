package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/schedules/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
)

const (
	listOperation      = "fetchSchedules"
	createOperation    = "createSchedule"
	deleteOperation    = "deleteSchedule"
	duplicateOperation = "duplicateSchedule"
	activeOperation    = "setScheduleActive"
	entryOperation     = "addScheduleEntry"
)

// Handler exposes schedules over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("schedules service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("schedules", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpapi.NotFound("schedule not found"), true
	case errors.Is(err, service.ErrConflict):
		return httpapi.Conflict("schedule conflicts with an existing one"), true
	default:
		return httpapi.Problem{}, false
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Delete("/{scheduleId}", h.Delete)
		r.Post("/{scheduleId}/duplicate", h.Duplicate)
		r.Patch("/{scheduleId}/active", h.SetActive)
		r.Post("/{scheduleId}/entries", h.AddEntry)
	})
}

type scheduleDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	EntryCount  int       `json:"entryCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toDTO(s service.Schedule) scheduleDTO {
	return scheduleDTO{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		IsActive:    s.IsActive,
		EntryCount:  s.EntryCount,
		UpdatedAt:   s.UpdatedAt,
	}
}

type createRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

type activeRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type entryRequest struct {
	PlaylistID  *uuid.UUID `json:"playlistId"`
	StartMinute int        `json:"startMinute" validate:"gte=0,lt=1440"`
	EndMinute   int        `json:"endMinute" validate:"gt=0,lte=1440"`
	DaysOfWeek  []int      `json:"daysOfWeek" validate:"required,min=1,dive,gte=0,lte=6"`
	Priority    int        `json:"priority" validate:"gte=0"`
}

type entryDTO struct {
	ID          uuid.UUID  `json:"id"`
	PlaylistID  *uuid.UUID `json:"playlistId,omitempty"`
	StartMinute int        `json:"startMinute"`
	EndMinute   int        `json:"endMinute"`
	DaysOfWeek  []int      `json:"daysOfWeek"`
	Priority    int        `json:"priority"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	items, err := h.svc.FetchSchedules(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	out := make([]scheduleDTO, 0, len(items))
	for _, s := range items {
		out = append(out, toDTO(s))
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"items": out})
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
	created, err := h.svc.CreateSchedule(r.Context(), scope, body.Name, body.Description)
	if err != nil {
		h.rs.Error(w, r, err, createOperation)
		return
	}
	w.Header().Set("Location", "/api/v1/schedules/"+created.ID.String())
	h.rs.JSON(w, http.StatusCreated, toDTO(created))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, deleteOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "scheduleId")
	if err != nil {
		h.rs.Error(w, r, err, deleteOperation)
		return
	}
	if err := h.svc.DeleteSchedule(r.Context(), scope, id); err != nil {
		h.rs.Error(w, r, err, deleteOperation)
		return
	}
	h.rs.NoContent(w)
}

func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, duplicateOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "scheduleId")
	if err != nil {
		h.rs.Error(w, r, err, duplicateOperation)
		return
	}
	copied, err := h.svc.DuplicateSchedule(r.Context(), scope, id)
	if err != nil {
		h.rs.Error(w, r, err, duplicateOperation)
		return
	}
	h.rs.JSON(w, http.StatusCreated, toDTO(copied))
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, activeOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "scheduleId")
	if err != nil {
		h.rs.Error(w, r, err, activeOperation)
		return
	}
	var body activeRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, activeOperation)
		return
	}
	updated, err := h.svc.SetScheduleActive(r.Context(), scope, id, *body.IsActive)
	if err != nil {
		h.rs.Error(w, r, err, activeOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(updated))
}

func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, entryOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "scheduleId")
	if err != nil {
		h.rs.Error(w, r, err, entryOperation)
		return
	}
	var body entryRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, entryOperation)
		return
	}
	input := service.EntryInput{
		PlaylistID:  body.PlaylistID,
		StartMinute: body.StartMinute,
		EndMinute:   body.EndMinute,
		Priority:    body.Priority,
	}
	for _, d := range body.DaysOfWeek {
		input.DaysOfWeek = append(input.DaysOfWeek, time.Weekday(d))
	}
	entry, err := h.svc.AddEntry(r.Context(), scope, id, input)
	if err != nil {
		h.rs.Error(w, r, err, entryOperation)
		return
	}
	out := entryDTO{ID: entry.ID, PlaylistID: entry.PlaylistID, StartMinute: entry.StartMinute, EndMinute: entry.EndMinute, Priority: entry.Priority, DaysOfWeek: []int{}}
	for _, d := range entry.DaysOfWeek {
		out.DaysOfWeek = append(out.DaysOfWeek, int(d))
	}
	h.rs.JSON(w, http.StatusCreated, out)
}
