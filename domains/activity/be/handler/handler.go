package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/activity/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
)

const (
	listOperation  = "getActivityLog"
	countOperation = "getActivityLogCount"
)

// Handler exposes the activity log over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("activity service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("activity", logger, nil)}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/activity", h.List)
	r.Get("/activity/count", h.Count)
}

type activityDTO struct {
	ID           uuid.UUID `json:"id"`
	Actor        string    `json:"actor"`
	ActorKind    string    `json:"actorKind"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resourceType"`
	ResourceID   *string   `json:"resourceId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toDTO(a service.Activity) activityDTO {
	return activityDTO{
		ID:           a.ID,
		Actor:        a.Actor,
		ActorKind:    string(a.ActorKind),
		Action:       a.Action,
		ResourceType: a.ResourceType,
		ResourceID:   a.ResourceID,
		CreatedAt:    a.CreatedAt,
	}
}

func filterFrom(r *http.Request) (service.Filter, error) {
	days, err := httpapi.QueryInt(r, "days", service.DefaultDays)
	if err != nil {
		return service.Filter{}, err
	}
	return service.Filter{ResourceType: httpapi.QueryString(r, "resourceType"), Days: days}, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	filter, err := filterFrom(r)
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

	// Both queries share one window end.
	asOf := time.Now().UTC()
	filter.AsOf = &asOf
	index := httpapi.PageIndex(page)

	items, err := h.svc.GetActivityLog(r.Context(), scope, filter, index, pageSize)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	total, err := h.svc.GetActivityLogCount(r.Context(), scope, filter)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}

	out := make([]activityDTO, 0, len(items))
	for _, a := range items {
		out = append(out, toDTO(a))
	}
	h.rs.JSON(w, http.StatusOK, httpapi.NewPage(out, index, pageSize, total))
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, countOperation)
		return
	}
	filter, err := filterFrom(r)
	if err != nil {
		h.rs.Error(w, r, err, countOperation)
		return
	}
	total, err := h.svc.GetActivityLogCount(r.Context(), scope, filter)
	if err != nil {
		h.rs.Error(w, r, err, countOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, map[string]int{"count": total})
}
