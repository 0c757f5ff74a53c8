package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/tenants/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/httpapi"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	listOperation      = "listTenants"
	statsOperation     = "getClientStats"
	dashboardOperation = "getDashboardSummary"
	flagOperation      = "setFeatureFlag"
	createOperation    = "createTenant"
	statusOperation    = "setTenantStatus"
)

// Handler exposes the operations console under /admin.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("tenants", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpapi.NotFound("tenant not found"), true
	case errors.Is(err, service.ErrConflictSlug):
		return httpapi.Conflict("tenant slug already exists"), true
	case errors.Is(err, service.ErrNotOperator):
		return httpapi.Forbidden("platform admin required"), true
	}
	return httpapi.Problem{}, false
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/dashboard", h.Dashboard)
		r.Get("/tenants", h.List)
		r.Post("/tenants", h.Create)
		r.Get("/tenants/stats", h.Stats)
		r.Patch("/tenants/{tenantId}/status", h.SetStatus)
		r.Put("/tenants/{tenantId}/flags/{flag}", h.SetFlag)
	})
}

type tenantDTO struct {
	ID          uuid.UUID       `json:"id"`
	Slug        string          `json:"slug"`
	DisplayName *string         `json:"displayName,omitempty"`
	Status      string          `json:"status"`
	Plan        string          `json:"plan"`
	Flags       map[string]bool `json:"flags"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func toDTO(t service.Tenant) tenantDTO {
	return tenantDTO{
		ID:          t.ID,
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Status:      string(t.Status),
		Plan:        t.Plan,
		Flags:       t.Flags,
		CreatedAt:   t.CreatedAt,
	}
}

type statsDTO struct {
	Screens   int `json:"screens"`
	Scenes    int `json:"scenes"`
	Schedules int `json:"schedules"`
}

type totalsDTO struct {
	Tenants           int `json:"tenants"`
	ActiveTenants     int `json:"activeTenants"`
	SuspendedTenants  int `json:"suspendedTenants"`
	Screens           int `json:"screens"`
	Scenes            int `json:"scenes"`
	Schedules         int `json:"schedules"`
	LicensesActivated int `json:"licensesActivated"`
}

func operator(r *http.Request) (*platformauth.UserCredentials, error) {
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		return nil, service.ErrNotOperator
	}
	return creds, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	page, err := httpapi.QueryInt(r, "page", 1)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	size, err := httpapi.QueryInt(r, "pageSize", service.DefaultPageSize)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	req := service.ListRequest{Page: httpapi.PageIndex(page), PageSize: size}
	if raw := httpapi.QueryString(r, "status"); raw != nil {
		st, ok := service.ParseStatus(*raw)
		if !ok {
			h.rs.Error(w, r, validation.New(map[string]string{"status": "status must be active or suspended"}), listOperation)
			return
		}
		req.Status = &st
	}

	result, err := h.svc.ListTenants(r.Context(), op, req)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	items := make([]tenantDTO, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, toDTO(t))
	}
	h.rs.JSON(w, http.StatusOK, httpapi.NewPage(items, req.Page, req.PageSize, result.Total))
}

// Stats takes a comma separated ids list and answers with counts keyed by tenant id.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.rs.Error(w, r, err, statsOperation)
		return
	}
	var ids []uuid.UUID
	if raw := httpapi.QueryString(r, "ids"); raw != nil {
		for _, part := range strings.Split(*raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				h.rs.Error(w, r, validation.New(map[string]string{"ids": "ids must be comma separated UUIDs"}), statsOperation)
				return
			}
			ids = append(ids, id)
		}
	}

	stats, err := h.svc.GetClientStats(r.Context(), op, ids)
	if err != nil {
		h.rs.Error(w, r, err, statsOperation)
		return
	}
	out := make(map[string]statsDTO, len(stats))
	for id, s := range stats {
		out[id.String()] = statsDTO{Screens: s.Screens, Scenes: s.Scenes, Schedules: s.Schedules}
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"stats": out})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.rs.Error(w, r, err, dashboardOperation)
		return
	}
	sum, err := h.svc.DashboardSummary(r.Context(), op)
	if err != nil {
		h.rs.Error(w, r, err, dashboardOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{
		"totals":      totalsDTO(sum.Totals),
		"generatedAt": sum.GeneratedAt,
	})
}

type flagRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *Handler) SetFlag(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.rs.Error(w, r, err, flagOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "tenantId")
	if err != nil {
		h.rs.Error(w, r, err, flagOperation)
		return
	}
	var body flagRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, flagOperation)
		return
	}
	flags, err := h.svc.SetFeatureFlag(r.Context(), op, id, chi.URLParam(r, "flag"), *body.Enabled)
	if err != nil {
		h.rs.Error(w, r, err, flagOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"tenantId": id, "flags": flags})
}

type createRequest struct {
	Slug        string  `json:"slug" validate:"required"`
	DisplayName *string `json:"displayName"`
	Plan        string  `json:"plan"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.rs.Error(w, r, err, createOperation)
		return
	}
	var body createRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, createOperation)
		return
	}
	t, err := h.svc.CreateTenant(r.Context(), op, service.CreateInput{
		Slug:        body.Slug,
		DisplayName: body.DisplayName,
		Plan:        body.Plan,
	})
	if err != nil {
		h.rs.Error(w, r, err, createOperation)
		return
	}
	h.rs.JSON(w, http.StatusCreated, toDTO(t))
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.rs.Error(w, r, err, statusOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "tenantId")
	if err != nil {
		h.rs.Error(w, r, err, statusOperation)
		return
	}
	var body statusRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, statusOperation)
		return
	}
	t, err := h.svc.SetTenantStatus(r.Context(), op, id, service.Status(body.Status))
	if err != nil {
		h.rs.Error(w, r, err, statusOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toDTO(t))
}
