package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/social/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
)

const (
	listOperation       = "listSocialAccounts"
	statusOperation     = "getSyncStatus"
	syncOperation       = "forceSyncAccount"
	disconnectOperation = "disconnectAccount"
)

// Handler exposes social integrations over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("social service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("social", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	if errors.Is(err, service.ErrNotFound) {
		return httpapi.NotFound("social account not found"), true
	}
	return httpapi.Problem{}, false
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/social/accounts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{accountId}/sync-status", h.Status)
		r.Post("/{accountId}/sync", h.Sync)
		r.Delete("/{accountId}", h.Disconnect)
	})
}

type statusDTO struct {
	State           string     `json:"state"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`
	LastSyncError   string     `json:"lastSyncError,omitempty"`
	SyncRequested   bool       `json:"syncRequested"`
	SyncRequestedAt *time.Time `json:"syncRequestedAt,omitempty"`
}

func toStatusDTO(s service.SyncStatus) statusDTO {
	return statusDTO{
		State:           string(s.State),
		LastSyncAt:      s.LastSyncAt,
		LastSyncError:   s.LastSyncError,
		SyncRequested:   s.SyncRequested,
		SyncRequestedAt: s.SyncRequestedAt,
	}
}

type accountDTO struct {
	ID          uuid.UUID `json:"id"`
	Provider    string    `json:"provider"`
	AccountName string    `json:"accountName"`
	Status      statusDTO `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	items, err := h.svc.ListAccounts(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	out := make([]accountDTO, 0, len(items))
	for _, a := range items {
		out = append(out, accountDTO{
			ID:          a.ID,
			Provider:    string(a.Provider),
			AccountName: a.AccountName,
			Status:      toStatusDTO(a.Status),
			CreatedAt:   a.CreatedAt,
		})
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, statusOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "accountId")
	if err != nil {
		h.rs.Error(w, r, err, statusOperation)
		return
	}
	st, err := h.svc.GetSyncStatus(r.Context(), scope, id)
	if err != nil {
		h.rs.Error(w, r, err, statusOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toStatusDTO(st))
}

// Sync answers 202: the request is queued for the provider worker.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, syncOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "accountId")
	if err != nil {
		h.rs.Error(w, r, err, syncOperation)
		return
	}
	st, err := h.svc.ForceSyncAccount(r.Context(), scope, id)
	if err != nil {
		h.rs.Error(w, r, err, syncOperation)
		return
	}
	h.rs.JSON(w, http.StatusAccepted, toStatusDTO(st))
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, disconnectOperation)
		return
	}
	id, err := httpapi.PathUUID(r, "accountId")
	if err != nil {
		h.rs.Error(w, r, err, disconnectOperation)
		return
	}
	if err := h.svc.DisconnectAccount(r.Context(), scope, id); err != nil {
		h.rs.Error(w, r, err, disconnectOperation)
		return
	}
	h.rs.NoContent(w)
}
