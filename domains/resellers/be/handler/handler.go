package handler

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizscreen/console/domains/resellers/be/service"
	"github.com/bizscreen/console/platform/go/httpapi"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	accountOperation   = "getResellerAccount"
	portfolioOperation = "getPortfolioStats"
	generateOperation  = "generateLicenses"
	listOperation      = "listResellerLicenses"
	statsOperation     = "getLicenseStats"
	exportOperation    = "exportLicensesCSV"
	activateOperation  = "activateLicense"
)

// Handler exposes reseller accounts and licenses over HTTP.
type Handler struct {
	svc service.Service
	rs  *httpapi.Responder
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("reseller service is required")
	}
	return &Handler{svc: svc, rs: httpapi.NewResponder("resellers", logger, classify)}
}

func classify(err error) (httpapi.Problem, bool) {
	switch {
	case errors.Is(err, service.ErrNotReseller):
		return httpapi.NotFound("tenant has no reseller account"), true
	case errors.Is(err, service.ErrResellerInactive):
		return httpapi.Forbidden("reseller account is not active"), true
	case errors.Is(err, service.ErrLicenseNotFound):
		return httpapi.NotFound("license not found"), true
	case errors.Is(err, service.ErrAlreadyActivated):
		return httpapi.Conflict("license already activated"), true
	default:
		return httpapi.Problem{}, false
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/reseller", func(r chi.Router) {
		r.Get("/", h.Account)
		r.Get("/portfolio", h.Portfolio)
		r.Get("/licenses", h.List)
		r.Post("/licenses", h.Generate)
		r.Get("/licenses/stats", h.Stats)
		r.Get("/licenses/export", h.Export)
	})
	r.Post("/licenses/activate", h.Activate)
}

type accountDTO struct {
	ID                uuid.UUID `json:"id"`
	CompanyName       string    `json:"companyName"`
	Status            string    `json:"status"`
	CommissionPercent float64   `json:"commissionPercent"`
	CreatedAt         time.Time `json:"createdAt"`
}

type licenseDTO struct {
	ID                uuid.UUID  `json:"id"`
	Code              string     `json:"code"`
	Status            string     `json:"status"`
	PlanLevel         string     `json:"planLevel"`
	MaxScreens        int        `json:"maxScreens"`
	ActivatedTenantID *uuid.UUID `json:"activatedTenantId,omitempty"`
	ActivatedAt       *time.Time `json:"activatedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toLicenseDTO(l service.License) licenseDTO {
	return licenseDTO{
		ID:                l.ID,
		Code:              l.Code,
		Status:            string(l.Status),
		PlanLevel:         l.PlanLevel,
		MaxScreens:        l.MaxScreens,
		ActivatedTenantID: l.ActivatedTenantID,
		ActivatedAt:       l.ActivatedAt,
		CreatedAt:         l.CreatedAt,
	}
}

type countsDTO struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Activated int `json:"activated"`
}

func toCountsDTO(c service.LicenseCounts) countsDTO {
	return countsDTO{Total: c.Total, Available: c.Available, Activated: c.Activated}
}

type generateRequest struct {
	Quantity   int    `json:"quantity" validate:"required,min=1,max=100"`
	PlanLevel  string `json:"planLevel" validate:"required"`
	MaxScreens int    `json:"maxScreens" validate:"required,min=1"`
}

type activateRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, accountOperation)
		return
	}
	acct, err := h.svc.GetResellerAccount(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, accountOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, accountDTO{
		ID:                acct.ID,
		CompanyName:       acct.CompanyName,
		Status:            string(acct.Status),
		CommissionPercent: acct.CommissionPercent,
		CreatedAt:         acct.CreatedAt,
	})
}

func (h *Handler) Portfolio(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, portfolioOperation)
		return
	}
	p, err := h.svc.GetPortfolioStats(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, portfolioOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, map[string]any{
		"clients":            p.Clients,
		"licenses":           toCountsDTO(p.Licenses),
		"screensProvisioned": p.ScreensProvisioned,
		"commissionPercent":  p.CommissionPercent,
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, generateOperation)
		return
	}
	var body generateRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, generateOperation)
		return
	}
	items, err := h.svc.GenerateLicenses(r.Context(), scope, service.GenerateRequest{
		Quantity:   body.Quantity,
		PlanLevel:  body.PlanLevel,
		MaxScreens: body.MaxScreens,
	})
	if err != nil {
		h.rs.Error(w, r, err, generateOperation)
		return
	}
	out := make([]licenseDTO, 0, len(items))
	for _, l := range items {
		out = append(out, toLicenseDTO(l))
	}
	h.rs.JSON(w, http.StatusCreated, map[string]any{"items": out})
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
	req := service.ListRequest{Page: httpapi.PageIndex(page), PageSize: pageSize}
	if raw := httpapi.QueryString(r, "status"); raw != nil {
		status, ok := service.ParseLicenseStatus(*raw)
		if !ok {
			h.rs.Error(w, r, validation.New(map[string]string{"status": "status must be one of [available activated]"}), listOperation)
			return
		}
		req.Status = &status
	}

	res, err := h.svc.ListResellerLicenses(r.Context(), scope, req)
	if err != nil {
		h.rs.Error(w, r, err, listOperation)
		return
	}
	out := make([]licenseDTO, 0, len(res.Items))
	for _, l := range res.Items {
		out = append(out, toLicenseDTO(l))
	}
	h.rs.JSON(w, http.StatusOK, httpapi.NewPage(out, req.Page, pageSize, res.Total))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, statsOperation)
		return
	}
	c, err := h.svc.GetLicenseStats(r.Context(), scope)
	if err != nil {
		h.rs.Error(w, r, err, statsOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toCountsDTO(c))
}

// Export renders the whole file before writing so failures still produce a problem document.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, exportOperation)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportLicensesCSV(r.Context(), scope, &buf); err != nil {
		h.rs.Error(w, r, err, exportOperation)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="licenses.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	scope, err := httpapi.Scope(r)
	if err != nil {
		h.rs.Error(w, r, err, activateOperation)
		return
	}
	var body activateRequest
	if err := httpapi.Decode(r, &body); err != nil {
		h.rs.Error(w, r, err, activateOperation)
		return
	}
	l, err := h.svc.ActivateLicense(r.Context(), scope, body.Code)
	if err != nil {
		h.rs.Error(w, r, err, activateOperation)
		return
	}
	h.rs.JSON(w, http.StatusOK, toLicenseDTO(l))
}
