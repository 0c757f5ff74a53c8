package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	platformlogging "github.com/bizscreen/console/platform/go/logging"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

const (
	ProblemTypeValidation = "https://bizscreen.io/problems/validation-error"
	ProblemTypeNotFound   = "https://bizscreen.io/problems/not-found"
	ProblemTypeConflict   = "https://bizscreen.io/problems/conflict"
	ProblemTypeForbidden  = "https://bizscreen.io/problems/forbidden"
	ProblemTypeUnauth     = "https://bizscreen.io/problems/unauthorized"
	ProblemTypeUpstream   = "https://bizscreen.io/problems/upstream-failure"
	ProblemTypeInternal   = "https://bizscreen.io/problems/internal-error"
)

// Problem is an RFC 9457 problem document.
type Problem struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func NotFound(detail string) Problem {
	return Problem{Type: ProblemTypeNotFound, Title: "Resource not found", Status: http.StatusNotFound, Detail: detail}
}

func Conflict(detail string) Problem {
	return Problem{Type: ProblemTypeConflict, Title: "Conflict", Status: http.StatusConflict, Detail: detail}
}

func Forbidden(detail string) Problem {
	return Problem{Type: ProblemTypeForbidden, Title: "Forbidden", Status: http.StatusForbidden, Detail: detail}
}

func Unprocessable(detail string) Problem {
	return Problem{Type: ProblemTypeValidation, Title: "Request cannot be processed", Status: http.StatusUnprocessableEntity, Detail: detail}
}

func BadGateway(detail string) Problem {
	return Problem{Type: ProblemTypeUpstream, Title: "Upstream failure", Status: http.StatusBadGateway, Detail: detail}
}

// Classifier maps domain errors to problems. Returning false falls through to the shared mapping.
type Classifier func(err error) (Problem, bool)

// Responder writes JSON bodies and problem documents for one domain, logging failures by severity.
type Responder struct {
	domain   string
	logger   *zap.Logger
	classify Classifier
}

// NewResponder constructs a Responder. classify may be nil.
func NewResponder(domain string, logger *zap.Logger, classify Classifier) *Responder {
	if logger == nil {
		panic("logger is required")
	}
	if classify == nil {
		classify = func(error) (Problem, bool) { return Problem{}, false }
	}
	return &Responder{domain: domain, logger: logger, classify: classify}
}

// JSON writes v with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Warn("encode response", zap.String("domain", rs.domain), zap.Error(err))
	}
}

// NoContent writes 204.
func (rs *Responder) NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error classifies err, logs it and writes the problem document.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error, op string) {
	problem := rs.problemFor(err)

	logger := platformlogging.FromRequest(r, rs.logger)
	fields := []zap.Field{
		zap.String("domain", rs.domain),
		zap.String("operation", op),
		zap.Int("status", problem.Status),
		zap.Error(err),
	}

	switch {
	case problem.Status >= http.StatusInternalServerError:
		logger.Error(rs.domain+" operation failed", fields...)
	case problem.Status == http.StatusNotFound:
		logger.Info(rs.domain+" resource not found", fields...)
	default:
		logger.Warn(rs.domain+" request rejected", fields...)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

func (rs *Responder) problemFor(err error) Problem {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		copied := make(map[string][]string, len(vErr.Fields))
		for field, messages := range vErr.Fields {
			copied[field] = append([]string(nil), messages...)
		}
		return Problem{
			Type:   ProblemTypeValidation,
			Title:  "Validation failed",
			Status: http.StatusBadRequest,
			Detail: "one or more fields are invalid",
			Errors: copied,
		}
	}

	if p, ok := rs.classify(err); ok {
		return p
	}

	switch {
	case errors.Is(err, tenant.ErrMissingScope):
		return Problem{Type: ProblemTypeUnauth, Title: "Unauthorized", Status: http.StatusUnauthorized, Detail: "tenant scope required"}
	case errors.Is(err, tenant.ErrForbidden):
		return Forbidden("role does not permit this operation")
	default:
		return Problem{Type: ProblemTypeInternal, Title: "Internal server error", Status: http.StatusInternalServerError, Detail: "an unexpected error occurred"}
	}
}
