// Package httpresponse implements the HTTP-facing response envelope
// shared by every endpoint in §6 External interfaces.
package httpresponse

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kthendral/optimizehub/internal/domain"
)

// ErrorDetail is the inner object of the error envelope required by
// §6: "Every non-2xx response carries {detail: {error, error_type,
// message}}".
type ErrorDetail struct {
	Error     string          `json:"error"`
	ErrorType domain.ErrorKind `json:"error_type"`
	Message   string          `json:"message"`
}

// ErrorEnvelope wraps ErrorDetail under the "detail" key per §6/§7.
type ErrorEnvelope struct {
	Detail ErrorDetail `json:"detail"`
}

// statusForKind maps an error kind to the HTTP status the spec assigns
// it (§7 taxonomy "Client-visible" column, at-submission-boundary
// cases).
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindUnknownJob:
		return http.StatusNotFound
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindResource, domain.KindContainer, domain.KindParse, domain.KindRuntime:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondJobError writes the §7 error envelope for a structured job
// error, choosing the HTTP status from its kind.
func RespondJobError(c *gin.Context, jerr *domain.JobError) {
	if jerr == nil {
		jerr = domain.NewError(domain.KindRuntime, "unknown error")
	}
	c.JSON(statusForKind(jerr.Kind), ErrorEnvelope{
		Detail: ErrorDetail{
			Error:     string(jerr.Kind),
			ErrorType: jerr.Kind,
			Message:   jerr.Message,
		},
	})
}

// RespondErrorStatus writes the §7 envelope with an explicit status
// override (used at the submission boundary where 400 vs 422 depends
// on the specific malformed-request reason, not just the kind).
func RespondErrorStatus(c *gin.Context, status int, kind domain.ErrorKind, message string) {
	c.JSON(status, ErrorEnvelope{
		Detail: ErrorDetail{
			Error:     string(kind),
			ErrorType: kind,
			Message:   message,
		},
	})
}

// RespondOK writes a 200 JSON payload.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
