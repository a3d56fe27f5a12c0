package httpadapter

import (
	"errors"
	"net/http"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

// errorBody is the wire shape for every non-2xx response. Codes come
// from domain.CodeOf and are stable.
type errorBody struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Retryable   bool   `json:"retryable"`
	ActiveJobID string `json:"active_job_id,omitempty"`
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrJobNotFound), domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicateActiveJob):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrInvalidDocumentType):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrProvider),
		domain.IsKind(err, domain.ErrOCR),
		domain.IsKind(err, domain.ErrClassification),
		domain.IsKind(err, domain.ErrExtraction):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{
		Code:      domain.CodeOf(err),
		Message:   err.Error(),
		Retryable: domain.IsRetryable(err),
	}
	var dup *domain.DuplicateActiveJobError
	if errors.As(err, &dup) {
		body.ActiveJobID = dup.ActiveJobID
	}
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]errorBody{"error": body})
}
