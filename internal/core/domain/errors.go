package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrDuplicateActiveJob  = errors.New("duplicate active job")
	ErrProviderUnavailable = errors.New("no completion provider configured")
	ErrProvider            = errors.New("completion provider failure")
	ErrOCR                 = errors.New("ocr failure")
	ErrClassification      = errors.New("classification failure")
	ErrExtraction          = errors.New("extraction failure")
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrCancelled           = errors.New("job cancelled")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// CodeOf maps an error to its stable machine-readable code. Clients key
// retry decisions off these, so they never change once published.
func CodeOf(err error) string {
	switch {
	case IsKind(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case IsKind(err, ErrInvalidDocumentType):
		return "invalid_document_type"
	case IsKind(err, ErrDuplicateActiveJob):
		return "duplicate_active_job"
	case IsKind(err, ErrJobNotFound):
		return "job_not_found"
	case IsKind(err, ErrDocumentNotFound):
		return "document_not_found"
	case IsKind(err, ErrCancelled):
		return "cancelled"
	case IsKind(err, ErrOCR):
		return "ocr_error"
	case IsKind(err, ErrClassification):
		return "classification_error"
	case IsKind(err, ErrExtraction):
		return "extraction_error"
	case IsKind(err, ErrProvider):
		return "provider_error"
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

// IsRetryable reports whether the failure is transient. Usage errors
// (invalid type, duplicate submission) are permanent by definition.
func IsRetryable(err error) bool {
	switch {
	case IsKind(err, ErrInvalidDocumentType),
		IsKind(err, ErrInvalidInput),
		IsKind(err, ErrDuplicateActiveJob),
		IsKind(err, ErrJobNotFound),
		IsKind(err, ErrDocumentNotFound),
		IsKind(err, ErrProviderUnavailable):
		return false
	case IsKind(err, ErrProvider), IsKind(err, ErrOCR), IsKind(err, ErrCancelled):
		return true
	default:
		return false
	}
}

// DuplicateActiveJobError carries the id of the job that is already
// active for the document, so callers can poll it instead of resubmitting.
type DuplicateActiveJobError struct {
	DocumentID  string
	ActiveJobID string
}

func (e *DuplicateActiveJobError) Error() string {
	return fmt.Sprintf("document %s already has active job %s", e.DocumentID, e.ActiveJobID)
}

func (e *DuplicateActiveJobError) Unwrap() error {
	return ErrDuplicateActiveJob
}
