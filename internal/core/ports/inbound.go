package ports

import (
	"context"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

// SubmitRequest registers a document and asks for one pipeline run.
type SubmitRequest struct {
	DocumentID string
	StorageKey string
	UploadedBy string
	Metadata   map[string]string
}

// JobService is the inbound contract for submission and status reads.
type JobService interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.ProcessingJob, error)
	Status(ctx context.Context, jobID string) (*domain.ProcessingJob, error)
}

// JobProcessor is the inbound contract for asynchronous pipeline runs.
type JobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}

// DocumentClassifier is the synchronous classify surface.
type DocumentClassifier interface {
	ClassifyStored(ctx context.Context, documentID, storageKey string) (domain.ClassificationResult, error)
}

// DataExtractor is the synchronous extraction surface.
type DataExtractor interface {
	ExtractStored(ctx context.Context, documentID, storageKey string, dt domain.DocumentType) (domain.ExtractionResult, error)
}
