package ports

import (
	"context"
	"io"
	"time"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

// JobRepository persists job state. Create enforces the one-active-job-
// per-document invariant atomically and returns ErrDuplicateActiveJob
// (as *domain.DuplicateActiveJobError) when it is violated.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ProcessingJob) error
	GetByID(ctx context.Context, jobID string) (*domain.ProcessingJob, error)
	MarkRunning(ctx context.Context, jobID string, startedAt time.Time) error
	UpdateProgress(ctx context.Context, jobID string, stage domain.Stage, progress int) error
	SaveClassification(ctx context.Context, jobID string, res domain.ClassificationResult) error
	SaveExtraction(ctx context.Context, jobID string, res domain.ExtractionResult) error
	MarkCompleted(ctx context.Context, jobID string, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID string, stage domain.Stage, errMessage string, completedAt time.Time) error
}

// DocumentRepository persists document registrations.
type DocumentRepository interface {
	Upsert(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// ObjectStorage reads source documents from the content store.
type ObjectStorage interface {
	Stat(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextRecognizer converts stored document bytes into text and layout.
type TextRecognizer interface {
	ExtractText(ctx context.Context, storageKey string) (domain.OCRResult, error)
	AnalyzeDocument(ctx context.Context, storageKey string) (domain.DocumentAnalysis, error)
}

// CompletionRequest is the provider-agnostic completion call.
type CompletionRequest struct {
	Prompt        string
	SystemPrompt  string
	MaxTokens     int
	Temperature   float64
	AllowFallback bool
}

// CompletionProvider is one text-generation backend.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRouter produces a completion, preferring a primary provider
// and falling back at most once to a secondary.
type CompletionRouter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// MessageQueue publishes/consumes job submissions.
type MessageQueue interface {
	PublishJobSubmitted(ctx context.Context, jobID string) error
	SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}
