package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

// JobService registers documents and creates processing jobs.
//
// Duplicate-submission policy: while a document has an active (pending
// or running) job, further submissions are rejected with
// ErrDuplicateActiveJob carrying the active job's id. The repository's
// Create is the atomic check-and-set, so a race between two concurrent
// submissions creates exactly one job.
type JobService struct {
	jobs    ports.JobRepository
	docs    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	log     *slog.Logger
}

func NewJobService(
	jobs ports.JobRepository,
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	log *slog.Logger,
) *JobService {
	if log == nil {
		log = slog.Default()
	}
	return &JobService{jobs: jobs, docs: docs, storage: storage, queue: queue, log: log}
}

func (s *JobService) Submit(ctx context.Context, req ports.SubmitRequest) (*domain.ProcessingJob, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("document_id is required"))
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("storage_key is required"))
	}

	if err := s.storage.Stat(ctx, req.StorageKey); err != nil {
		return nil, fmt.Errorf("check stored document: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         req.DocumentID,
		StorageKey: req.StorageKey,
		UploadedBy: req.UploadedBy,
		Metadata:   req.Metadata,
		CreatedAt:  now,
	}
	if err := s.docs.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}

	job := &domain.ProcessingJob{
		JobID:      uuid.NewString(),
		DocumentID: req.DocumentID,
		Status:     domain.JobPending,
		Progress:   0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create processing job: %w", err)
	}

	if err := s.queue.PublishJobSubmitted(ctx, job.JobID); err != nil {
		// The job exists but will never be picked up; fail it so the
		// client sees a terminal state instead of a stuck pending job.
		if failErr := s.jobs.MarkFailed(ctx, job.JobID, domain.StageEnqueue, err.Error(), time.Now().UTC()); failErr != nil {
			s.log.Error("mark enqueue-failed job", "job_id", job.JobID, "error", failErr)
		}
		return nil, fmt.Errorf("publish job submission: %w", err)
	}

	s.log.Info("job submitted",
		"job_id", job.JobID,
		"document_id", req.DocumentID,
		"storage_key", req.StorageKey,
	)
	return job, nil
}

func (s *JobService) Status(ctx context.Context, jobID string) (*domain.ProcessingJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "status", errors.New("job_id is required"))
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch job by id: %w", err)
	}
	return job, nil
}
