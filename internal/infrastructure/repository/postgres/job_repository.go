package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

const pgUniqueViolation = "23505"

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a pending job. The partial unique index on active jobs
// makes the one-active-job-per-document check atomic: a concurrent
// submit loses the insert race and gets DuplicateActiveJobError instead
// of a second job.
func (r *JobRepository) Create(ctx context.Context, job *domain.ProcessingJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO processing_jobs (job_id, document_id, status, stage, progress, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		job.JobID, job.DocumentID, string(job.Status), string(job.Stage), job.Progress, job.Error,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return r.duplicateActiveError(ctx, job.DocumentID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) duplicateActiveError(ctx context.Context, documentID string) error {
	var activeID string
	err := r.db.QueryRowContext(ctx, `
SELECT job_id FROM processing_jobs
WHERE document_id = $1 AND status IN ('pending', 'running')
`, documentID).Scan(&activeID)
	if err != nil {
		// The active job finished between the conflict and this lookup;
		// report the conflict without an id rather than fail the caller
		// with a scan error.
		return &domain.DuplicateActiveJobError{DocumentID: documentID}
	}
	return &domain.DuplicateActiveJobError{DocumentID: documentID, ActiveJobID: activeID}
}

func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*domain.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT job_id, document_id, status, stage, progress, error_message, classification, extraction,
	created_at, updated_at, started_at, completed_at
FROM processing_jobs
WHERE job_id = $1
`, jobID)

	var job domain.ProcessingJob
	var status, stage string
	var classificationRaw, extractionRaw []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.JobID, &job.DocumentID, &status, &stage, &job.Progress, &job.Error,
		&classificationRaw, &extractionRaw,
		&job.CreatedAt, &job.UpdatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id %s: %w", jobID, err))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.Stage = domain.Stage(stage)
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if len(classificationRaw) > 0 {
		var cls domain.ClassificationResult
		if err := json.Unmarshal(classificationRaw, &cls); err != nil {
			return nil, fmt.Errorf("unmarshal classification: %w", err)
		}
		job.Classification = &cls
	}
	if len(extractionRaw) > 0 {
		var ext domain.ExtractionResult
		if err := json.Unmarshal(extractionRaw, &ext); err != nil {
			return nil, fmt.Errorf("unmarshal extraction: %w", err)
		}
		job.Extraction = &ext
	}
	return &job, nil
}

func (r *JobRepository) MarkRunning(ctx context.Context, jobID string, startedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = 'running', started_at = $2, updated_at = $3
WHERE job_id = $1
`, jobID, startedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return r.requireRow(res, jobID)
}

// UpdateProgress records the current stage. GREATEST keeps progress
// monotonic even if a redelivered message replays an earlier stage.
func (r *JobRepository) UpdateProgress(ctx context.Context, jobID string, stage domain.Stage, progress int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET stage = $2, progress = GREATEST(progress, $3), updated_at = $4
WHERE job_id = $1
`, jobID, string(stage), progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return r.requireRow(res, jobID)
}

func (r *JobRepository) SaveClassification(ctx context.Context, jobID string, cls domain.ClassificationResult) error {
	raw, err := json.Marshal(cls)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET classification = $2, updated_at = $3
WHERE job_id = $1
`, jobID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	return r.requireRow(res, jobID)
}

func (r *JobRepository) SaveExtraction(ctx context.Context, jobID string, ext domain.ExtractionResult) error {
	raw, err := json.Marshal(ext)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET extraction = $2, updated_at = $3
WHERE job_id = $1
`, jobID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return r.requireRow(res, jobID)
}

func (r *JobRepository) MarkCompleted(ctx context.Context, jobID string, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = 'completed', progress = 100, error_message = '', completed_at = $2, updated_at = $3
WHERE job_id = $1
`, jobID, completedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return r.requireRow(res, jobID)
}

func (r *JobRepository) MarkFailed(ctx context.Context, jobID string, stage domain.Stage, errMessage string, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = 'failed', stage = $2, error_message = $3, completed_at = $4, updated_at = $5
WHERE job_id = $1
`, jobID, string(stage), errMessage, completedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return r.requireRow(res, jobID)
}

func (r *JobRepository) requireRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "update job", fmt.Errorf("id %s: %w", jobID, sql.ErrNoRows))
	}
	return nil
}
