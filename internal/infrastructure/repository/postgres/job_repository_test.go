package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

func TestJobRepositoryCreateMapsUniqueViolationToDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("INSERT INTO processing_jobs").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectQuery("SELECT job_id FROM processing_jobs").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"job_id"}).AddRow("job-active"))

	err = repo.Create(context.Background(), &domain.ProcessingJob{
		JobID:      "job-2",
		DocumentID: "doc-1",
		Status:     domain.JobPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	})
	if !domain.IsKind(err, domain.ErrDuplicateActiveJob) {
		t.Fatalf("expected duplicate-active-job, got %v", err)
	}
	var dup *domain.DuplicateActiveJobError
	if !errors.As(err, &dup) || dup.ActiveJobID != "job-active" {
		t.Fatalf("expected active job id carried in error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryGetByIDUnmarshalsResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	cls, _ := json.Marshal(domain.ClassificationResult{
		DocumentType: domain.TypeContract,
		Confidence:   0.9,
	})
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"job_id", "document_id", "status", "stage", "progress", "error_message",
		"classification", "extraction", "created_at", "updated_at", "started_at", "completed_at",
	}).AddRow("job-1", "doc-1", "running", "extraction", 66, "", cls, nil, now, now, now, nil)

	mock.ExpectQuery("FROM processing_jobs").
		WithArgs("job-1").
		WillReturnRows(rows)

	repo := NewJobRepository(db)
	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != domain.JobRunning || job.Stage != domain.StageExtraction || job.Progress != 66 {
		t.Fatalf("unexpected job state: %+v", job)
	}
	if job.Classification == nil || job.Classification.DocumentType != domain.TypeContract {
		t.Fatalf("classification not decoded: %+v", job.Classification)
	}
	if job.Extraction != nil {
		t.Fatalf("nil extraction column must stay nil")
	}
	if job.StartedAt == nil || job.CompletedAt != nil {
		t.Fatalf("nullable timestamps mishandled: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM processing_jobs").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"job_id"}))

	repo := NewJobRepository(db)
	_, err = repo.GetByID(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job-not-found, got %v", err)
	}
}

func TestJobRepositoryMarkCompletedRequiresRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE processing_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewJobRepository(db)
	err = repo.MarkCompleted(context.Background(), "ghost", time.Now())
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job-not-found for missing row, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryUpdateProgressUsesGreatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("GREATEST\\(progress").
		WithArgs("job-1", "extraction", 66, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewJobRepository(db)
	if err := repo.UpdateProgress(context.Background(), "job-1", domain.StageExtraction, 66); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
