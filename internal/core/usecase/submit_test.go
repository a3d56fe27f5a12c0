package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

func TestSubmitCreatesPendingJobAndPublishes(t *testing.T) {
	jobs, docs := newFakeJobRepo(), newFakeDocRepo()
	queue := &fakeQueue{}
	svc := NewJobService(jobs, docs, newFakeStorage("docs/doc-1.pdf"), queue, nil)

	job, err := svc.Submit(context.Background(), ports.SubmitRequest{
		DocumentID: "doc-1",
		StorageKey: "docs/doc-1.pdf",
		UploadedBy: "inspector-7",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if job.Status != domain.JobPending || job.Progress != 0 {
		t.Fatalf("new job must be pending at 0%%, got %s %d", job.Status, job.Progress)
	}
	if job.JobID == "" {
		t.Fatalf("job id must be assigned")
	}
	if len(queue.published) != 1 || queue.published[0] != job.JobID {
		t.Fatalf("expected one published job id, got %v", queue.published)
	}
	if _, ok := docs.docs["doc-1"]; !ok {
		t.Fatalf("document must be registered on submit")
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	svc := NewJobService(newFakeJobRepo(), newFakeDocRepo(), newFakeStorage(), &fakeQueue{}, nil)

	if _, err := svc.Submit(context.Background(), ports.SubmitRequest{StorageKey: "k"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("missing document_id: expected invalid input, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), ports.SubmitRequest{DocumentID: "doc-1"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("missing storage_key: expected invalid input, got %v", err)
	}
}

func TestSubmitRejectsMissingStoredObject(t *testing.T) {
	svc := NewJobService(newFakeJobRepo(), newFakeDocRepo(), newFakeStorage(), &fakeQueue{}, nil)

	_, err := svc.Submit(context.Background(), ports.SubmitRequest{
		DocumentID: "doc-1",
		StorageKey: "docs/never-uploaded.pdf",
	})
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected document-not-found, got %v", err)
	}
}

func TestSubmitRejectsDuplicateActiveJob(t *testing.T) {
	jobs := newFakeJobRepo()
	jobs.createErr = &domain.DuplicateActiveJobError{DocumentID: "doc-1", ActiveJobID: "job-active"}
	svc := NewJobService(jobs, newFakeDocRepo(), newFakeStorage("docs/doc-1.pdf"), &fakeQueue{}, nil)

	_, err := svc.Submit(context.Background(), ports.SubmitRequest{
		DocumentID: "doc-1",
		StorageKey: "docs/doc-1.pdf",
	})
	if !domain.IsKind(err, domain.ErrDuplicateActiveJob) {
		t.Fatalf("expected duplicate-active-job, got %v", err)
	}
	var dup *domain.DuplicateActiveJobError
	if !errors.As(err, &dup) || dup.ActiveJobID != "job-active" {
		t.Fatalf("expected active job id in error, got %v", err)
	}
}

func TestSubmitFailsJobWhenPublishFails(t *testing.T) {
	jobs := newFakeJobRepo()
	queue := &fakeQueue{publishErr: errors.New("nats unreachable")}
	svc := NewJobService(jobs, newFakeDocRepo(), newFakeStorage("docs/doc-1.pdf"), queue, nil)

	_, err := svc.Submit(context.Background(), ports.SubmitRequest{
		DocumentID: "doc-1",
		StorageKey: "docs/doc-1.pdf",
	})
	if err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	// The orphaned job must land in a terminal state, not hang pending.
	var job *domain.ProcessingJob
	for _, j := range jobs.jobs {
		job = j
	}
	if job == nil {
		t.Fatalf("job should have been created before publish")
	}
	if job.Status != domain.JobFailed || job.Stage != domain.StageEnqueue {
		t.Fatalf("expected failed at enqueue, got %s %s", job.Status, job.Stage)
	}
}

func TestStatusReturnsJob(t *testing.T) {
	jobs, docs := newFakeJobRepo(), newFakeDocRepo()
	jobID := seedJob(t, jobs, docs)
	svc := NewJobService(jobs, docs, newFakeStorage(), &fakeQueue{}, nil)

	job, err := svc.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if job.JobID != jobID {
		t.Fatalf("wrong job returned: %s", job.JobID)
	}

	if _, err := svc.Status(context.Background(), "missing"); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job-not-found, got %v", err)
	}
	if _, err := svc.Status(context.Background(), " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank id, got %v", err)
	}
}
