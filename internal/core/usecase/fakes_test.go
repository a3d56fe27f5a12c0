package usecase

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

type fakeRouter struct {
	responses []string
	err       error
	calls     int
	lastReq   ports.CompletionRequest
}

func (f *fakeRouter) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "{}", nil
	}
	out := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return out, nil
}

type fakeRecognizer struct {
	text        string
	analysis    domain.DocumentAnalysis
	textErr     error
	analysisErr error

	extractCalls int
	analyzeCalls int
}

func (f *fakeRecognizer) ExtractText(_ context.Context, _ string) (domain.OCRResult, error) {
	f.extractCalls++
	if f.textErr != nil {
		return domain.OCRResult{}, f.textErr
	}
	return domain.OCRResult{Text: f.text, Confidence: 0.95}, nil
}

func (f *fakeRecognizer) AnalyzeDocument(_ context.Context, _ string) (domain.DocumentAnalysis, error) {
	f.analyzeCalls++
	if f.analysisErr != nil {
		return domain.DocumentAnalysis{}, f.analysisErr
	}
	return f.analysis, nil
}

// fakeJobRepo keeps jobs in memory and records lifecycle transitions in
// order, so tests can assert the exact sequence of repository writes.
type fakeJobRepo struct {
	jobs        map[string]*domain.ProcessingJob
	transitions []string
	createErr   error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.ProcessingJob)}
}

func (f *fakeJobRepo) Create(_ context.Context, job *domain.ProcessingJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *job
	f.jobs[job.JobID] = &copied
	f.transitions = append(f.transitions, "create")
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, jobID string) (*domain.ProcessingJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", io.EOF)
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobRepo) MarkRunning(_ context.Context, jobID string, startedAt time.Time) error {
	job := f.jobs[jobID]
	job.Status = domain.JobRunning
	job.StartedAt = &startedAt
	f.transitions = append(f.transitions, "running")
	return nil
}

func (f *fakeJobRepo) UpdateProgress(_ context.Context, jobID string, stage domain.Stage, progress int) error {
	job := f.jobs[jobID]
	job.Stage = stage
	if progress > job.Progress {
		job.Progress = progress
	}
	f.transitions = append(f.transitions, "progress:"+string(stage))
	return nil
}

func (f *fakeJobRepo) SaveClassification(_ context.Context, jobID string, res domain.ClassificationResult) error {
	f.jobs[jobID].Classification = &res
	f.transitions = append(f.transitions, "classification")
	return nil
}

func (f *fakeJobRepo) SaveExtraction(_ context.Context, jobID string, res domain.ExtractionResult) error {
	f.jobs[jobID].Extraction = &res
	f.transitions = append(f.transitions, "extraction")
	return nil
}

func (f *fakeJobRepo) MarkCompleted(_ context.Context, jobID string, completedAt time.Time) error {
	job := f.jobs[jobID]
	job.Status = domain.JobCompleted
	job.CompletedAt = &completedAt
	f.transitions = append(f.transitions, "completed")
	return nil
}

func (f *fakeJobRepo) MarkFailed(_ context.Context, jobID string, stage domain.Stage, errMessage string, completedAt time.Time) error {
	job, ok := f.jobs[jobID]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "mark failed", io.EOF)
	}
	job.Status = domain.JobFailed
	job.Stage = stage
	job.Error = errMessage
	job.CompletedAt = &completedAt
	f.transitions = append(f.transitions, "failed:"+string(stage))
	return nil
}

type fakeDocRepo struct {
	docs map[string]*domain.Document
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string]*domain.Document)}
}

func (f *fakeDocRepo) Upsert(_ context.Context, doc *domain.Document) error {
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", io.EOF)
	}
	copied := *doc
	return &copied, nil
}

type fakeStorage struct {
	objects map[string][]byte
	statErr error
}

func newFakeStorage(keys ...string) *fakeStorage {
	s := &fakeStorage{objects: make(map[string][]byte)}
	for _, k := range keys {
		s.objects[k] = []byte("stub")
	}
	return s
}

func (f *fakeStorage) Stat(_ context.Context, key string) error {
	if f.statErr != nil {
		return f.statErr
	}
	if _, ok := f.objects[key]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "stat object", io.EOF)
	}
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", io.EOF)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishJobSubmitted(_ context.Context, jobID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, jobID)
	return nil
}

func (f *fakeQueue) SubscribeJobSubmitted(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}
