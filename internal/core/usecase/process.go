package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

// StageObserver receives per-stage wall-clock durations. Implemented by
// the worker metrics; nil disables observation.
type StageObserver interface {
	ObserveStage(stage domain.Stage, duration time.Duration)
}

// PipelineProcessor runs OCR → classify → extract for one job, strictly
// in sequence. A failure at any stage moves the job to failed with the
// stage name recorded; there is no automatic retry — a retry is a new
// submission.
type PipelineProcessor struct {
	jobs       ports.JobRepository
	docs       ports.DocumentRepository
	ocr        ports.TextRecognizer
	classifier *Classifier
	extractor  *Extractor
	stages     StageObserver
	log        *slog.Logger
}

func NewPipelineProcessor(
	jobs ports.JobRepository,
	docs ports.DocumentRepository,
	ocr ports.TextRecognizer,
	classifier *Classifier,
	extractor *Extractor,
	stages StageObserver,
	log *slog.Logger,
) *PipelineProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &PipelineProcessor{
		jobs:       jobs,
		docs:       docs,
		ocr:        ocr,
		classifier: classifier,
		extractor:  extractor,
		stages:     stages,
		log:        log,
	}
}

func (p *PipelineProcessor) ProcessByID(ctx context.Context, jobID string) error {
	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch job by id: %w", err)
	}
	if job.Status != domain.JobPending {
		// Queue redelivery after the job already ran; nothing to do.
		p.log.Warn("skipping job not in pending state", "job_id", jobID, "status", job.Status)
		return nil
	}

	doc, err := p.docs.GetByID(ctx, job.DocumentID)
	if err != nil {
		return p.fail(ctx, jobID, domain.StageOCR, fmt.Errorf("fetch document: %w", err))
	}

	if err := p.jobs.MarkRunning(ctx, jobID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	p.log.Info("job started", "job_id", jobID, "document_id", doc.ID, "storage_key", doc.StorageKey)

	ocrStart := time.Now()
	ocrRes, err := p.ocr.ExtractText(ctx, doc.StorageKey)
	p.observeStage(domain.StageOCR, time.Since(ocrStart))
	if err != nil {
		return p.fail(ctx, jobID, domain.StageOCR, err)
	}
	if err := p.jobs.UpdateProgress(ctx, jobID, domain.StageClassification, domain.ProgressAfterOCR); err != nil {
		return fmt.Errorf("update progress after ocr: %w", err)
	}

	classifyStart := time.Now()
	classification, err := p.classifier.Classify(ctx, doc.ID, ocrRes.Text)
	p.observeStage(domain.StageClassification, time.Since(classifyStart))
	if err != nil {
		return p.fail(ctx, jobID, domain.StageClassification, err)
	}
	if err := p.jobs.SaveClassification(ctx, jobID, classification); err != nil {
		return fmt.Errorf("save classification: %w", err)
	}

	// Extraction is never invoked for unknown: the job completes with
	// classification only.
	if classification.DocumentType == domain.TypeUnknown {
		p.log.Info("document type unknown, skipping extraction", "job_id", jobID, "document_id", doc.ID)
		return p.complete(ctx, jobID)
	}

	if err := p.jobs.UpdateProgress(ctx, jobID, domain.StageExtraction, domain.ProgressAfterClassify); err != nil {
		return fmt.Errorf("update progress after classification: %w", err)
	}

	extractStart := time.Now()
	analysis := p.layoutFor(ctx, doc.StorageKey, classification.DocumentType)
	extraction, err := p.extractor.Extract(ctx, doc.ID, ocrRes.Text, classification.DocumentType, analysis)
	p.observeStage(domain.StageExtraction, time.Since(extractStart))
	if err != nil {
		return p.fail(ctx, jobID, domain.StageExtraction, err)
	}
	if err := p.jobs.SaveExtraction(ctx, jobID, extraction); err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}

	return p.complete(ctx, jobID)
}

// layoutFor fetches forms/tables for types that use them. Layout is an
// enrichment: a failure here degrades extraction to text-only instead
// of failing the job.
func (p *PipelineProcessor) layoutFor(ctx context.Context, storageKey string, dt domain.DocumentType) *domain.DocumentAnalysis {
	if !domain.NeedsLayout(dt) {
		return nil
	}
	analysis, err := p.ocr.AnalyzeDocument(ctx, storageKey)
	if err != nil {
		p.log.Warn("layout analysis failed, extracting from text only", "storage_key", storageKey, "error", err)
		return nil
	}
	return &analysis
}

func (p *PipelineProcessor) observeStage(stage domain.Stage, d time.Duration) {
	if p.stages != nil {
		p.stages.ObserveStage(stage, d)
	}
}

func (p *PipelineProcessor) complete(ctx context.Context, jobID string) error {
	if err := p.jobs.UpdateProgress(ctx, jobID, "", domain.ProgressDone); err != nil {
		return fmt.Errorf("update final progress: %w", err)
	}
	if err := p.jobs.MarkCompleted(ctx, jobID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	p.log.Info("job completed", "job_id", jobID)
	return nil
}

// fail records the stage-specific error verbatim and moves the job to
// failed. Host cancellation is surfaced as its own error kind. The
// status write runs on a detached context so it survives the
// cancellation that caused the failure.
func (p *PipelineProcessor) fail(ctx context.Context, jobID string, stage domain.Stage, stageErr error) error {
	if ctx.Err() != nil && !domain.IsKind(stageErr, domain.ErrCancelled) {
		stageErr = domain.WrapError(domain.ErrCancelled, string(stage), stageErr)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.jobs.MarkFailed(writeCtx, jobID, stage, stageErr.Error(), time.Now().UTC()); err != nil {
		return fmt.Errorf("%w; mark failed status: %v", stageErr, err)
	}

	p.log.Error("job failed", "job_id", jobID, "stage", stage, "error", stageErr)
	return stageErr
}
