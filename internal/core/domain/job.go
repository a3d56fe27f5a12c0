package domain

import "time"

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Pipeline stage names, recorded on the job so a failure names the stage
// that produced it.
type Stage string

const (
	StageEnqueue        Stage = "enqueue"
	StageOCR            Stage = "ocr"
	StageClassification Stage = "classification"
	StageExtraction     Stage = "extraction"
)

// Progress checkpoints at stage boundaries.
const (
	ProgressAfterOCR      = 33
	ProgressAfterClassify = 66
	ProgressDone          = 100
)

// ProcessingJob tracks one orchestration run over a document. Only the
// orchestrator mutates it; status moves pending → running → completed|failed
// exactly once, and progress never decreases.
type ProcessingJob struct {
	JobID      string    `json:"job_id"`
	DocumentID string    `json:"document_id"`
	Status     JobStatus `json:"status"`
	Stage      Stage     `json:"stage,omitempty"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`

	Classification *ClassificationResult `json:"classification,omitempty"`
	Extraction     *ExtractionResult     `json:"extraction,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
