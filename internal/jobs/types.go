package jobs

import (
	"context"
	"time"
)

// JobType identifies the kind of work a job carries.
type JobType string

const (
	// JobTypeIngestStatement is an end-to-end statement ingestion: layout
	// parse, balance extraction, consolidation, persistence.
	JobTypeIngestStatement JobType = "ingest_statement"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// IngestStatementJob asks the worker to ingest one uploaded statement.
type IngestStatementJob struct {
	JobID string `json:"job_id"`

	// DocumentID is the statement's documents row.
	DocumentID string `json:"document_id"`

	// GCSURI points at the uploaded statement PDF; TextGCSURI at its
	// extracted text layer JSON.
	GCSURI     string `json:"gcs_uri"`
	TextGCSURI string `json:"text_gcs_uri"`

	UserID    string `json:"user_id"`
	AccountID string `json:"account_id,omitempty"`

	// LayoutTemplate names the table layout to parse with (e.g. "barclays").
	LayoutTemplate string `json:"layout_template"`

	// ParsingRunID is set once the pipeline opens a run for this job.
	ParsingRunID string `json:"parsing_run_id,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the failure detail for failed jobs.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is the generic view the queue machinery needs.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *IngestStatementJob) GetID() string { return j.JobID }

func (j *IngestStatementJob) GetType() JobType { return JobTypeIngestStatement }

func (j *IngestStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs. The abstraction keeps the API handlers independent
// of the queue implementation (in-memory today, Pub/Sub later).
type Publisher interface {
	// PublishIngestStatement enqueues a statement ingestion job.
	PublishIngestStatement(ctx context.Context, job *IngestStatementJob) error

	Close() error
}

// Consumer drains jobs from a queue and hands them to a handler.
type Consumer interface {
	// Start begins consuming. The handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can answer status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *IngestStatementJob) error
	GetJob(ctx context.Context, jobID string) (*IngestStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*IngestStatementJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}
