package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// TaskTypeIngestDocument extracts, splits, embeds and indexes one uploaded document.
const TaskTypeIngestDocument = "ingest_document"

var ErrJobNotFound = errors.New("job not found")

// Job represents a background job
type Job struct {
	ID        int64           `json:"id,string" gorm:"primaryKey;autoIncrement"`
	TaskType  string          `json:"task_type" gorm:"size:64;not null;index"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status" gorm:"size:16;not null"`
	Attempts  int             `json:"attempts" gorm:"not null;default:0"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobRepository defines the interface for job persistence
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	UpdateStatus(ctx context.Context, id int64, status JobStatus, err *string) error
}

// IngestPayload is the payload of an ingest_document job.
type IngestPayload struct {
	DocumentID int64 `json:"document_id,string"`
}
