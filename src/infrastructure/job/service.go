package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the queue every job message is published to.
const Topic = "jobs"

// TaskHandler runs the payload of one task type.
type TaskHandler func(ctx context.Context, payload json.RawMessage) error

// Ingester is the part of the ingestion pipeline the worker drives.
type Ingester interface {
	Ingest(ctx context.Context, documentID int64) error
}

type JobService struct {
	publisher message.Publisher
	repo      JobRepository
	logger    watermill.LoggerAdapter
	handlers  map[string]TaskHandler
}

type JobMessage struct {
	JobID    int64           `json:"job_id,string"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
) *JobService {
	return &JobService{
		publisher: publisher,
		repo:      repo,
		logger:    logger,
		handlers:  make(map[string]TaskHandler),
	}
}

// Handle registers the handler for a task type, replacing any previous one.
func (s *JobService) Handle(taskType string, handler TaskHandler) {
	s.handlers[taskType] = handler
}

// HandleIngestion registers the ingest_document task.
func (s *JobService) HandleIngestion(ingester Ingester) {
	s.Handle(TaskTypeIngestDocument, func(ctx context.Context, raw json.RawMessage) error {
		var payload IngestPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal ingest payload: %w", err)
		}
		return ingester.Ingest(ctx, payload.DocumentID)
	})
}

// Submit enqueues the ingestion of a document.
func (s *JobService) Submit(ctx context.Context, documentID int64) error {
	payload, err := json.Marshal(IngestPayload{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("failed to marshal ingest payload: %w", err)
	}
	_, err = s.EnqueueJob(ctx, TaskTypeIngestDocument, payload)
	return err
}

// EnqueueJob creates a new job and publishes it to the message queue
func (s *JobService) EnqueueJob(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job, err := s.repo.Create(ctx, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	msgPayload, err := json.Marshal(JobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish(Topic, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	s.logger.Debug("Job enqueued", watermill.LogFields{
		"job_id":    job.ID,
		"task_type": job.TaskType,
	})
	return job, nil
}

// ProcessJobMessage processes a job message from the queue
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := msg.Context()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job %d: %w", jobMsg.JobID, err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	if err := s.processJob(ctx, job); err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(context.WithoutCancel(ctx), job.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	s.logger.Info("Job completed", watermill.LogFields{
		"job_id":    job.ID,
		"task_type": job.TaskType,
	})
	return nil
}

func (s *JobService) processJob(ctx context.Context, job *Job) error {
	handler, ok := s.handlers[job.TaskType]
	if !ok {
		return fmt.Errorf("unknown task type: %s", job.TaskType)
	}
	return handler(ctx, job.Payload)
}
