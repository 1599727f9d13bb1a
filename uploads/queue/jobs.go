package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeProcessUpload validates a stored upload file in the background.
	TypeProcessUpload = "upload:process"
)

// ProcessUploadPayload is the task payload for TypeProcessUpload.
type ProcessUploadPayload struct {
	UploadID uuid.UUID `json:"upload_id"`
}

// NewProcessUploadTask builds the asynq task for an upload.
func NewProcessUploadTask(uploadID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessUploadPayload{UploadID: uploadID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessUpload, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	), nil
}

// AsynqEnqueuer queues upload processing tasks on redis.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueProcessUpload(uploadID uuid.UUID) error {
	task, err := NewProcessUploadTask(uploadID)
	if err != nil {
		return fmt.Errorf("failed to build process task: %w", err)
	}
	if _, err := e.client.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue process task: %w", err)
	}
	return nil
}
