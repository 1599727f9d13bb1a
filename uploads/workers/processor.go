package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"course-directory-backend/config"
	"course-directory-backend/uploads/queue"
	"course-directory-backend/uploads/repositories"
	"course-directory-backend/uploads/services"
)

// Processor handles queued upload processing tasks.
type Processor struct {
	uploads *services.UploadProcessor
}

func NewProcessor(uploads *services.UploadProcessor) *Processor {
	return &Processor{uploads: uploads}
}

// Handler returns the task mux for the asynq server.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeProcessUpload, p.handleProcessUpload)
	return mux
}

func (p *Processor) handleProcessUpload(ctx context.Context, t *asynq.Task) error {
	var payload queue.ProcessUploadPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}

	err := p.uploads.ProcessUpload(payload.UploadID)
	if err == nil {
		return nil
	}

	// A conflict means another pass (or an abandon) already moved the upload
	// on, so retrying cannot help.
	if errors.Is(err, repositories.ErrUploadConflict) || errors.Is(err, repositories.ErrUploadNotFound) {
		config.Logger.Warn("Skipping upload processing task",
			zap.String("upload_id", payload.UploadID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	config.Logger.Error("Upload processing failed",
		zap.String("upload_id", payload.UploadID.String()),
		zap.Error(err),
	)
	return err
}
