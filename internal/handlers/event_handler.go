package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/koios/shotframe/internal/capture"
	"github.com/koios/shotframe/internal/session"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// EventHandler runs capture jobs taken off a queue against a capture backend
type EventHandler struct {
	capturer session.Capturer
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(capturer session.Capturer, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		capturer: capturer,
		logger:   logger,
	}
}

// Handle processes a capture job
func (h *EventHandler) Handle(ctx context.Context, job *models.CaptureJob) (*models.CaptureResponse, error) {
	h.logger.Info("Processing capture job",
		zap.String("job_id", job.ID),
		zap.String("url", job.Request.URL),
		zap.String("type", job.Type))

	if err := validateJob(job); err != nil {
		h.logger.Error("Rejected capture job", zap.String("job_id", job.ID), zap.Error(err))
		return models.FailedResponse(job.ID, err), err
	}

	reply, err := h.capturer.Capture(ctx, job.Request)
	if err == nil && strings.TrimSpace(reply.ImageURL) == "" {
		err = fmt.Errorf("capture backend returned no image URL")
	}
	if err != nil {
		h.logger.Error("Capture job failed",
			zap.Error(err),
			zap.String("job_id", job.ID),
			zap.String("url", job.Request.URL))
		return models.FailedResponse(job.ID, err), err
	}

	h.logger.Info("Capture job completed successfully",
		zap.String("job_id", job.ID),
		zap.String("image_url", reply.ImageURL))

	return models.SucceededResponse(job.ID, reply), nil
}

// validateJob applies the same rules the submitting session applied
func validateJob(job *models.CaptureJob) error {
	if job.Type != models.CaptureJobType {
		return fmt.Errorf("invalid job type: %s", job.Type)
	}
	if job.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !capture.ValidateURL(job.Request.URL) {
		return fmt.Errorf("invalid url: %q", job.Request.URL)
	}
	if !capture.ValidateDimensions(job.Request.Width, job.Request.Height) {
		return fmt.Errorf("dimensions %dx%d out of range [%d, %d]",
			job.Request.Width, job.Request.Height, capture.MinDimension, capture.MaxDimension)
	}
	return nil
}
