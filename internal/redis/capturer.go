package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// ErrNoReply is returned when the reply channel closes before a response arrives
var ErrNoReply = errors.New("capture worker did not reply")

// RemoteError carries the failure a capture worker reported for a job
type RemoteError struct {
	JobID   string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("capture job %s failed: %s", e.JobID, e.Message)
}

// Capturer hands capture requests to workers through the request stream and
// waits for the answer on a per-job reply channel
type Capturer struct {
	client       *Client
	replyTimeout time.Duration
	logger       *zap.Logger
}

// NewCapturer creates a stream-backed capturer. A zero replyTimeout waits as
// long as the caller's context allows.
func NewCapturer(client *Client, replyTimeout time.Duration, logger *zap.Logger) *Capturer {
	return &Capturer{
		client:       client,
		replyTimeout: replyTimeout,
		logger:       logger,
	}
}

// Capture enqueues req and blocks until a worker answers or ctx is done
func (c *Capturer) Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureReply, error) {
	if c.replyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.replyTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	channel := ReplyChannel(id)

	// Subscribe before enqueueing so a fast worker cannot answer into the void
	sub := c.client.client.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return models.CaptureReply{}, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	job := &models.CaptureJob{
		Type:      models.CaptureJobType,
		ID:        id,
		ReplyTo:   channel,
		Request:   req,
		CreatedAt: time.Now(),
	}
	messageID, err := c.client.EnqueueCapture(ctx, job)
	if err != nil {
		return models.CaptureReply{}, err
	}

	c.logger.Debug("Capture job enqueued",
		zap.String("job_id", id),
		zap.String("message_id", messageID),
		zap.String("url", req.URL))

	select {
	case <-ctx.Done():
		return models.CaptureReply{}, fmt.Errorf("waiting for capture job %s: %w", id, ctx.Err())
	case msg, ok := <-sub.Channel():
		if !ok {
			return models.CaptureReply{}, ErrNoReply
		}
		return decodeResponse(id, []byte(msg.Payload))
	}
}

// decodeResponse turns a worker response into a reply or an error
func decodeResponse(jobID string, payload []byte) (models.CaptureReply, error) {
	var resp models.CaptureResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return models.CaptureReply{}, fmt.Errorf("failed to unmarshal capture response: %w", err)
	}
	if resp.Error != "" {
		return models.CaptureReply{}, &RemoteError{JobID: jobID, Message: resp.Error}
	}
	if resp.Reply == nil {
		return models.CaptureReply{}, ErrNoReply
	}
	return *resp.Reply, nil
}
