package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/koios/shotframe/pkg/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JobHandler processes one capture job
type JobHandler interface {
	Handle(ctx context.Context, job *models.CaptureJob) (*models.CaptureResponse, error)
}

// Consumer reads capture jobs from the request stream and publishes responses
type Consumer struct {
	client  *Client
	handler JobHandler
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewConsumer creates a new Redis consumer
func NewConsumer(client *Client, handler JobHandler, logger *zap.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start consumes capture jobs until Stop is called
func (c *Consumer) Start() error {
	c.logger.Info("Starting Redis consumer for capture jobs")

	if err := c.client.EnsureConsumerGroup(c.ctx); err != nil {
		c.logger.Warn("Failed to initialize consumer group (may already exist)", zap.Error(err))
	}

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Redis consumer stopped")
			return nil
		default:
			if err := c.consumeMessages(); err != nil {
				c.logger.Error("Error consuming messages, will retry",
					zap.Error(err),
					zap.Duration("retry_delay", 5*time.Second))
				select {
				case <-c.ctx.Done():
				case <-time.After(5 * time.Second):
				}
			}
		}
	}
}

// Stop stops the consumer
func (c *Consumer) Stop() {
	c.logger.Info("Stopping Redis consumer")
	c.cancel()
}

// consumeMessages reads batches from the stream until the connection breaks
func (c *Consumer) consumeMessages() error {
	c.logger.Info("Started consuming Redis stream messages")

	for {
		select {
		case <-c.ctx.Done():
			return nil
		default:
			streams, err := c.client.ReadFromStream(c.ctx, 10, 5*time.Second)
			if err != nil {
				if c.ctx.Err() != nil {
					return nil
				}
				if !c.client.IsHealthy(c.ctx) {
					return fmt.Errorf("Redis connection unhealthy, will reconnect")
				}
				c.logger.Error("Error reading from stream", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					c.handleStreamMessage(message)
				}
			}
		}
	}
}

// handleStreamMessage processes a single stream message
func (c *Consumer) handleStreamMessage(msg redis.XMessage) {
	c.logger.Debug("Received capture job from stream",
		zap.String("message_id", msg.ID),
		zap.Int("fields_count", len(msg.Values)))

	job, err := parseJob(msg)
	if err != nil {
		c.logger.Error("Dropping unreadable stream message",
			zap.Error(err),
			zap.String("message_id", msg.ID))
		// Acknowledge the message to prevent reprocessing bad data
		_ = c.client.AcknowledgeMessage(c.ctx, msg.ID)
		return
	}

	resp, err := c.handler.Handle(c.ctx, job)
	if err != nil {
		c.logger.Error("Failed to handle capture job",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("job_id", job.ID),
			zap.String("url", job.Request.URL))
		resp = models.FailedResponse(job.ID, err)
	}

	channel := job.ReplyTo
	if channel == "" {
		channel = ReplyChannel(job.ID)
	}

	if err := c.client.PublishCaptureResponse(c.ctx, channel, resp); err != nil {
		c.logger.Error("Failed to publish capture response",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("job_id", job.ID))
		// Don't acknowledge if we failed to publish - allow retry
		return
	}

	if err := c.client.AcknowledgeMessage(c.ctx, msg.ID); err != nil {
		c.logger.Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("message_id", msg.ID))
	} else {
		c.logger.Debug("Message processed and acknowledged",
			zap.String("message_id", msg.ID),
			zap.String("job_id", job.ID))
	}
}

// parseJob extracts the capture job from a stream message's payload field
func parseJob(msg redis.XMessage) (*models.CaptureJob, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no payload field", msg.ID)
	}

	var job models.CaptureJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capture job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("capture job in message %s has no id", msg.ID)
	}
	return &job, nil
}
