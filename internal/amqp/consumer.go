package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/koios/shotframe/pkg/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// JobHandler defines the interface for handling capture jobs
type JobHandler interface {
	Handle(ctx context.Context, job *models.CaptureJob) (*models.CaptureResponse, error)
}

// Consumer handles consuming capture jobs from AMQP
type Consumer struct {
	conn    *Connection
	handler JobHandler
	logger  *zap.Logger
}

// NewConsumer creates a new consumer
func NewConsumer(conn *Connection, handler JobHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:    conn,
		handler: handler,
		logger:  logger,
	}
}

// Start starts consuming messages from the specified queue with automatic reconnection
func (c *Consumer) Start(ctx context.Context, queueName string) error {
	retryDelay := time.Second
	maxRetryDelay := 30 * time.Second
	retryCount := 0

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled, stopping")
			return ctx.Err()
		default:
			if err := c.startConsuming(ctx, queueName); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				retryCount++
				c.logger.Error("Consumer failed, will retry after delay",
					zap.Error(err),
					zap.String("queue", queueName),
					zap.Int("retry_count", retryCount),
					zap.Duration("retry_delay", retryDelay))

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
					retryDelay = nextRetryDelay(retryDelay, maxRetryDelay)
					continue
				}
			} else {
				retryDelay = time.Second
				retryCount = 0
			}
		}
	}
}

// nextRetryDelay grows the delay by half, capped at max
func nextRetryDelay(current, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * 1.5)
	if next > max {
		return max
	}
	return next
}

// startConsuming handles a single consumption session
func (c *Consumer) startConsuming(ctx context.Context, queueName string) error {
	if err := c.conn.EnsureConnection(); err != nil {
		return fmt.Errorf("failed to ensure connection: %w", err)
	}

	ch, err := c.conn.currentChannel()
	if err != nil {
		return err
	}

	hostname, _ := os.Hostname()
	consumerTag := fmt.Sprintf("shotframe-worker-%s-%d", hostname, time.Now().Unix())

	msgs, err := ch.Consume(
		queueName,   // queue
		consumerTag, // consumer tag
		false,       // auto-ack (disabled for manual acknowledgment)
		false,       // exclusive (allow multiple consumers)
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		c.logger.Warn("Failed to register consumer, forcing reconnection",
			zap.Error(err),
			zap.String("queue", queueName))
		c.conn.forceClose()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Started consuming messages",
		zap.String("queue", queueName),
		zap.String("consumer_tag", consumerTag))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled, stopping")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Message channel closed, will reconnect")
				return fmt.Errorf("message channel closed")
			}

			go c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes a single capture job
func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	c.logger.Debug("Received capture job",
		zap.String("routing_key", msg.RoutingKey),
		zap.String("correlation_id", msg.CorrelationId))

	var job models.CaptureJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		c.logger.Error("Failed to unmarshal capture job",
			zap.Error(err),
			zap.String("correlation_id", msg.CorrelationId))
		msg.Nack(false, false)
		return
	}

	replyTo, correlationID := replyRoute(msg, &job)

	resp, err := c.handler.Handle(ctx, &job)
	if err != nil {
		c.logger.Error("Failed to handle capture job",
			zap.Error(err),
			zap.String("job_id", job.ID),
			zap.String("url", job.Request.URL))
		resp = models.FailedResponse(job.ID, err)
	}

	if replyTo == "" {
		c.logger.Warn("Capture job has no reply queue, dropping response",
			zap.String("job_id", job.ID))
		msg.Ack(false)
		return
	}

	if publishErr := c.conn.PublishReply(ctx, replyTo, correlationID, resp); publishErr != nil {
		c.logger.Error("Failed to publish capture response",
			zap.Error(publishErr),
			zap.String("job_id", job.ID))

		// Requeue successful captures; failures are acked to avoid retry loops
		if err == nil {
			msg.Nack(false, true)
		} else if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("Failed to acknowledge message after publish error",
				zap.Error(ackErr),
				zap.String("job_id", job.ID))
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("Failed to acknowledge message",
			zap.Error(ackErr),
			zap.String("job_id", job.ID))
	}
}

// replyRoute picks the reply queue and correlation id, preferring the AMQP properties
func replyRoute(msg amqp.Delivery, job *models.CaptureJob) (string, string) {
	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = job.ReplyTo
	}
	correlationID := msg.CorrelationId
	if correlationID == "" {
		correlationID = job.ID
	}
	return replyTo, correlationID
}
