package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/koios/shotframe/internal/config"
	"github.com/koios/shotframe/pkg/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Connection wraps the AMQP connection and channel
type Connection struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.AMQPConfig
	logger  *zap.Logger
}

// NewConnection creates a new AMQP connection and declares the capture topology
func NewConnection(cfg config.AMQPConfig, logger *zap.Logger) (*Connection, error) {
	c := &Connection{
		config: cfg,
		logger: logger,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials the broker and prepares the channel. Callers hold mu or own c exclusively.
func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, c.config); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = ch

	c.logger.Info("Connected to AMQP",
		zap.String("exchange", c.config.Exchange),
		zap.String("queue", c.config.QueueName))
	return nil
}

// declareTopology sets QoS and declares the exchange and the job queue
func declareTopology(ch *amqp.Channel, cfg config.AMQPConfig) error {
	// Set QoS for fair distribution across multiple workers
	err := ch.Qos(
		cfg.PrefetchCount, // prefetch count
		0,                 // prefetch size (0 = no limit on message size)
		false,             // global (false = apply to current consumer only)
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.QueueName, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		cfg.QueueName,  // queue name
		cfg.RoutingKey, // routing key
		cfg.Exchange,   // exchange
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// EnsureConnection reconnects if the connection or channel has been closed
func (c *Connection) EnsureConnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return nil
	}

	c.logger.Info("Re-establishing AMQP connection")
	c.closeLocked()
	return c.connect()
}

// forceClose drops the current connection so the next EnsureConnection redials
func (c *Connection) forceClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Connection) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close closes the AMQP connection and channel
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// currentChannel returns the live channel, or an error if there is none
func (c *Connection) currentChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.channel.IsClosed() {
		return nil, fmt.Errorf("AMQP channel is not open")
	}
	return c.channel, nil
}

// openChannel opens an additional channel on the current connection
func (c *Connection) openChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil, fmt.Errorf("AMQP connection is not open")
	}
	return c.conn.Channel()
}

// PublishJob sends a capture job to the job queue, asking for the answer on replyTo
func (c *Connection) PublishJob(ctx context.Context, job *models.CaptureJob) error {
	ch, err := c.currentChannel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal capture job: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		c.config.Exchange,   // exchange
		c.config.RoutingKey, // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: job.ID,
			ReplyTo:       job.ReplyTo,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish capture job: %w", err)
	}

	c.logger.Debug("Published capture job",
		zap.String("job_id", job.ID),
		zap.String("reply_to", job.ReplyTo))
	return nil
}

// PublishReply sends a capture response straight to the requester's reply queue
func (c *Connection) PublishReply(ctx context.Context, replyTo, correlationID string, resp *models.CaptureResponse) error {
	ch, err := c.currentChannel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal capture response: %w", err)
	}

	// The default exchange routes by queue name
	err = ch.PublishWithContext(
		ctx,
		"",      // exchange
		replyTo, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish reply to %s: %w", replyTo, err)
	}

	c.logger.Debug("Published capture response",
		zap.String("reply_to", replyTo),
		zap.String("correlation_id", correlationID))
	return nil
}
