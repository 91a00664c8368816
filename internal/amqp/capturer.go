package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koios/shotframe/pkg/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	// ErrNoReply is returned when a worker answers without a capture reply
	ErrNoReply = errors.New("capture worker did not reply")
	// ErrReplyQueueClosed is returned to callers waiting when the reply queue goes away
	ErrReplyQueueClosed = errors.New("reply queue closed")
)

// RemoteError carries the failure a capture worker reported for a job
type RemoteError struct {
	JobID   string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("capture job %s failed: %s", e.JobID, e.Message)
}

// Capturer performs captures as RPC calls over AMQP. Jobs go to the job
// queue; replies arrive on an exclusive queue and are matched by correlation id.
type Capturer struct {
	conn         *Connection
	replyTimeout time.Duration
	logger       *zap.Logger

	mu   sync.Mutex
	link *replyLink
}

// replyLink is one reply queue and the callers waiting on it. Once its
// deliveries stop it is closed for good and a new link takes its place.
type replyLink struct {
	ch      *amqp.Channel
	queue   string
	pending map[string]chan amqp.Delivery
	closed  bool
}

func newReplyLink(ch *amqp.Channel, queue string) *replyLink {
	return &replyLink{
		ch:      ch,
		queue:   queue,
		pending: make(map[string]chan amqp.Delivery),
	}
}

// NewCapturer creates an RPC capturer. A zero replyTimeout waits as long as
// the caller's context allows.
func NewCapturer(conn *Connection, replyTimeout time.Duration, logger *zap.Logger) *Capturer {
	return &Capturer{
		conn:         conn,
		replyTimeout: replyTimeout,
		logger:       logger,
	}
}

// Capture publishes req as a job and waits for the matching reply
func (c *Capturer) Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureReply, error) {
	if c.replyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.replyTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	link, replies, err := c.subscribe(id)
	if err != nil {
		return models.CaptureReply{}, err
	}
	defer c.unregister(link, id)

	job := &models.CaptureJob{
		Type:      models.CaptureJobType,
		ID:        id,
		ReplyTo:   link.queue,
		Request:   req,
		CreatedAt: time.Now(),
	}
	if err := c.conn.PublishJob(ctx, job); err != nil {
		return models.CaptureReply{}, err
	}

	select {
	case <-ctx.Done():
		return models.CaptureReply{}, fmt.Errorf("waiting for capture job %s: %w", id, ctx.Err())
	case msg, ok := <-replies:
		if !ok {
			return models.CaptureReply{}, ErrReplyQueueClosed
		}
		return decodeResponse(id, msg.Body)
	}
}

// subscribe registers a waiter for id on a live reply queue. A link that
// dies between being opened and the registration is replaced once.
func (c *Capturer) subscribe(id string) (*replyLink, <-chan amqp.Delivery, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		link, err := c.ensureReplyQueue()
		if err != nil {
			return nil, nil, err
		}
		replies, err := c.register(link, id)
		if err == nil {
			return link, replies, nil
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

// ensureReplyQueue declares the exclusive reply queue and starts routing
// its deliveries, reconnecting first if needed
func (c *Capturer) ensureReplyQueue() (*replyLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.link != nil && !c.link.closed && !c.link.ch.IsClosed() {
		return c.link, nil
	}

	if err := c.conn.EnsureConnection(); err != nil {
		return nil, fmt.Errorf("failed to ensure connection: %w", err)
	}

	ch, err := c.conn.openChannel()
	if err != nil {
		return nil, fmt.Errorf("failed to open reply channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume reply queue: %w", err)
	}

	link := newReplyLink(ch, q.Name)
	c.link = link
	go c.route(link, deliveries)

	c.logger.Info("Reply queue ready", zap.String("queue", q.Name))
	return link, nil
}

// route hands each reply on link to the caller waiting on its correlation id
func (c *Capturer) route(link *replyLink, deliveries <-chan amqp.Delivery) {
	for msg := range deliveries {
		c.mu.Lock()
		waiter, ok := link.pending[msg.CorrelationId]
		if ok {
			delete(link.pending, msg.CorrelationId)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("Dropping reply with no waiter", zap.String("correlation_id", msg.CorrelationId))
			continue
		}
		waiter <- msg
		close(waiter)
	}

	// The queue is gone; fail everyone still waiting on this link only
	c.mu.Lock()
	link.closed = true
	if c.link == link {
		c.link = nil
	}
	for id, waiter := range link.pending {
		close(waiter)
		delete(link.pending, id)
	}
	c.mu.Unlock()
	c.logger.Warn("Reply queue closed", zap.String("queue", link.queue))
}

func (c *Capturer) register(link *replyLink, id string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if link.closed {
		return nil, ErrReplyQueueClosed
	}
	ch := make(chan amqp.Delivery, 1)
	link.pending[id] = ch
	return ch, nil
}

func (c *Capturer) unregister(link *replyLink, id string) {
	c.mu.Lock()
	delete(link.pending, id)
	c.mu.Unlock()
}

// Close releases the reply channel
func (c *Capturer) Close() error {
	c.mu.Lock()
	link := c.link
	c.link = nil
	c.mu.Unlock()
	if link != nil && link.ch != nil {
		return link.ch.Close()
	}
	return nil
}

// decodeResponse turns a worker response into a reply or an error
func decodeResponse(jobID string, body []byte) (models.CaptureReply, error) {
	var resp models.CaptureResponse
	if err := json.Unmarshal(body, &resp); err != nil {
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
