package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/koios/shotframe/internal/config"
	"github.com/koios/shotframe/pkg/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// replyChannelPrefix namespaces the per-job reply channels
const replyChannelPrefix = "shotframe:capture:"

// ReplyChannel is the pub/sub channel a capture worker answers job id on
func ReplyChannel(id string) string {
	return replyChannelPrefix + id
}

// Client wraps the Redis client for stream and pub/sub operations
type Client struct {
	client *redis.Client
	config config.RedisConfig
	logger *zap.Logger
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	// Generate consumer name if not provided
	if cfg.ConsumerName == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		cfg.ConsumerName = fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test the connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("stream", cfg.Stream),
		zap.String("consumer_name", cfg.ConsumerName))

	return &Client{
		client: rdb,
		config: cfg,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueCapture appends a capture job to the request stream
func (c *Client) EnqueueCapture(ctx context.Context, job *models.CaptureJob) (string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal capture job: %w", err)
	}

	id, err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.config.Stream,
		Values: map[string]interface{}{"payload": string(body)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add capture job to stream %s: %w", c.config.Stream, err)
	}
	return id, nil
}

// PublishCaptureResponse publishes a capture response to the job's reply channel
func (c *Client) PublishCaptureResponse(ctx context.Context, channel string, resp *models.CaptureResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal capture response: %w", err)
	}

	if err := c.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}

	c.logger.Debug("Published capture response",
		zap.String("channel", channel),
		zap.String("job_id", resp.ID))

	return nil
}

// EnsureConsumerGroup creates the consumer group for the request stream
func (c *Client) EnsureConsumerGroup(ctx context.Context) error {
	// "0" lets a new group pick up jobs queued before it existed
	err := c.client.XGroupCreateMkStream(ctx, c.config.Stream, c.config.ConsumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Consumer group initialized",
		zap.String("stream", c.config.Stream),
		zap.String("group", c.config.ConsumerGroup))

	return nil
}

// ReadFromStream reads new capture jobs for this consumer
func (c *Client) ReadFromStream(ctx context.Context, count int64, block time.Duration) ([]redis.XStream, error) {
	// ">" means only new messages not yet delivered to other consumers
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.ConsumerGroup,
		Consumer: c.config.ConsumerName,
		Streams:  []string{c.config.Stream, ">"},
		Count:    count,
		Block:    block,
		NoAck:    false,
	}).Result()

	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

// AcknowledgeMessage acknowledges a message from the stream
func (c *Client) AcknowledgeMessage(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.config.Stream, c.config.ConsumerGroup, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to acknowledge message %s: %w", messageID, err)
	}

	return nil
}

// IsHealthy checks if Redis connection is healthy
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}
