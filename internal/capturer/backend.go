package capturer

import (
	"context"
	"errors"
	"fmt"

	"github.com/koios/shotframe/internal/amqp"
	"github.com/koios/shotframe/internal/config"
	"github.com/koios/shotframe/internal/redis"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// Capturer is implemented by every capture backend
type Capturer interface {
	Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureReply, error)
}

// Backend is a configured capturer plus whatever connections it holds
type Backend struct {
	Capturer
	Name    string
	closers []func() error
}

// NewBackend builds the capturer selected by cfg.Capture.Backend
func NewBackend(cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.Capture.Backend}

	switch cfg.Capture.Backend {
	case "placeholder":
		b.Capturer = NewPlaceholder(cfg.Server.PublicBaseURL, cfg.Capture.PlaceholderDelay, logger)

	case "http":
		b.Capturer = NewHTTP(cfg.Capture.HTTPEndpoint, cfg.Capture.HTTPTimeout, logger)

	case "redis":
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		b.Capturer = redis.NewCapturer(client, cfg.Capture.ReplyTimeout, logger)
		b.closers = append(b.closers, client.Close)

	case "amqp":
		conn, err := amqp.NewConnection(cfg.AMQP, logger)
		if err != nil {
			return nil, err
		}
		rpc := amqp.NewCapturer(conn, cfg.Capture.ReplyTimeout, logger)
		b.Capturer = rpc
		b.closers = append(b.closers, rpc.Close, conn.Close)

	default:
		return nil, fmt.Errorf("unknown capture backend: %s", cfg.Capture.Backend)
	}

	logger.Info("Capture backend ready", zap.String("backend", b.Name))
	return b, nil
}

// NewWorkerBackend builds the capturer a queue worker runs jobs against:
// the HTTP service when an endpoint is configured, otherwise the placeholder
func NewWorkerBackend(cfg *config.Config, logger *zap.Logger) *Backend {
	if cfg.Capture.HTTPEndpoint != "" {
		return &Backend{Name: "http", Capturer: NewHTTP(cfg.Capture.HTTPEndpoint, cfg.Capture.HTTPTimeout, logger)}
	}
	return &Backend{Name: "placeholder", Capturer: NewPlaceholder(cfg.Server.PublicBaseURL, cfg.Capture.PlaceholderDelay, logger)}
}

// Close releases the backend's connections
func (b *Backend) Close() error {
	var errs []error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
