package capturer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// DefaultPlaceholderDelay simulates the latency of a real capture
const DefaultPlaceholderDelay = 1500 * time.Millisecond

// Placeholder answers every request with a generated SVG sized like the
// requested viewport. It stands in for a real screenshot service.
type Placeholder struct {
	baseURL string
	delay   time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewPlaceholder creates a placeholder capturer whose image URLs point at
// baseURL/placeholder.svg. An empty baseURL yields root-relative URLs.
func NewPlaceholder(baseURL string, delay time.Duration, logger *zap.Logger) *Placeholder {
	if delay < 0 {
		delay = DefaultPlaceholderDelay
	}
	return &Placeholder{
		baseURL: strings.TrimRight(baseURL, "/"),
		delay:   delay,
		now:     time.Now,
		logger:  logger,
	}
}

// Capture waits out the delay and returns the placeholder URL
func (p *Placeholder) Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureReply, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return models.CaptureReply{}, ctx.Err()
		case <-timer.C:
		}
	}

	imageURL := PlaceholderURL(p.baseURL, req, p.now())
	p.logger.Debug("Generated placeholder capture",
		zap.String("url", req.URL),
		zap.String("image_url", imageURL))

	return models.CaptureReply{
		ImageURL: imageURL,
		Width:    req.Width,
		Height:   req.Height,
	}, nil
}

// PlaceholderURL builds the placeholder image URL for req. The t parameter
// keeps repeated captures of the same page distinct.
func PlaceholderURL(baseURL string, req models.CaptureRequest, at time.Time) string {
	return fmt.Sprintf("%s/placeholder.svg?width=%d&height=%d&text=%s&t=%d",
		baseURL, req.Width, req.Height, url.QueryEscape(req.URL), at.UnixMilli())
}
