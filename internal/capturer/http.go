package capturer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 512

// HTTP forwards capture requests to a remote screenshot service
type HTTP struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTP creates a capturer posting to endpoint
func NewHTTP(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTP {
	return &HTTP{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Capture posts req as JSON and decodes the reply
func (h *HTTP) Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.CaptureReply{}, fmt.Errorf("failed to marshal capture request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.CaptureReply{}, fmt.Errorf("failed to build capture request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return models.CaptureReply{}, fmt.Errorf("capture service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return models.CaptureReply{}, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var reply models.CaptureReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return models.CaptureReply{}, fmt.Errorf("failed to decode capture reply: %w", err)
	}

	h.logger.Debug("Capture service replied",
		zap.String("url", req.URL),
		zap.String("image_url", reply.ImageURL),
		zap.Duration("duration", time.Since(start)))

	return reply, nil
}

// StatusError is returned when the capture service answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("capture service returned status %d: %s", e.StatusCode, e.Body)
}
