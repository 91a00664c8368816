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

const historyKeyPrefix = "shotframe:history:"

// Entry statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// HistoryEntry records one finished capture of a session
type HistoryEntry struct {
	Status  string                `json:"status"`
	Request models.CaptureRequest `json:"request"`
	Result  *models.CaptureResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
	At      time.Time             `json:"at"`
}

// History keeps the most recent captures of each session in a capped Redis list
type History struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
	logger *zap.Logger
}

// NewHistory creates a history archive on an existing client
func NewHistory(client *Client, limit int, ttl time.Duration, logger *zap.Logger) *History {
	return newHistory(client.client, limit, ttl, logger)
}

func newHistory(rdb *redis.Client, limit int, ttl time.Duration, logger *zap.Logger) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{
		client: rdb,
		limit:  limit,
		ttl:    ttl,
		logger: logger,
	}
}

// historyKey creates the list key for a session
func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

// CaptureSucceeded records a successful capture
func (h *History) CaptureSucceeded(ctx context.Context, sessionID string, result models.CaptureResult) {
	h.record(ctx, sessionID, HistoryEntry{
		Status: StatusSucceeded,
		Request: models.CaptureRequest{
			URL:    result.SourceURL,
			Width:  result.Width,
			Height: result.Height,
		},
		Result: &result,
		At:     result.CreatedAt,
	})
}

// CaptureFailed records a failed capture
func (h *History) CaptureFailed(ctx context.Context, sessionID string, req models.CaptureRequest, err error) {
	entry := HistoryEntry{
		Status:  StatusFailed,
		Request: req,
		At:      time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.record(ctx, sessionID, entry)
}

func (h *History) record(ctx context.Context, sessionID string, entry HistoryEntry) {
	if err := h.Append(ctx, sessionID, entry); err != nil {
		h.logger.Warn("Failed to record capture history",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// Append pushes entry onto the session's list, trimming it to the limit
func (h *History) Append(ctx context.Context, sessionID string, entry HistoryEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := historyKey(sessionID)
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, key, body)
	pipe.LTrim(ctx, key, 0, int64(h.limit-1))
	if h.ttl > 0 {
		pipe.Expire(ctx, key, h.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	return nil
}

// List returns a session's captures, newest first
func (h *History) List(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	key := historyKey(sessionID)
	items, err := h.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	entries := make([]HistoryEntry, 0, len(items))
	for _, item := range items {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			h.logger.Warn("Skipping unreadable history entry", zap.String("key", key), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SessionDeleted drops the history of a session that was deleted
func (h *History) SessionDeleted(ctx context.Context, sessionID string) {
	if err := h.Clear(ctx, sessionID); err != nil {
		h.logger.Warn("Failed to clear capture history",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// Clear removes a session's history
func (h *History) Clear(ctx context.Context, sessionID string) error {
	if err := h.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}
