package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the severity of a user-facing notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// User-facing messages
const (
	msgInvalidForm    = "Please enter a valid URL and dimensions"
	msgCaptureSuccess = "Screenshot captured successfully!"
	msgCaptureFailed  = "Failed to capture screenshot. Please try again."
	msgCopied         = "Image URL copied!"
	msgCopyFailed     = "Copy failed"
	msgDownloadFailed = "Download failed"
)

// Notification is a fire-and-forget message for the user
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier delivers notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Notifiers fans a notification out to several notifiers
type Notifiers []Notifier

func (ns Notifiers) Notify(n Notification) {
	for _, notifier := range ns {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Inbox keeps the most recent notifications until the presentation layer drains them
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewInbox creates an inbox holding at most limit notifications
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 20
	}
	return &Inbox{limit: limit}
}

// Notify appends n, dropping the oldest entry when full
func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.items = append(i.items, n)
	if over := len(i.items) - i.limit; over > 0 {
		i.items = append(i.items[:0:0], i.items[over:]...)
	}
}

// Drain returns and clears the pending notifications
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := i.items
	i.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Len returns the number of pending notifications
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger    *zap.Logger
	sessionID string
}

// NewLogNotifier creates a notifier logging on behalf of a session
func NewLogNotifier(logger *zap.Logger, sessionID string) *LogNotifier {
	return &LogNotifier{logger: logger, sessionID: sessionID}
}

func (l *LogNotifier) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("session_id", l.sessionID),
		zap.String("level", string(n.Level)),
		zap.String("message", n.Message),
	}
	if n.Level == LevelError {
		l.logger.Warn("User notified of error", fields...)
		return
	}
	l.logger.Debug("User notified", fields...)
}
