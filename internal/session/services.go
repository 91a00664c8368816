package session

import (
	"context"
	"time"

	"github.com/koios/shotframe/internal/task"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// Capturer performs the external capture operation
type Capturer interface {
	Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureReply, error)
}

// Clipboard receives copied text
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Downloader saves the artifact at imageURL under filename and returns where it went
type Downloader interface {
	Save(ctx context.Context, imageURL, filename string) (string, error)
}

// Opener opens a URL in a new browsing context
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Prober checks that an artifact can actually be loaded
type Prober interface {
	Probe(ctx context.Context, imageURL string) error
}

// CaptureObserver is told about finished captures
type CaptureObserver interface {
	CaptureSucceeded(ctx context.Context, sessionID string, result models.CaptureResult)
	CaptureFailed(ctx context.Context, sessionID string, req models.CaptureRequest, err error)
}

// SessionObserver is told when a session is deleted on request. Observers
// in Services.Observers may implement it alongside CaptureObserver.
type SessionObserver interface {
	SessionDeleted(ctx context.Context, sessionID string)
}

// Services are the collaborators shared by every session. Capturer and
// Executor are required; the rest may be nil, in which case the matching
// action reports failure through the notification channel. Context bounds
// every capture started by a session; it defaults to context.Background().
type Services struct {
	Context           context.Context
	Capturer          Capturer
	Executor          task.Executor
	Clipboard         Clipboard
	Downloader        Downloader
	Opener            Opener
	Prober            Prober
	Observers         []CaptureObserver
	Logger            *zap.Logger
	Now               func() time.Time
	NotificationLimit int
}

func (s Services) withDefaults() Services {
	if s.Context == nil {
		s.Context = context.Background()
	}
	if s.Executor == nil {
		s.Executor = task.Inline{}
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}
