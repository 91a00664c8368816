package session

import (
	"errors"
	"fmt"

	"github.com/koios/shotframe/pkg/models"
)

var (
	ErrCaptureInFlight = errors.New("a capture is already in progress")
	ErrNoResult        = errors.New("no capture result available")
	ErrEmptyReply      = errors.New("capture returned no artifact reference")
	ErrArtifactLoad    = errors.New("artifact failed to load")
	ErrClipboard       = errors.New("clipboard write failed")
	ErrDownload        = errors.New("download failed")
	ErrUnknownPreset   = errors.New("unknown device preset")
	ErrSessionClosed   = errors.New("session closed")
)

// CaptureFailure wraps whatever the capture operation reported for a request
type CaptureFailure struct {
	Request models.CaptureRequest
	Err     error
}

func (e *CaptureFailure) Error() string {
	return fmt.Sprintf("capture of %s at %dx%d failed: %v", e.Request.URL, e.Request.Width, e.Request.Height, e.Err)
}

func (e *CaptureFailure) Unwrap() error {
	return e.Err
}
