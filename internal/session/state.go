package session

import (
	"fmt"
	"time"

	"github.com/koios/shotframe/pkg/models"
)

// Phase names a RequestState variant
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseLoading    Phase = "loading"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// RequestState is the capture lifecycle of a session. The variants are
// Idle, Validating, Loading, Succeeded and Failed; no other type implements it.
type RequestState interface {
	Phase() Phase
	requestState()
}

// Idle is the initial state; nothing has been submitted yet
type Idle struct{}

// Validating is held only while a submit is checked under the session lock
type Validating struct {
	Previous RequestState
}

// Loading means a capture request is in flight
type Loading struct {
	Request   models.CaptureRequest
	Attempt   uint64
	StartedAt time.Time
}

// Succeeded holds the latest result and the consumer governing its artifact
type Succeeded struct {
	Result   models.CaptureResult
	Artifact *Artifact
}

// Failed records why the last capture attempt failed
type Failed struct {
	Request models.CaptureRequest
	Reason  error
}

func (Idle) Phase() Phase       { return PhaseIdle }
func (Validating) Phase() Phase { return PhaseValidating }
func (Loading) Phase() Phase    { return PhaseLoading }
func (Succeeded) Phase() Phase  { return PhaseSucceeded }
func (Failed) Phase() Phase     { return PhaseFailed }

func (Idle) requestState()       {}
func (Validating) requestState() {}
func (Loading) requestState()    {}
func (Succeeded) requestState()  {}
func (Failed) requestState()     {}

// ImageLoadState tracks whether the artifact of a result has rendered
type ImageLoadState int

const (
	ImagePending ImageLoadState = iota
	ImageLoaded
	ImageErrored
)

func (s ImageLoadState) String() string {
	switch s {
	case ImagePending:
		return "pending"
	case ImageLoaded:
		return "loaded"
	case ImageErrored:
		return "errored"
	default:
		return fmt.Sprintf("ImageLoadState(%d)", int(s))
	}
}

// MarshalText renders the state as its lowercase name
func (s ImageLoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText
func (s *ImageLoadState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = ImagePending
	case "loaded":
		*s = ImageLoaded
	case "errored":
		*s = ImageErrored
	default:
		return fmt.Errorf("unknown image load state %q", text)
	}
	return nil
}
