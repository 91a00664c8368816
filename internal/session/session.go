package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/koios/shotframe/internal/capture"
	"github.com/koios/shotframe/internal/task"
	"github.com/koios/shotframe/pkg/models"
)

// Session is one user's capture workspace: the editable form, the capture
// lifecycle and the pending notifications.
type Session struct {
	ID string

	mu      sync.Mutex
	form    capture.Form
	touched time.Time

	orch  *Orchestrator
	inbox *Inbox
	now   func() time.Time
}

// New creates a session with the default form in the Idle state
func New(id string, svc Services) *Session {
	svc = svc.withDefaults()
	inbox := NewInbox(svc.NotificationLimit)
	notifier := Notifiers{inbox, NewLogNotifier(svc.Logger, id)}
	return &Session{
		ID:      id,
		form:    capture.NewForm(),
		touched: svc.Now(),
		orch:    NewOrchestrator(id, svc, notifier),
		inbox:   inbox,
		now:     svc.Now,
	}
}

// Form returns a copy of the current form
func (s *Session) Form() capture.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetURL replaces the URL field
func (s *Session) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.URL = url
	s.touched = s.now()
}

// SelectPreset switches to the preset with the given id
func (s *Session) SelectPreset(id string) error {
	p, ok := models.PresetByID(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.SelectPreset(p)
	s.touched = s.now()
	return nil
}

// SetCustomDimensions replaces the custom width and height. Values are not
// checked here; an out-of-range size only makes the form invalid.
func (s *Session) SetCustomDimensions(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.CustomWidth = width
	s.form.CustomHeight = height
	s.touched = s.now()
}

// Submit starts a capture of the current form
func (s *Session) Submit() (*task.Future[models.CaptureResult], error) {
	s.mu.Lock()
	form := s.form
	s.touched = s.now()
	s.mu.Unlock()

	return s.orch.Submit(form)
}

// State returns the current request state
func (s *Session) State() RequestState {
	return s.orch.State()
}

// Artifact returns the consumer of the current result
func (s *Session) Artifact() (*Artifact, error) {
	return s.orch.Artifact()
}

// CopyImageReference copies the current result's image URL to the clipboard
func (s *Session) CopyImageReference(ctx context.Context) (*task.Future[string], error) {
	a, err := s.Artifact()
	if err != nil {
		return nil, err
	}
	s.touch()
	return a.CopyImageReference(ctx), nil
}

// Download saves the current result's image
func (s *Session) Download(ctx context.Context) (*task.Future[string], error) {
	a, err := s.Artifact()
	if err != nil {
		return nil, err
	}
	s.touch()
	return a.Download(ctx), nil
}

// OpenSource opens the URL the current result was captured from
func (s *Session) OpenSource(ctx context.Context) (string, error) {
	a, err := s.Artifact()
	if err != nil {
		return "", err
	}
	s.touch()
	return a.OpenSource(ctx)
}

// Notifications drains pending notifications
func (s *Session) Notifications() []Notification {
	return s.inbox.Drain()
}

// LastActive returns when the session was last used
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func (s *Session) touch() {
	s.mu.Lock()
	s.touched = s.now()
	s.mu.Unlock()
}

// Close cancels any in-flight capture
func (s *Session) Close() {
	s.orch.Close()
}

// FormView is the form as presented, including derived values
type FormView struct {
	URL          string                   `json:"url"`
	PresetID     string                   `json:"preset_id"`
	CustomWidth  int                      `json:"custom_width"`
	CustomHeight int                      `json:"custom_height"`
	Width        int                      `json:"width"`
	Height       int                      `json:"height"`
	Valid        bool                     `json:"valid"`
	Errors       capture.ValidationErrors `json:"errors,omitempty"`
}

// Snapshot is a read-only view of a session for the presentation layer
type Snapshot struct {
	SessionID      string                 `json:"session_id"`
	Form           FormView               `json:"form"`
	Phase          Phase                  `json:"phase"`
	SubmitDisabled bool                   `json:"submit_disabled"`
	Request        *models.CaptureRequest `json:"request,omitempty"`
	Result         *models.CaptureResult  `json:"result,omitempty"`
	ImageState     *ImageLoadState        `json:"image_state,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// Snapshot captures the current form and request state
func (s *Session) Snapshot() Snapshot {
	form := s.Form()
	state := s.State()

	width, height := form.Dimensions()
	errs := form.Validate()
	snap := Snapshot{
		SessionID: s.ID,
		Form: FormView{
			URL:          form.URL,
			PresetID:     form.Preset.ID,
			CustomWidth:  form.CustomWidth,
			CustomHeight: form.CustomHeight,
			Width:        width,
			Height:       height,
			Valid:        len(errs) == 0,
			Errors:       errs,
		},
		Phase: state.Phase(),
	}

	switch st := state.(type) {
	case Loading:
		req := st.Request
		snap.Request = &req
		snap.SubmitDisabled = true
	case Succeeded:
		result := st.Result
		load := st.Artifact.LoadState()
		snap.Result = &result
		snap.ImageState = &load
	case Failed:
		req := st.Request
		snap.Request = &req
		snap.Error = st.Reason.Error()
	}
	if !snap.Form.Valid {
		snap.SubmitDisabled = true
	}
	return snap
}
