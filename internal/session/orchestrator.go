package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/koios/shotframe/internal/capture"
	"github.com/koios/shotframe/internal/task"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// Orchestrator drives the capture lifecycle of one session. At most one
// capture is in flight at a time and results of superseded attempts are dropped.
type Orchestrator struct {
	id       string
	svc      Services
	notifier Notifier
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   RequestState
	attempt uint64
	closed  bool
}

// NewOrchestrator creates an orchestrator in the Idle state. Captures run
// under a context derived from svc.Context.
func NewOrchestrator(id string, svc Services, notifier Notifier) *Orchestrator {
	svc = svc.withDefaults()
	ctx, cancel := context.WithCancel(svc.Context)
	return &Orchestrator{
		id:       id,
		svc:      svc,
		notifier: notifier,
		logger:   svc.Logger.With(zap.String("session_id", id)),
		ctx:      ctx,
		cancel:   cancel,
		state:    Idle{},
	}
}

// State returns the current request state
func (o *Orchestrator) State() RequestState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Artifact returns the consumer for the current result, or ErrNoResult
// unless the state is Succeeded
func (o *Orchestrator) Artifact() (*Artifact, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.state.(Succeeded)
	if !ok {
		return nil, ErrNoResult
	}
	return s.Artifact, nil
}

// Submit validates the form and starts a capture. Invalid input leaves the
// state untouched and returns capture.ValidationErrors. While a capture is
// loading, Submit returns ErrCaptureInFlight and does nothing.
func (o *Orchestrator) Submit(form capture.Form) (*task.Future[models.CaptureResult], error) {
	o.mu.Lock()

	if o.closed {
		o.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if _, loading := o.state.(Loading); loading {
		o.mu.Unlock()
		o.logger.Debug("Ignoring submit while capture is in flight")
		return nil, ErrCaptureInFlight
	}

	previous := o.state
	o.state = Validating{Previous: previous}

	req, err := form.Request()
	if err != nil {
		o.state = previous
		o.mu.Unlock()
		o.logger.Debug("Rejected invalid capture form", zap.Error(err))
		o.notify(LevelError, msgInvalidForm)
		return nil, err
	}

	o.attempt++
	attempt := o.attempt
	o.state = Loading{Request: req, Attempt: attempt, StartedAt: o.svc.Now()}
	o.mu.Unlock()

	o.logger.Info("Capture started",
		zap.String("url", req.URL),
		zap.Int("width", req.Width),
		zap.Int("height", req.Height),
		zap.Uint64("attempt", attempt))

	return task.Go(o.svc.Executor, o.ctx, func(ctx context.Context) (models.CaptureResult, error) {
		return o.capture(ctx, req)
	}, func(result models.CaptureResult, err error) {
		o.complete(attempt, req, result, err)
	}), nil
}

func (o *Orchestrator) capture(ctx context.Context, req models.CaptureRequest) (models.CaptureResult, error) {
	if o.svc.Capturer == nil {
		return models.CaptureResult{}, &CaptureFailure{Request: req, Err: errors.New("no capture backend configured")}
	}

	reply, err := o.svc.Capturer.Capture(ctx, req)
	if err != nil {
		return models.CaptureResult{}, &CaptureFailure{Request: req, Err: err}
	}
	if strings.TrimSpace(reply.ImageURL) == "" {
		return models.CaptureResult{}, &CaptureFailure{Request: req, Err: ErrEmptyReply}
	}

	width, height := reply.Width, reply.Height
	if width <= 0 || height <= 0 {
		width, height = req.Width, req.Height
	}

	return models.CaptureResult{
		ID:        uuid.NewString(),
		ImageURL:  reply.ImageURL,
		Width:     width,
		Height:    height,
		SourceURL: req.URL,
		CreatedAt: o.svc.Now(),
	}, nil
}

func (o *Orchestrator) complete(attempt uint64, req models.CaptureRequest, result models.CaptureResult, err error) {
	o.mu.Lock()

	loading, ok := o.state.(Loading)
	if o.closed || !ok || loading.Attempt != attempt {
		o.mu.Unlock()
		o.logger.Debug("Dropping stale capture completion", zap.Uint64("attempt", attempt))
		return
	}

	// a job the executor refused never reached the capturer
	var failure *CaptureFailure
	if err != nil && !errors.As(err, &failure) {
		err = &CaptureFailure{Request: req, Err: err}
	}

	var artifact *Artifact
	if err != nil {
		o.state = Failed{Request: req, Reason: err}
	} else {
		artifact = newArtifact(result, o.svc, o.notifier, o.logger)
		o.state = Succeeded{Result: result, Artifact: artifact}
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("Capture failed", zap.String("url", req.URL), zap.Error(err))
		o.notify(LevelError, msgCaptureFailed)
		for _, obs := range o.svc.Observers {
			obs.CaptureFailed(o.ctx, o.id, req, err)
		}
		return
	}

	o.logger.Info("Capture succeeded",
		zap.String("result_id", result.ID),
		zap.String("image_url", result.ImageURL))
	o.notify(LevelSuccess, msgCaptureSuccess)
	for _, obs := range o.svc.Observers {
		obs.CaptureSucceeded(o.ctx, o.id, result)
	}

	if o.svc.Prober != nil {
		artifact.probe(o.ctx)
	}
}

// Close cancels any in-flight capture. Later completions are dropped and
// Submit returns ErrSessionClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()
}

func (o *Orchestrator) notify(level Level, message string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(Notification{Level: level, Message: message, At: o.svc.Now()})
}
