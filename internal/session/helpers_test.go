package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// queueExecutor holds jobs until run is called
type queueExecutor struct {
	mu   sync.Mutex
	jobs []func()
}

func (q *queueExecutor) Execute(job func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *queueExecutor) run() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		job()
	}
}

func (q *queueExecutor) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type fakeCapturer struct {
	mu    sync.Mutex
	reply models.CaptureReply
	err   error
	calls []models.CaptureRequest
}

func (f *fakeCapturer) Capture(_ context.Context, req models.CaptureRequest) (models.CaptureReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func (f *fakeCapturer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// gatedCapturer blocks every capture until release is closed or ctx ends
type gatedCapturer struct {
	release chan struct{}
	started chan struct{}
}

func newGatedCapturer() *gatedCapturer {
	return &gatedCapturer{release: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (g *gatedCapturer) Capture(ctx context.Context, _ models.CaptureRequest) (models.CaptureReply, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return okReply(), nil
	case <-ctx.Done():
		return models.CaptureReply{}, ctx.Err()
	}
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteText(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

type fakeDownloader struct {
	imageURL string
	filename string
	ext      string
	err      error
}

func (f *fakeDownloader) Save(_ context.Context, imageURL, filename string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.imageURL = imageURL
	f.filename = filename
	if f.ext != "" {
		return "/tmp/" + strings.TrimSuffix(filename, ".png") + f.ext, nil
	}
	return "/tmp/" + filename, nil
}

type fakeOpener struct {
	opened []string
	err    error
}

func (f *fakeOpener) Open(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return f.err
}

type fakeProber struct {
	err error
}

func (f *fakeProber) Probe(context.Context, string) error {
	return f.err
}

type recordingObserver struct {
	mu        sync.Mutex
	succeeded []models.CaptureResult
	failed    []error
	deleted   []string
}

func (r *recordingObserver) CaptureSucceeded(_ context.Context, _ string, result models.CaptureResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded = append(r.succeeded, result)
}

func (r *recordingObserver) CaptureFailed(_ context.Context, _ string, _ models.CaptureRequest, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func (r *recordingObserver) SessionDeleted(_ context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, sessionID)
}

var errBackend = errors.New("backend exploded")

var fixedNow = time.UnixMilli(1700000000000)

func testServices(c Capturer) Services {
	return Services{
		Capturer: c,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return fixedNow },
	}
}

func okReply() models.CaptureReply {
	return models.CaptureReply{ImageURL: "https://cdn.example.com/shot.png", Width: 1440, Height: 900}
}
