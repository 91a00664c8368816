package session

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/koios/shotframe/internal/task"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// Artifact governs how one capture result is surfaced: whether its image has
// loaded, and the copy, download and open actions on it. A new Artifact is
// created for every successful capture.
type Artifact struct {
	mu       sync.Mutex
	result   models.CaptureResult
	load     ImageLoadState
	svc      Services
	notifier Notifier
	logger   *zap.Logger
}

func newArtifact(result models.CaptureResult, svc Services, notifier Notifier, logger *zap.Logger) *Artifact {
	return &Artifact{
		result:   result,
		load:     ImagePending,
		svc:      svc,
		notifier: notifier,
		logger:   logger.With(zap.String("result_id", result.ID)),
	}
}

// Result returns the capture result this artifact belongs to
func (a *Artifact) Result() models.CaptureResult {
	return a.result
}

// LoadState returns the current image load state
func (a *Artifact) LoadState() ImageLoadState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load
}

// OnArtifactLoaded marks the image as rendered. Returns false if the state was already settled.
func (a *Artifact) OnArtifactLoaded() bool {
	return a.settle(ImageLoaded)
}

// OnArtifactLoadFailed marks the image as unloadable. Returns false if the state was already settled.
func (a *Artifact) OnArtifactLoadFailed() bool {
	return a.settle(ImageErrored)
}

func (a *Artifact) settle(to ImageLoadState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.load != ImagePending {
		a.logger.Debug("Ignoring artifact load event",
			zap.Stringer("state", a.load),
			zap.Stringer("event", to))
		return false
	}
	a.load = to
	a.logger.Debug("Artifact load state settled", zap.Stringer("state", to))
	return true
}

// CopyImageReference writes the image URL to the clipboard. The future
// resolves to the copied text; failures are reported through notifications.
func (a *Artifact) CopyImageReference(ctx context.Context) *task.Future[string] {
	text := a.result.ImageURL

	if a.svc.Clipboard == nil {
		a.notify(LevelError, msgCopyFailed)
		return task.Resolved("", fmt.Errorf("%w: no clipboard available", ErrClipboard))
	}

	return task.Go(a.svc.Executor, ctx, func(ctx context.Context) (string, error) {
		if err := a.svc.Clipboard.WriteText(ctx, text); err != nil {
			return "", fmt.Errorf("%w: %v", ErrClipboard, err)
		}
		return text, nil
	}, func(_ string, err error) {
		if err != nil {
			a.logger.Warn("Failed to copy image URL", zap.Error(err))
			a.notify(LevelError, msgCopyFailed)
			return
		}
		a.notify(LevelSuccess, msgCopied)
	})
}

// Download saves the artifact as screenshot-<unix millis>.png. The
// downloader may change the extension; the future resolves to the location
// it reports.
func (a *Artifact) Download(ctx context.Context) *task.Future[string] {
	filename := DownloadFilename(a.svc.Now())

	if a.svc.Downloader == nil {
		a.notify(LevelError, msgDownloadFailed)
		return task.Resolved("", fmt.Errorf("%w: no download target configured", ErrDownload))
	}

	return task.Go(a.svc.Executor, ctx, func(ctx context.Context) (string, error) {
		location, err := a.svc.Downloader.Save(ctx, a.result.ImageURL, filename)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDownload, err)
		}
		return location, nil
	}, func(location string, err error) {
		if err != nil {
			a.logger.Warn("Failed to download artifact", zap.Error(err))
			a.notify(LevelError, msgDownloadFailed)
			return
		}
		a.logger.Info("Artifact downloaded",
			zap.String("filename", filename),
			zap.String("location", location))
		a.notify(LevelSuccess, fmt.Sprintf("Screenshot saved as %s", savedName(location, filename)))
	})
}

// OpenSource opens the normalized URL that was captured and returns it.
// Nothing about the session changes.
func (a *Artifact) OpenSource(ctx context.Context) (string, error) {
	url := a.result.SourceURL
	if a.svc.Opener == nil {
		return url, nil
	}
	if err := a.svc.Opener.Open(ctx, url); err != nil {
		a.logger.Warn("Failed to open source URL", zap.String("url", url), zap.Error(err))
		a.notify(LevelError, fmt.Sprintf("Could not open %s", url))
		return url, fmt.Errorf("failed to open %s: %w", url, err)
	}
	return url, nil
}

// probe asks the prober whether the image loads and settles the state with
// the answer. It runs on the caller's goroutine.
func (a *Artifact) probe(ctx context.Context) {
	if err := a.svc.Prober.Probe(ctx, a.result.ImageURL); err != nil {
		a.logger.Warn("Artifact probe failed", zap.Error(fmt.Errorf("%w: %v", ErrArtifactLoad, err)))
		a.OnArtifactLoadFailed()
		return
	}
	a.OnArtifactLoaded()
}

func (a *Artifact) notify(level Level, message string) {
	if a.notifier == nil {
		return
	}
	a.notifier.Notify(Notification{Level: level, Message: message, At: a.svc.Now()})
}

// DownloadFilename is the suggested name for an artifact saved at t
func DownloadFilename(t time.Time) string {
	return fmt.Sprintf("screenshot-%d.png", t.UnixMilli())
}

// savedName is the file name part of a location reported by a downloader
func savedName(location, fallback string) string {
	name := path.Base(filepath.ToSlash(location))
	if location == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}
