package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/koios/shotframe/internal/artifact"
	"github.com/koios/shotframe/internal/capture"
	"github.com/koios/shotframe/internal/capturer"
	"github.com/koios/shotframe/internal/config"
	"github.com/koios/shotframe/internal/session"
	"github.com/koios/shotframe/internal/task"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

func main() {
	var (
		rawURL   = flag.String("url", "", "page to capture")
		preset   = flag.String("preset", models.DefaultPreset().ID, "device preset id (desktop-large, desktop, tablet, mobile, custom)")
		width    = flag.Int("width", capture.DefaultCustomWidth, "viewport width for the custom preset")
		height   = flag.Int("height", capture.DefaultCustomHeight, "viewport height for the custom preset")
		copyURL  = flag.Bool("copy", false, "copy the image URL to the clipboard")
		download = flag.Bool("download", false, "save the screenshot")
		open     = flag.Bool("open", false, "open the captured page in the browser")
		timeout  = flag.Duration("timeout", 2*time.Minute, "give up after this long")
		verbose  = flag.Bool("v", false, "log to stderr")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}
	defer logger.Sync()

	if err := run(cfg, logger, options{
		url:      *rawURL,
		preset:   *preset,
		width:    *width,
		height:   *height,
		copy:     *copyURL,
		download: *download,
		open:     *open,
		timeout:  *timeout,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type options struct {
	url      string
	preset   string
	width    int
	height   int
	copy     bool
	download bool
	open     bool
	timeout  time.Duration
}

func run(cfg *config.Config, logger *zap.Logger, opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	backend, err := capturer.NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc := session.Services{
		Context:   ctx,
		Capturer:  backend,
		Executor:  task.Inline{},
		Clipboard: artifact.SystemClipboard{},
		Opener:    artifact.BrowserOpener{},
		Logger:    logger,
	}
	if opts.download {
		fetcher, err := artifact.NewFetcher(cfg.Server.PublicBaseURL, cfg.Capture.HTTPTimeout)
		if err != nil {
			return err
		}
		sink, err := artifact.NewLocalSink(cfg.Storage.LocalDir)
		if err != nil {
			return err
		}
		svc.Downloader = artifact.NewDownloader(fetcher, sink, logger)
	}

	s := session.New("cli", svc)
	defer s.Close()
	defer printNotifications(s)

	s.SetURL(opts.url)
	if err := s.SelectPreset(opts.preset); err != nil {
		return err
	}
	if s.Form().Preset.IsCustom() {
		s.SetCustomDimensions(opts.width, opts.height)
	}

	fut, err := s.Submit()
	if err != nil {
		var verrs capture.ValidationErrors
		if errors.As(err, &verrs) {
			for _, v := range verrs {
				fmt.Fprintf(os.Stderr, "%s: %s\n", v.Field, v.Message)
			}
		}
		return err
	}

	result, err := fut.Wait(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", result.ImageURL)
	fmt.Fprintf(os.Stderr, "captured %s at %dx%d\n", result.SourceURL, result.Width, result.Height)

	if opts.copy {
		if fut, err := s.CopyImageReference(ctx); err == nil {
			fut.Wait(ctx)
		}
	}
	if opts.download {
		if fut, err := s.Download(ctx); err == nil {
			if location, err := fut.Wait(ctx); err == nil {
				fmt.Fprintf(os.Stderr, "saved to %s\n", location)
			}
		}
	}
	if opts.open {
		if _, err := s.OpenSource(ctx); err != nil {
			return err
		}
	}
	return nil
}

// printNotifications writes the session's user-facing messages to stderr
func printNotifications(s *session.Session) {
	for _, n := range s.Notifications() {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
	}
}
