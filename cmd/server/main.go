package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koios/shotframe/internal/artifact"
	"github.com/koios/shotframe/internal/capturer"
	"github.com/koios/shotframe/internal/config"
	"github.com/koios/shotframe/internal/handlers"
	"github.com/koios/shotframe/internal/redis"
	"github.com/koios/shotframe/internal/session"
	"github.com/koios/shotframe/internal/task"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := capturer.NewBackend(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize capture backend", zap.Error(err))
	}
	defer backend.Close()

	fetcher, err := artifact.NewFetcher(cfg.Server.PublicBaseURL, cfg.Capture.HTTPTimeout)
	if err != nil {
		logger.Fatal("Failed to initialize artifact fetcher", zap.Error(err))
	}

	sink, err := newSink(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize download storage", zap.Error(err))
	}

	pool := task.NewPool(cfg.Worker.Count, logger)
	pool.Start()

	svc := session.Services{
		Context:           ctx,
		Capturer:          backend,
		Executor:          pool,
		Clipboard:         &artifact.MemoryClipboard{},
		Downloader:        artifact.NewDownloader(fetcher, sink, logger),
		Logger:            logger,
		NotificationLimit: cfg.Session.NotificationLimit,
	}
	if cfg.Session.ProbeArtifacts {
		svc.Prober = fetcher
	}

	var history handlers.HistoryLister
	if cfg.Redis.HistoryEnabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect capture history", zap.Error(err))
		}
		defer client.Close()

		archive := redis.NewHistory(client, cfg.Redis.HistoryLimit, cfg.Redis.HistoryTTL, logger)
		svc.Observers = append(svc.Observers, archive)
		history = archive
	}

	store := session.NewStore(svc, cfg.Session.TTL)
	go store.Run(ctx, cfg.Session.SweepInterval)

	mux := http.NewServeMux()
	handlers.NewSessionHandler(store, history, logger).RegisterRoutes(mux)
	handlers.NewPlaceholderHandler(logger).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("Server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("capture_backend", backend.Name),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("history", cfg.Redis.HistoryEnabled))

	// Wait for interrupt signal or a fatal server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Cancel in-flight captures, then drain the pool
	cancel()
	store.Close()
	pool.Stop()

	logger.Info("Server shutdown complete")
}

// newLogger builds a production logger at the given level
func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

// newSink selects where downloaded artifacts go
func newSink(ctx context.Context, cfg *config.Config, logger *zap.Logger) (artifact.Sink, error) {
	if cfg.Storage.Backend == "minio" {
		return artifact.NewMinioSink(ctx, cfg.Storage, logger)
	}
	return artifact.NewLocalSink(cfg.Storage.LocalDir)
}
