package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/koios/shotframe/internal/amqp"
	"github.com/koios/shotframe/internal/capturer"
	"github.com/koios/shotframe/internal/config"
	"github.com/koios/shotframe/internal/handlers"
	"github.com/koios/shotframe/internal/redis"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	defaultTransport := cfg.Capture.Backend
	if defaultTransport != "amqp" {
		defaultTransport = "redis"
	}
	transport := flag.String("transport", defaultTransport, "queue to consume capture jobs from (redis or amqp)")
	flag.Parse()

	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	backend := capturer.NewWorkerBackend(cfg, logger)
	eventHandler := handlers.NewEventHandler(backend, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := startConsumer(ctx, *transport, cfg, eventHandler, logger)
	if err != nil {
		logger.Fatal("Failed to start consumer", zap.Error(err))
	}

	logger.Info("Capture worker started",
		zap.String("transport", *transport),
		zap.String("backend", backend.Name))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down capture worker...")
	cancel()
	stop()
	logger.Info("Capture worker stopped")
}

// startConsumer connects the chosen transport and starts consuming. The returned
// func stops the consumer and closes its connection.
func startConsumer(ctx context.Context, transport string, cfg *config.Config, handler *handlers.EventHandler, logger *zap.Logger) (func(), error) {
	switch transport {
	case "redis":
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		consumer := redis.NewConsumer(client, handler, logger)
		go func() {
			if err := consumer.Start(); err != nil {
				logger.Error("Redis consumer exited", zap.Error(err))
			}
		}()
		return func() {
			consumer.Stop()
			client.Close()
		}, nil

	case "amqp":
		conn, err := amqp.NewConnection(cfg.AMQP, logger)
		if err != nil {
			return nil, err
		}
		consumer := amqp.NewConsumer(conn, handler, logger)
		go func() {
			if err := consumer.Start(ctx, cfg.AMQP.QueueName); err != nil && err != context.Canceled {
				logger.Error("AMQP consumer exited", zap.Error(err))
			}
		}()
		return func() {
			conn.Close()
		}, nil

	default:
		return nil, fmt.Errorf("unknown transport: %s", transport)
	}
}
