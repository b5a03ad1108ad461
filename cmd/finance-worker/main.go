package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/config"
	"finance/internal/log"
	"finance/internal/services"
	"finance/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	// The worker reads what the server wrote, so it needs the shared database.
	if cfg.DataBackend != config.BackendSQLite {
		logger.Error("finance-worker requires DATA_BACKEND=sqlite",
			"backend", cfg.DataBackend,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	exporter, err := factory.CreateExporter(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err.Error())
		os.Exit(1)
	}

	consumer, err := factory.CreatePublisher(cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	svc := services.NewTransactionService(result.Store, logger)
	syncWorker := worker.NewSyncWorker(svc, exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := syncWorker.Stop(ctx); err != nil {
			logger.Warn("Worker stop error", log.FieldError, err.Error())
		}
		if consumer != nil {
			_ = consumer.Close()
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Store close error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting finance-worker",
		"sync_interval", cfg.SyncInterval,
		"amqp_enabled", consumer != nil,
		log.FieldOperation, log.OpStartup)

	// Startup reconcile plus periodic catch-up for missed messages.
	if err := syncWorker.Start(ctx, cfg.SyncInterval); err != nil {
		logger.Error("Failed to start reconcile loop", log.FieldError, err.Error())
		os.Exit(1)
	}

	if consumer != nil {
		go func() {
			err := consumer.ConsumeTransactionCreated(ctx, syncWorker.HandleTransactionCreated)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption stopped", log.FieldError, err.Error())
			}
		}()
	} else {
		logger.Info("AMQP not configured, relying on the reconcile loop only")
	}

	cli.WaitForShutdown(ctx, done)
}
