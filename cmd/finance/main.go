package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finance/internal/backend"
	"finance/internal/cache"
	"finance/internal/cli"
	apphttp "finance/internal/http"
	"finance/internal/log"
	"finance/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	factory := backend.NewFactory(logger)
	result, err := factory.CreateStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeDatabase,
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	aggregates := cache.NewAggregateCache(cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(aggregates)
	cacheManager.StartCleanup(10 * time.Minute)

	opts := []services.Option{services.WithCache(aggregates)}

	// Publishing is optional: without a broker the worker's reconcile loop
	// still exports every transaction.
	publisher, err := factory.CreatePublisher(cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, continuing without transaction events", log.FieldError, err.Error())
	}
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}

	svc := services.NewTransactionService(result.Store, logger, opts...)
	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cacheManager.Stop()
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err.Error())
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Store close error", log.FieldError, err.Error())
		}
	})

	go func() {
		logger.Info("Starting finance server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", publisher != nil,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
