package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"gofinances/internal/amqp"
	"gofinances/internal/auth"
	"gofinances/internal/cache"
	"gofinances/internal/cli"
	apphttp "gofinances/internal/http"
	"gofinances/internal/log"
	"gofinances/internal/services"
	"gofinances/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	catalog := cli.LoadCatalog(logger, cfg.CategoryCatalogFile)
	store := cli.OpenBackend(ctx, logger, cfg)

	var (
		publisher  services.EventPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export events", log.FieldError, err.Error())
		} else {
			amqpClient, publisher = c, c
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	manager := cache.NewManager(logger)
	svc, err := cli.NewTransactionService(cfg, store, catalog, publisher, manager, logger)
	if err != nil {
		logger.Error("Failed to create transaction service", log.FieldError, err.Error())
		os.Exit(1)
	}
	manager.StartCleanup(time.Minute)

	readiness := []apphttp.ReadinessCheck{}
	if p, ok := store.Store.(storage.Pinger); ok {
		readiness = append(readiness, apphttp.ReadinessCheck{Name: "storage", Check: p.Ping})
	}
	if amqpClient != nil {
		readiness = append(readiness, apphttp.ReadinessCheck{
			Name:  "amqp",
			Check: func(context.Context) error { return amqpClient.Ping() },
		})
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		Service:           svc,
		Tokens:            auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn),
		Logger:            logger,
		RequestsPerMinute: cfg.RequestsPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
		Readiness:         readiness,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		manager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err.Error())
			}
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Storage close error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting gofinances server",
		"port", cfg.Port, log.FieldBackend, cfg.DataBackend, "location", cfg.Location)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
