package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"gofinances/internal/amqp"
	"gofinances/internal/cache"
	"gofinances/internal/cli"
	"gofinances/internal/log"
	"gofinances/internal/sheets/google"
	"gofinances/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting gofinances-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed",
			log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Worker is reading from the memory backend; no transactions written by the server will be visible")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	catalog := cli.LoadCatalog(logger, cfg.CategoryCatalogFile)
	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Cleanup()

	manager := cache.NewManager(logger)
	svc, err := cli.NewTransactionService(cfg, store, catalog, nil, manager, logger)
	if err != nil {
		logger.Error("Failed to create transaction service", log.FieldError, err.Error())
		os.Exit(1)
	}

	exporter, err := google.NewClient(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Location:        cfg.LoadLocation(),
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewExportWorker(svc, exporter, catalog, cfg.ExportTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeTransactionCreated(gctx, cfg.WorkerConcurrency, w.HandleTransactionCreated)
	})
	g.Go(func() error {
		manager.StartCleanup(time.Minute)
		<-gctx.Done()
		manager.Stop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
