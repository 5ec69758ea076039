// Package cli provides the initialization steps shared by cmd/gofinances,
// cmd/gofinances-worker and cmd/gofinances-token.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gofinances/internal/aggregator"
	"gofinances/internal/backend"
	"gofinances/internal/cache"
	"gofinances/internal/config"
	"gofinances/internal/core"
	"gofinances/internal/log"
	"gofinances/internal/services"
)

// SetupLogger builds the process logger at the given level and installs it
// as the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// LoadCatalog returns the built-in catalog or the one in path.
func LoadCatalog(logger *log.Logger, path string) core.Catalog {
	if path == "" {
		return core.DefaultCatalog()
	}
	catalog, err := core.LoadCatalog(path)
	if err != nil {
		logger.Error("Failed to load category catalog", log.FieldError, err.Error(), "path", path)
		os.Exit(1)
	}
	logger.Info("Loaded category catalog", "path", path, log.FieldCount, len(catalog))
	return catalog
}

// OpenBackend creates the configured store and exits on failure.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend",
			log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// NewTransactionService wires the service with a resume cache registered
// on manager, so the manager's cleanup loop expires its entries.
func NewTransactionService(cfg *config.Config, res *backend.BackendResult, catalog core.Catalog, publisher services.EventPublisher, manager *cache.Manager, logger *log.Logger) (*services.TransactionService, error) {
	resume := cache.NewLRUCache[services.ResumeEntry](cfg.CacheSize, cfg.CacheTTL)
	if manager != nil {
		manager.Register(resume)
	}
	opts := services.Options{
		Store:       res.Store,
		Catalog:     catalog,
		Aggregator:  aggregator.New(cfg.LoadLocation()),
		Logger:      logger,
		Publisher:   publisher,
		ResumeCache: resume,
	}
	return services.NewTransactionService(opts)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. On
// signal, cleanup runs with a context bounded by timeout before the
// returned done channel closes.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ended.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
