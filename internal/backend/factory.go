package backend

import (
	"context"
	"fmt"

	"gofinances/internal/log"
	"gofinances/internal/storage"
	"gofinances/internal/storage/file"
	"gofinances/internal/storage/memory"
	"gofinances/internal/storage/postgres"
	"gofinances/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
		attrs []any
	)
	switch config.Type {
	case MemoryBackend:
		store = memory.New()
	case FileBackend:
		store, err = file.Open(config.DataFilePath)
		attrs = append(attrs, "path", config.DataFilePath)
	case SQLiteBackend:
		store, err = sqlite.Open(config.SQLiteDBPath)
		attrs = append(attrs, "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		store, err = postgres.Open(ctx, config.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	f.logger.InfoContext(ctx, "Initialized storage backend",
		append([]any{log.FieldBackend, config.Type.String()}, attrs...)...)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
