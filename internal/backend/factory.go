package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finboard/internal/ledger"
	"finboard/internal/ledger/memory"
	"finboard/internal/storage"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	cats, labels := ledger.LoadTaxonomy(config.DataDirectory)
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, cats, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
		Ready:   repo.Ping,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewFromFiles(config.DataDirectory)

	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{
		Store: store,
		Ready: func(context.Context) error { return nil },
	}, nil
}
