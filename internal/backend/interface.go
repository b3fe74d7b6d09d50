package backend

import (
	"context"

	"finboard/internal/ledger"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult carries the ledger store and its optional cleanup and
// readiness probe.
type BackendResult struct {
	Store   ledger.Store
	Cleanup CleanupFunc
	Ready   func(ctx context.Context) error
}

// Factory creates ledger stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Seed files for the category and label taxonomy, shared by both backends.
	DataDirectory string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
