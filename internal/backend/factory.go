package backend

import (
	"context"
	"fmt"

	"walletdata/internal/log"
	"walletdata/internal/offline/memory"
	"walletdata/internal/offline/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateKV implements Factory.CreateKV
func (f *DefaultFactory) CreateKV(_ context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteKV(config)
	case MemoryBackend:
		return f.createMemoryKV()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteKV(config Config) (*Result, error) {
	kv, err := sqlite.New(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite cache backend: %w", err)
	}

	f.logger.Info("Initialized SQLite cache backend", "db_path", config.DBPath)

	return &Result{
		KV:      kv,
		Cleanup: kv.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryKV() (*Result, error) {
	f.logger.Info("Initialized memory cache backend")

	return &Result{
		KV:      memory.New(),
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
