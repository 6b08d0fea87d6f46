package backend

import (
	"context"

	"walletdata/internal/offline"
)

// Type selects the KV backend the offline cache persists to.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the KV instance and optional cleanup function
type Result struct {
	KV      offline.KV
	Cleanup CleanupFunc
}

// Factory creates KV backends based on configuration
type Factory interface {
	CreateKV(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	DBPath string
}
