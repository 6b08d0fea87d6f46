package offline

import "context"

// KV is the durable key-value blob storage the offline cache persists
// to. Implementations live in subpackages (sqlite for devices, memory
// for tests).
type KV interface {
	// Get returns the blob stored under key, reporting presence
	// separately from I/O failure.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites the blob stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
}
