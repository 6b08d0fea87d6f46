// Package cache provides the bounded in-process caches used for
// memoization and short-lived token storage.
package cache

// Cache is the generic read/write surface shared by cache
// implementations.
type Cache[T any] interface {
	// Get retrieves a value from the cache.
	Get(key string) (T, bool)

	// Set stores a value in the cache.
	Set(key string, data T)

	// Delete removes a key from the cache.
	Delete(key string)

	// Purge drops every entry.
	Purge()

	// Size returns the current number of entries.
	Size() int
}

var _ Cache[int] = (*LRU[int])(nil)
