// Package memory is an in-process KV backend, used by tests and by the
// memory cache backend.
package memory

import (
	"context"
	"sync"
)

type KV struct {
	mu   sync.Mutex
	data map[string][]byte

	// Err, when set, makes every operation fail with it. Tests use this
	// to exercise the store's silent-failure paths.
	Err error
}

func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (k *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return nil, false, k.Err
	}
	blob, ok := k.data[key]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), blob...)
	return out, true, nil
}

func (k *KV) Set(_ context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return k.Err
	}
	k.data[key] = append([]byte(nil), value...)
	return nil
}

func (k *KV) Remove(_ context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return k.Err
	}
	for _, key := range keys {
		delete(k.data, key)
	}
	return nil
}

// Len returns the number of stored keys.
func (k *KV) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.data)
}
