// Package sqlite backs the offline cache with a durable SQLite
// key-value table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type KV struct {
	db *sql.DB
}

func New(dbPath string) (*KV, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &KV{db: db}, nil
}

func (k *KV) Close() error {
	if k.db != nil {
		return k.db.Close()
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := k.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	return value, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

func (k *KV) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	_, err := k.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("remove cache entries: %w", err)
	}
	return nil
}
