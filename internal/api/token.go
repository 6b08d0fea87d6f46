package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore is the durable home of the access token, standing in for
// the platform secure store.
type TokenStore interface {
	// Token returns the stored access token, empty when none exists.
	Token(ctx context.Context) (string, error)

	// Save persists the access token.
	Save(ctx context.Context, token string) error

	// Delete removes the stored token. Missing token is not an error.
	Delete(ctx context.Context) error
}

// FileTokenStore keeps the token in a mode-0600 file.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Token(_ context.Context) (string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *FileTokenStore) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Delete(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
