package tokencache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexbotov/flickrapi/internal/domain"
)

// FileStore keeps each token in <dir>/<api key>/auth.token
type FileStore struct {
	dir    string
	sealer *Sealer
}

// NewFileStore creates a FileStore rooted at dir
func NewFileStore(dir string, sealer *Sealer) *FileStore {
	return &FileStore{dir: dir, sealer: sealer}
}

func (s *FileStore) path(apiKey string) (string, error) {
	if apiKey == "" || strings.ContainsAny(apiKey, `/\`) || apiKey == "." || apiKey == ".." {
		return "", fmt.Errorf("invalid API key %q", apiKey)
	}
	return filepath.Join(s.dir, apiKey, "auth.token"), nil
}

// Load implements Store
func (s *FileStore) Load(_ context.Context, apiKey string) (*domain.StoredToken, error) {
	p, err := s.path(apiKey)
	if err != nil {
		return nil, err
	}
	sealed, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	return open(s.sealer, sealed, apiKey)
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, token *domain.StoredToken) error {
	p, err := s.path(token.APIKey)
	if err != nil {
		return err
	}
	sealed, err := seal(s.sealer, token)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".auth.token-*")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Forget implements Store
func (s *FileStore) Forget(_ context.Context, apiKey string) error {
	p, err := s.path(apiKey)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}
