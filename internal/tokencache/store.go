// Package tokencache keeps Flickr auth tokens between runs
package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexbotov/flickrapi/internal/domain"
)

// ErrNotFound is returned when no token is stored for an API key
var ErrNotFound = errors.New("token not found")

// Store persists one token per API key
type Store interface {
	Load(ctx context.Context, apiKey string) (*domain.StoredToken, error)
	Save(ctx context.Context, token *domain.StoredToken) error
	Forget(ctx context.Context, apiKey string) error
}

func seal(s *Sealer, token *domain.StoredToken) ([]byte, error) {
	data, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token: %w", err)
	}
	return s.Seal(data)
}

func open(s *Sealer, sealed []byte, apiKey string) (*domain.StoredToken, error) {
	data, err := s.Open(sealed)
	if err != nil {
		return nil, err
	}
	var token domain.StoredToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if token.APIKey != apiKey {
		return nil, fmt.Errorf("token belongs to API key %q", token.APIKey)
	}
	return &token, nil
}
