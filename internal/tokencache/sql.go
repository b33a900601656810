package tokencache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexbotov/flickrapi/internal/domain"
)

// SQLStore keeps sealed tokens in the tokens table
type SQLStore struct {
	db     *sql.DB
	sealer *Sealer
}

// NewSQLStore creates a SQLStore on a migrated database
func NewSQLStore(db *sql.DB, sealer *Sealer) *SQLStore {
	return &SQLStore{db: db, sealer: sealer}
}

// Load implements Store
func (s *SQLStore) Load(ctx context.Context, apiKey string) (*domain.StoredToken, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT sealed FROM tokens WHERE api_key = $1", apiKey).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return open(s.sealer, sealed, apiKey)
}

// Save implements Store
func (s *SQLStore) Save(ctx context.Context, token *domain.StoredToken) error {
	sealed, err := seal(s.sealer, token)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tokens (api_key, sealed, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (api_key) DO UPDATE SET sealed = EXCLUDED.sealed, updated_at = EXCLUDED.updated_at
	`, token.APIKey, sealed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Forget implements Store
func (s *SQLStore) Forget(ctx context.Context, apiKey string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE api_key = $1", apiKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
