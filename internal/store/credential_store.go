package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

// CredentialStore handles database operations for API credentials
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore creates a new CredentialStore
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// FirstAvailable returns the first credential still marked available, or nil
// if the pool is exhausted
func (s *CredentialStore) FirstAvailable(ctx context.Context) (*model.Credential, error) {
	query := `
		SELECT id, key, is_available, retired_at
		FROM api_credentials
		WHERE is_available = TRUE
		ORDER BY id
		LIMIT 1
	`

	var c model.Credential
	err := s.db.QueryRowContext(ctx, query).Scan(
		&c.ID,
		&c.Key,
		&c.IsAvailable,
		&c.RetiredAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get available credential: %w", err)
	}

	return &c, nil
}

// Retire marks a credential unavailable and stamps the retirement time.
// The write is immediate so a crash afterwards never reuses a dead key.
func (s *CredentialStore) Retire(ctx context.Context, id int, at time.Time) error {
	query := `
		UPDATE api_credentials
		SET is_available = FALSE, retired_at = $2
		WHERE id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to retire credential %d: %w", id, err)
	}

	return nil
}
