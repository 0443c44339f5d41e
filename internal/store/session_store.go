package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/statehouse/internal/model"
)

// SessionStore handles read-only lookups against legislative sessions
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// GetByIdentifier retrieves the first session matching (state, identifier),
// or nil when the session is unknown
func (s *SessionStore) GetByIdentifier(ctx context.Context, stateID int, identifier string) (*model.LegislativeSession, error) {
	query := `
		SELECT id, state_id, identifier
		FROM legislative_sessions
		WHERE state_id = $1 AND identifier = $2
		ORDER BY id
		LIMIT 1
	`

	var ls model.LegislativeSession
	err := s.db.QueryRowContext(ctx, query, stateID, identifier).Scan(&ls.ID, &ls.StateID, &ls.Identifier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %q for state %d: %w", identifier, stateID, err)
	}

	return &ls, nil
}
