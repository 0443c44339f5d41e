package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/statehouse/internal/model"
)

// StateStore handles read-only lookups against the states table
type StateStore struct {
	db *sql.DB
}

// NewStateStore creates a new StateStore
func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// GetByName retrieves a state by its exact human-readable name, or nil if
// no state matches
func (s *StateStore) GetByName(ctx context.Context, name string) (*model.State, error) {
	query := `SELECT id, name FROM states WHERE name = $1`

	var st model.State
	err := s.db.QueryRowContext(ctx, query, name).Scan(&st.ID, &st.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state %q: %w", name, err)
	}

	return &st, nil
}
