package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/statehouse/internal/model"
)

// LegislatorStore handles read-only lookups against the legislator directory
type LegislatorStore struct {
	db *sql.DB
}

// NewLegislatorStore creates a new LegislatorStore
func NewLegislatorStore(db *sql.DB) *LegislatorStore {
	return &LegislatorStore{db: db}
}

// FindByName matches a sponsor name against the concatenated first and last
// name, case-insensitive substring, scoped to a state. Returns nil when no
// legislator matches.
func (s *LegislatorStore) FindByName(ctx context.Context, name string, stateID int) (*model.Legislator, error) {
	query := `
		SELECT id, first_name, last_name, state_id, full_response
		FROM legislators
		WHERE (first_name || ' ' || last_name) ILIKE '%' || $1 || '%'
		  AND state_id = $2
		ORDER BY id
		LIMIT 1
	`

	return s.scanOne(ctx, query, name, stateID)
}

// FindByPayloadName matches a sponsor name exactly against the name embedded
// in the legislator's raw payload, scoped to a state
func (s *LegislatorStore) FindByPayloadName(ctx context.Context, name string, stateID int) (*model.Legislator, error) {
	query := `
		SELECT id, first_name, last_name, state_id, full_response
		FROM legislators
		WHERE full_response->>'name' = $1
		  AND state_id = $2
		ORDER BY id
		LIMIT 1
	`

	return s.scanOne(ctx, query, name, stateID)
}

func (s *LegislatorStore) scanOne(ctx context.Context, query string, name string, stateID int) (*model.Legislator, error) {
	var l model.Legislator
	var fullResponse []byte
	err := s.db.QueryRowContext(ctx, query, name, stateID).Scan(
		&l.ID,
		&l.FirstName,
		&l.LastName,
		&l.StateID,
		&fullResponse,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find legislator %q: %w", name, err)
	}
	l.FullResponse = fullResponse

	return &l, nil
}
