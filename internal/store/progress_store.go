package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

// ProgressStore handles database operations for the jurisdiction completion log
type ProgressStore struct {
	db *sql.DB
}

// NewProgressStore creates a new ProgressStore
func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// IsComplete reports whether a completion marker exists for the jurisdiction
func (s *ProgressStore) IsComplete(ctx context.Context, jurisdictionID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM jurisdiction_progress WHERE jurisdiction_id = $1)`
	if err := s.db.QueryRowContext(ctx, query, jurisdictionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check progress for %s: %w", jurisdictionID, err)
	}
	return exists, nil
}

// MarkComplete records that a jurisdiction's listing was fully paginated.
// Idempotent: re-marking an already complete jurisdiction is a no-op.
func (s *ProgressStore) MarkComplete(ctx context.Context, jurisdictionID string, at time.Time) error {
	query := `
		INSERT INTO jurisdiction_progress (jurisdiction_id, completed_at)
		VALUES ($1, $2)
		ON CONFLICT (jurisdiction_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, jurisdictionID, at); err != nil {
		return fmt.Errorf("failed to mark %s complete: %w", jurisdictionID, err)
	}

	return nil
}

// GetAll retrieves the completion log ordered by completion time descending
func (s *ProgressStore) GetAll(ctx context.Context) ([]model.JurisdictionProgress, error) {
	query := `
		SELECT id, jurisdiction_id, completed_at
		FROM jurisdiction_progress
		ORDER BY completed_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JurisdictionProgress
	for rows.Next() {
		var p model.JurisdictionProgress
		if err := rows.Scan(&p.ID, &p.JurisdictionID, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		entries = append(entries, p)
	}

	return entries, rows.Err()
}
