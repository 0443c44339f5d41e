package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/statehouse/internal/model"
	"github.com/lib/pq"
)

// BillStore handles database operations for bills and their actions
type BillStore struct {
	db *sql.DB
}

// NewBillStore creates a new BillStore
func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

// UpsertBill inserts or fully replaces a bill keyed by its external id
func (s *BillStore) UpsertBill(ctx context.Context, b *model.Bill) error {
	query := `
		INSERT INTO bills (external_id, chamber, session, identifier, title, state_id,
		                   legislation_type, subjects, latest_action_description,
		                   introduced_at, latest_action_date, raw_payload, session_id, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (external_id) DO UPDATE SET
			chamber = EXCLUDED.chamber,
			session = EXCLUDED.session,
			identifier = EXCLUDED.identifier,
			title = EXCLUDED.title,
			state_id = EXCLUDED.state_id,
			legislation_type = EXCLUDED.legislation_type,
			subjects = EXCLUDED.subjects,
			latest_action_description = EXCLUDED.latest_action_description,
			introduced_at = EXCLUDED.introduced_at,
			latest_action_date = EXCLUDED.latest_action_date,
			raw_payload = EXCLUDED.raw_payload,
			session_id = EXCLUDED.session_id,
			fetched_at = EXCLUDED.fetched_at
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		b.ExternalID,
		b.Chamber,
		b.Session,
		b.Identifier,
		b.Title,
		b.StateID,
		pq.Array(b.LegislationType),
		pq.Array(b.Subjects),
		b.LatestActionDescription,
		b.IntroducedAt,
		b.LatestActionDate,
		[]byte(b.RawPayload),
		b.SessionID,
		b.FetchedAt,
	).Scan(&b.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert bill %s: %w", b.ExternalID, err)
	}

	return nil
}

// ReplaceSponsors replaces both sponsor sets for a bill in one transaction.
// The stored sets always mirror the latest upsert, never a union.
func (s *BillStore) ReplaceSponsors(ctx context.Context, billID int, sponsorIDs, coSponsorIDs []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceSponsorSet(ctx, tx, "bill_sponsors", billID, sponsorIDs); err != nil {
		return err
	}
	if err := replaceSponsorSet(ctx, tx, "bill_co_sponsors", billID, coSponsorIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sponsor replacement: %w", err)
	}

	return nil
}

func replaceSponsorSet(ctx context.Context, tx *sql.Tx, table string, billID int, legislatorIDs []int) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE bill_id = $1`, table), billID); err != nil {
		return fmt.Errorf("failed to clear %s for bill %d: %w", table, billID, err)
	}

	for _, legislatorID := range legislatorIDs {
		query := fmt.Sprintf(`
			INSERT INTO %s (bill_id, legislator_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, table)
		if _, err := tx.ExecContext(ctx, query, billID, legislatorID); err != nil {
			return fmt.Errorf("failed to insert into %s for bill %d: %w", table, billID, err)
		}
	}

	return nil
}

// UpsertAction inserts or replaces a bill action keyed by (bill_id, order)
func (s *BillStore) UpsertAction(ctx context.Context, a *model.BillAction) error {
	query := `
		INSERT INTO bill_actions (bill_id, "order", org_classification, org_name, description, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bill_id, "order") DO UPDATE SET
			org_classification = EXCLUDED.org_classification,
			org_name = EXCLUDED.org_name,
			description = EXCLUDED.description,
			date = EXCLUDED.date
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		a.BillID,
		a.Order,
		a.OrgClassification,
		a.OrgName,
		a.Description,
		a.Date,
	).Scan(&a.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert action %d for bill %d: %w", a.Order, a.BillID, err)
	}

	return nil
}

// GetByExternalID retrieves a bill by its external id
func (s *BillStore) GetByExternalID(ctx context.Context, externalID string) (*model.Bill, error) {
	query := `
		SELECT id, external_id, chamber, session, identifier, title, state_id,
		       legislation_type, subjects, latest_action_description,
		       introduced_at, latest_action_date, raw_payload, session_id, fetched_at, created_at
		FROM bills
		WHERE external_id = $1
	`

	var b model.Bill
	var rawPayload []byte
	err := s.db.QueryRowContext(ctx, query, externalID).Scan(
		&b.ID,
		&b.ExternalID,
		&b.Chamber,
		&b.Session,
		&b.Identifier,
		&b.Title,
		&b.StateID,
		pq.Array(&b.LegislationType),
		pq.Array(&b.Subjects),
		&b.LatestActionDescription,
		&b.IntroducedAt,
		&b.LatestActionDate,
		&rawPayload,
		&b.SessionID,
		&b.FetchedAt,
		&b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %s: %w", externalID, err)
	}
	b.RawPayload = rawPayload

	return &b, nil
}

// GetPage retrieves bills ordered by latest action date descending
func (s *BillStore) GetPage(ctx context.Context, limit, offset int) ([]model.Bill, error) {
	query := `
		SELECT id, external_id, chamber, session, identifier, title, state_id,
		       legislation_type, subjects, latest_action_description,
		       introduced_at, latest_action_date, raw_payload, session_id, fetched_at, created_at
		FROM bills
		ORDER BY latest_action_date DESC NULLS LAST, id
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get bills: %w", err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		var b model.Bill
		var rawPayload []byte
		err := rows.Scan(
			&b.ID,
			&b.ExternalID,
			&b.Chamber,
			&b.Session,
			&b.Identifier,
			&b.Title,
			&b.StateID,
			pq.Array(&b.LegislationType),
			pq.Array(&b.Subjects),
			&b.LatestActionDescription,
			&b.IntroducedAt,
			&b.LatestActionDate,
			&rawPayload,
			&b.SessionID,
			&b.FetchedAt,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		b.RawPayload = rawPayload
		bills = append(bills, b)
	}

	return bills, rows.Err()
}

// GetActions retrieves all actions for a bill ordered by action order
func (s *BillStore) GetActions(ctx context.Context, billID int) ([]model.BillAction, error) {
	query := `
		SELECT id, bill_id, "order", org_classification, org_name, description, date
		FROM bill_actions
		WHERE bill_id = $1
		ORDER BY "order"
	`

	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actions for bill %d: %w", billID, err)
	}
	defer rows.Close()

	var actions []model.BillAction
	for rows.Next() {
		var a model.BillAction
		err := rows.Scan(
			&a.ID,
			&a.BillID,
			&a.Order,
			&a.OrgClassification,
			&a.OrgName,
			&a.Description,
			&a.Date,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// CountBills returns the total number of stored bills
func (s *BillStore) CountBills(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bills").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bills: %w", err)
	}
	return count, nil
}
