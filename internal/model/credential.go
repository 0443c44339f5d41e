package model

import (
	"database/sql"
	"time"
)

// Credential is one seeded OpenStates API key. Once retired (rate limited)
// a credential is never re-activated automatically.
type Credential struct {
	ID          int
	Key         string
	IsAvailable bool
	RetiredAt   sql.NullTime
}

// JurisdictionProgress marks a jurisdiction whose bill listing was fully
// paginated. Rows are append-only: existence means "fully ingested".
type JurisdictionProgress struct {
	ID             int
	JurisdictionID string
	CompletedAt    time.Time
}
