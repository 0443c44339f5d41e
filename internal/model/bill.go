package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Chamber classifications for a bill's acting legislative body. The empty
// string means the source payload carried no originating organization.
const (
	ChamberHouse  = "house"
	ChamberSenate = "senate"
)

// Bill represents the current state of an ingested legislative bill.
// ExternalID is the OpenStates bill id and is the dedup key: a re-ingest
// fully replaces all mapped fields.
type Bill struct {
	ID                      int
	ExternalID              string
	Chamber                 string
	Session                 string
	Identifier              string
	Title                   string
	StateID                 int
	LegislationType         []string
	Subjects                []string
	LatestActionDescription string
	IntroducedAt            sql.NullTime
	LatestActionDate        sql.NullTime
	RawPayload              json.RawMessage
	SessionID               sql.NullInt64
	FetchedAt               time.Time
	CreatedAt               time.Time
}

// BillAction represents one entry of a bill's action history, keyed by
// (BillID, Order).
type BillAction struct {
	ID                int
	BillID            int
	Order             int
	OrgClassification string
	OrgName           string
	Description       string
	Date              sql.NullTime
}

// JurisdictionMeta represents one entry of the OpenStates jurisdictions list.
type JurisdictionMeta struct {
	ID   string
	Name string
}
