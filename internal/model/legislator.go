package model

import "encoding/json"

// State is a read-only reference entity; bills are only stored when their
// jurisdiction name resolves to a State row.
type State struct {
	ID   int
	Name string
}

// Legislator is a read-only reference entity resolved from sponsor names.
type Legislator struct {
	ID           int
	FirstName    string
	LastName     string
	StateID      int
	FullResponse json.RawMessage
}

// LegislativeSession links a bill to a known session of a state legislature.
type LegislativeSession struct {
	ID         int
	StateID    int
	Identifier string
}
