package service

import (
	"context"

	"github.com/jjenkins/statehouse/internal/model"
)

// LegislatorResolver resolves a sponsor name to a legislator within a state.
// A nil result with a nil error means the name did not resolve; callers
// treat that as non-fatal and omit the sponsor.
type LegislatorResolver interface {
	Resolve(ctx context.Context, name string, stateID int) (*model.Legislator, error)
}

// LegislatorDirectory is the lookup surface the chain resolver queries
type LegislatorDirectory interface {
	FindByName(ctx context.Context, name string, stateID int) (*model.Legislator, error)
	FindByPayloadName(ctx context.Context, name string, stateID int) (*model.Legislator, error)
}

// ChainResolver tries a structured-name substring match first, then an exact
// match against the name embedded in the legislator's raw payload. This is a
// heuristic; false negatives and positives are expected.
type ChainResolver struct {
	directory LegislatorDirectory
}

// NewChainResolver creates a new ChainResolver
func NewChainResolver(directory LegislatorDirectory) *ChainResolver {
	return &ChainResolver{directory: directory}
}

// Resolve runs both strategies in order and returns the first hit
func (r *ChainResolver) Resolve(ctx context.Context, name string, stateID int) (*model.Legislator, error) {
	legislator, err := r.directory.FindByName(ctx, name, stateID)
	if err != nil {
		return nil, err
	}
	if legislator != nil {
		return legislator, nil
	}

	return r.directory.FindByPayloadName(ctx, name, stateID)
}
