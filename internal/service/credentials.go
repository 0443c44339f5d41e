package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

// ErrNoCredential signals an exhausted credential pool. This is fatal for
// the whole run in every mode.
var ErrNoCredential = errors.New("no api credential available")

// CredentialSource is the persistence surface the pool rotates over
type CredentialSource interface {
	FirstAvailable(ctx context.Context) (*model.Credential, error)
	Retire(ctx context.Context, id int, at time.Time) error
}

// CredentialPool tracks the single current API credential and rotates to a
// fresh one when the current key is exhausted. Retirement is persisted
// immediately; a retired key is never re-activated.
type CredentialPool struct {
	source  CredentialSource
	current *model.Credential
}

// NewCredentialPool creates a pool over a credential source
func NewCredentialPool(source CredentialSource) *CredentialPool {
	return &CredentialPool{source: source}
}

// Current returns the active credential, loading one from the source on
// first use. Fails with ErrNoCredential when none remain available.
func (p *CredentialPool) Current(ctx context.Context) (*model.Credential, error) {
	if p.current != nil {
		return p.current, nil
	}

	cred, err := p.source.FirstAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNoCredential
	}

	p.current = cred
	return cred, nil
}

// Retire marks the current credential unavailable and stamps its retirement
// time. A no-op when no credential is active.
func (p *CredentialPool) Retire(ctx context.Context, at time.Time) error {
	if p.current == nil {
		return nil
	}

	if err := p.source.Retire(ctx, p.current.ID, at); err != nil {
		return err
	}

	p.current.IsAvailable = false
	p.current.RetiredAt = sql.NullTime{Time: at, Valid: true}
	p.current = nil

	return nil
}

// Rotate selects a new available credential after retirement. Fails with
// ErrNoCredential when the pool is exhausted.
func (p *CredentialPool) Rotate(ctx context.Context) (*model.Credential, error) {
	p.current = nil
	return p.Current(ctx)
}

// staticCredentialSource backs a pool with a single operator-supplied key
type staticCredentialSource struct {
	cred    model.Credential
	retired bool
}

func (s *staticCredentialSource) FirstAvailable(ctx context.Context) (*model.Credential, error) {
	if s.retired {
		return nil, nil
	}
	cred := s.cred
	return &cred, nil
}

func (s *staticCredentialSource) Retire(ctx context.Context, id int, at time.Time) error {
	s.retired = true
	return nil
}

// NewStaticPool creates a pool holding exactly one in-memory key, used when
// the operator overrides the stored pool with --api-key. Rotation after
// retiring the override key fails with ErrNoCredential.
func NewStaticPool(key string) *CredentialPool {
	return NewCredentialPool(&staticCredentialSource{
		cred: model.Credential{ID: 1, Key: key, IsAvailable: true},
	})
}
