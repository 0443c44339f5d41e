package service

import (
	"context"
	"testing"

	"github.com/jjenkins/statehouse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainResolverPrefersStructuredNameMatch(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{
		byName:        map[string]*model.Legislator{"Jane Smith": {ID: 11}},
		byPayloadName: map[string]*model.Legislator{"Jane Smith": {ID: 99}},
	}
	resolver := NewChainResolver(directory)

	legislator, err := resolver.Resolve(context.Background(), "Jane Smith", 7)
	require.NoError(t, err)
	assert.Equal(t, 11, legislator.ID)
	assert.Empty(t, directory.payloadCalls)
}

func TestChainResolverFallsBackToPayloadName(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{
		byName:        map[string]*model.Legislator{},
		byPayloadName: map[string]*model.Legislator{"J. Smith": {ID: 42}},
	}
	resolver := NewChainResolver(directory)

	legislator, err := resolver.Resolve(context.Background(), "J. Smith", 7)
	require.NoError(t, err)
	assert.Equal(t, 42, legislator.ID)
	assert.Equal(t, []string{"J. Smith"}, directory.nameCalls)
	assert.Equal(t, []string{"J. Smith"}, directory.payloadCalls)
}

func TestChainResolverReturnsNilWhenBothMiss(t *testing.T) {
	t.Parallel()

	resolver := NewChainResolver(&fakeDirectory{})

	legislator, err := resolver.Resolve(context.Background(), "Unknown Name", 7)
	require.NoError(t, err)
	assert.Nil(t, legislator)
}
