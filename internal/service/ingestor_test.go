package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jjenkins/statehouse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestorFixture(fetcher *fakeFetcher, source *fakeCredentialSource) (*Ingestor, *fakeUpserter, *fakeProgress) {
	upserter := &fakeUpserter{}
	progress := newFakeProgress()
	pool := NewCredentialPool(source)
	walker := NewPageWalker(fetcher, upserter, pool, progress)
	return NewIngestor(fetcher, pool, walker, upserter, progress), upserter, progress
}

func TestIngestAllSkipsCompletedJurisdictions(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		jurisdictions: []model.JurisdictionMeta{
			{ID: "j1", Name: "Alabama"},
			{ID: "j2", Name: "Alaska"},
		},
		outcomes: []pageOutcome{
			{page: &BillsPage{Results: []json.RawMessage{rawRecord(`{"id":"b1"}`)}, MaxPage: 1}},
		},
	}
	ingestor, _, progress := newIngestorFixture(fetcher, twoKeySource())
	progress.completed["j1"] = true

	stats, err := ingestor.IngestAll(context.Background(), 1)
	require.NoError(t, err)

	// No page fetch may be issued for an already-complete jurisdiction.
	for _, call := range fetcher.calls {
		assert.Equal(t, "j2", call.jurisdictionID)
	}
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Bills)
}

func TestIngestAllEndToEndTwoPageJurisdiction(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		jurisdictions: []model.JurisdictionMeta{{ID: "j1", Name: "Alabama"}},
		outcomes: []pageOutcome{
			{page: &BillsPage{Results: []json.RawMessage{rawRecord(`{"id":"b1"}`), rawRecord(`{"id":"b2"}`), rawRecord(`{"id":"b3"}`)}, MaxPage: 2}},
			{page: &BillsPage{Results: []json.RawMessage{rawRecord(`{"id":"b4"}`)}, MaxPage: 2}},
		},
	}
	ingestor, upserter, progress := newIngestorFixture(fetcher, twoKeySource())

	stats, err := ingestor.IngestAll(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 2)
	assert.Len(t, upserter.upserts, 4)
	assert.Equal(t, []string{"j1"}, progress.marks)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 4, stats.Bills)
}

func TestIngestAllRotatesOnListRateLimit(t *testing.T) {
	t.Parallel()

	source := twoKeySource()
	fetcher := &fakeFetcher{listOutcomes: []error{ErrRateLimited, nil}}
	ingestor, _, _ := newIngestorFixture(fetcher, source)

	_, err := ingestor.IngestAll(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.listCalls)
	assert.Equal(t, []int{1}, source.retired)
}

func TestIngestAllFailsWhenListFetchExhaustsPool(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{listOutcomes: []error{ErrRateLimited}}
	ingestor, _, _ := newIngestorFixture(fetcher, singleKeySource())

	_, err := ingestor.IngestAll(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestIngestAllCountsBlankJurisdictionIDs(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		jurisdictions: []model.JurisdictionMeta{{ID: "", Name: "Mystery"}},
	}
	ingestor, _, _ := newIngestorFixture(fetcher, singleKeySource())

	stats, err := ingestor.IngestAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, fetcher.calls)
}

func TestIngestJurisdictionIgnoresCompletionCheck(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		outcomes: []pageOutcome{
			{page: &BillsPage{Results: []json.RawMessage{rawRecord(`{"id":"b1"}`)}, MaxPage: 1}},
		},
	}
	ingestor, _, progress := newIngestorFixture(fetcher, singleKeySource())
	progress.completed["j1"] = true

	stats, err := ingestor.IngestJurisdiction(context.Background(), "j1", 1)
	require.NoError(t, err)

	// An explicit resume re-runs even a previously completed jurisdiction.
	assert.Len(t, fetcher.calls, 1)
	assert.Equal(t, 1, stats.Completed)
}

func TestIngestBillRotatesOnRateLimit(t *testing.T) {
	t.Parallel()

	source := twoKeySource()
	fetcher := &fakeFetcher{
		bill:         rawRecord(`{"id":"b1"}`),
		billOutcomes: []error{ErrRateLimited, nil},
	}
	ingestor, upserter, _ := newIngestorFixture(fetcher, source)

	require.NoError(t, ingestor.IngestBill(context.Background(), "b1"))

	assert.Len(t, fetcher.billCalls, 2)
	assert.Len(t, upserter.upserts, 1)
	assert.Equal(t, []int{1}, source.retired)
}

func TestIngestBillFailsWhenPoolExhausted(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{billOutcomes: []error{ErrRateLimited}}
	ingestor, _, _ := newIngestorFixture(fetcher, singleKeySource())

	err := ingestor.IngestBill(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrNoCredential)
}
