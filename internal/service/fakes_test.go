package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

// fetchCall records one bills-page request
type fetchCall struct {
	jurisdictionID string
	page           int
	apiKey         string
}

type pageOutcome struct {
	page *BillsPage
	err  error
}

// fakeFetcher serves scripted outcomes in order and records every call.
// It implements both PageFetcher and ListFetcher.
type fakeFetcher struct {
	outcomes      []pageOutcome
	calls         []fetchCall
	jurisdictions []model.JurisdictionMeta
	listOutcomes  []error
	listCalls     int
	bill          json.RawMessage
	billOutcomes  []error
	billCalls     []string
}

func (f *fakeFetcher) FetchBillsPage(ctx context.Context, jurisdictionID string, page int, apiKey string) (*BillsPage, error) {
	f.calls = append(f.calls, fetchCall{jurisdictionID: jurisdictionID, page: page, apiKey: apiKey})
	if len(f.outcomes) == 0 {
		return nil, errors.New("fakeFetcher: no outcome scripted")
	}
	outcome := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return outcome.page, outcome.err
}

func (f *fakeFetcher) FetchJurisdictions(ctx context.Context, apiKey string) ([]model.JurisdictionMeta, error) {
	f.listCalls++
	if len(f.listOutcomes) > 0 {
		err := f.listOutcomes[0]
		f.listOutcomes = f.listOutcomes[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.jurisdictions, nil
}

func (f *fakeFetcher) FetchBill(ctx context.Context, billID string, apiKey string) (json.RawMessage, error) {
	f.billCalls = append(f.billCalls, billID)
	if len(f.billOutcomes) > 0 {
		err := f.billOutcomes[0]
		f.billOutcomes = f.billOutcomes[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.bill, nil
}

func (f *fakeFetcher) PageDelay() time.Duration { return 0 }
func (f *fakeFetcher) ListDelay() time.Duration { return 0 }

// fakeUpserter counts upserts and fails on scripted call indexes
type fakeUpserter struct {
	upserts []json.RawMessage
	errs    map[int]error
}

func (f *fakeUpserter) Upsert(ctx context.Context, raw json.RawMessage) (*model.Bill, error) {
	idx := len(f.upserts)
	f.upserts = append(f.upserts, raw)
	if err, ok := f.errs[idx]; ok {
		return nil, err
	}
	return &model.Bill{ID: idx + 1}, nil
}

// fakeProgress is an in-memory completion log
type fakeProgress struct {
	completed map[string]bool
	marks     []string
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{completed: map[string]bool{}}
}

func (f *fakeProgress) IsComplete(ctx context.Context, jurisdictionID string) (bool, error) {
	return f.completed[jurisdictionID], nil
}

func (f *fakeProgress) MarkComplete(ctx context.Context, jurisdictionID string, at time.Time) error {
	f.completed[jurisdictionID] = true
	f.marks = append(f.marks, jurisdictionID)
	return nil
}

// fakeCredentialSource hands out credentials in order and records retirements
type fakeCredentialSource struct {
	creds   []model.Credential
	retired []int
}

func (f *fakeCredentialSource) FirstAvailable(ctx context.Context) (*model.Credential, error) {
	for i := range f.creds {
		if f.creds[i].IsAvailable {
			cred := f.creds[i]
			return &cred, nil
		}
	}
	return nil, nil
}

func (f *fakeCredentialSource) Retire(ctx context.Context, id int, at time.Time) error {
	f.retired = append(f.retired, id)
	for i := range f.creds {
		if f.creds[i].ID == id {
			f.creds[i].IsAvailable = false
		}
	}
	return nil
}

// fakeBillWriter stores bills keyed by external id, sponsor sets keyed by
// bill id, and actions keyed by (bill id, order)
type fakeBillWriter struct {
	bills      map[string]*model.Bill
	nextID     int
	sponsors   map[int][]int
	coSponsors map[int][]int
	actions    map[[2]int]model.BillAction
	actionErr  map[int]error
}

func newFakeBillWriter() *fakeBillWriter {
	return &fakeBillWriter{
		bills:      map[string]*model.Bill{},
		sponsors:   map[int][]int{},
		coSponsors: map[int][]int{},
		actions:    map[[2]int]model.BillAction{},
	}
}

func (f *fakeBillWriter) UpsertBill(ctx context.Context, b *model.Bill) error {
	if existing, ok := f.bills[b.ExternalID]; ok {
		b.ID = existing.ID
	} else {
		f.nextID++
		b.ID = f.nextID
	}
	stored := *b
	f.bills[b.ExternalID] = &stored
	return nil
}

func (f *fakeBillWriter) ReplaceSponsors(ctx context.Context, billID int, sponsorIDs, coSponsorIDs []int) error {
	f.sponsors[billID] = sponsorIDs
	f.coSponsors[billID] = coSponsorIDs
	return nil
}

func (f *fakeBillWriter) UpsertAction(ctx context.Context, a *model.BillAction) error {
	if err, ok := f.actionErr[a.Order]; ok {
		return err
	}
	a.ID = len(f.actions) + 1
	f.actions[[2]int{a.BillID, a.Order}] = *a
	return nil
}

// fakeStateReader resolves state names from a fixed map
type fakeStateReader struct {
	states map[string]*model.State
}

func (f *fakeStateReader) GetByName(ctx context.Context, name string) (*model.State, error) {
	return f.states[name], nil
}

// fakeSessionReader resolves sessions from a fixed map keyed by identifier
type fakeSessionReader struct {
	sessions map[string]*model.LegislativeSession
}

func (f *fakeSessionReader) GetByIdentifier(ctx context.Context, stateID int, identifier string) (*model.LegislativeSession, error) {
	return f.sessions[identifier], nil
}

// fakeResolver resolves sponsor names from a fixed map
type fakeResolver struct {
	legislators map[string]*model.Legislator
}

func (f *fakeResolver) Resolve(ctx context.Context, name string, stateID int) (*model.Legislator, error) {
	return f.legislators[name], nil
}

// dispatchCall records one bill text dispatch
type dispatchCall struct {
	stateName string
	billID    int
}

// fakeDispatcher records dispatches and reports a fixed handled flag
type fakeDispatcher struct {
	handled bool
	calls   []dispatchCall
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, stateName string, billID int) (bool, error) {
	f.calls = append(f.calls, dispatchCall{stateName: stateName, billID: billID})
	return f.handled, nil
}

// fakeDirectory backs the chain resolver with two fixed lookup maps
type fakeDirectory struct {
	byName        map[string]*model.Legislator
	byPayloadName map[string]*model.Legislator
	nameCalls     []string
	payloadCalls  []string
}

func (f *fakeDirectory) FindByName(ctx context.Context, name string, stateID int) (*model.Legislator, error) {
	f.nameCalls = append(f.nameCalls, name)
	return f.byName[name], nil
}

func (f *fakeDirectory) FindByPayloadName(ctx context.Context, name string, stateID int) (*model.Legislator, error) {
	f.payloadCalls = append(f.payloadCalls, name)
	return f.byPayloadName[name], nil
}

func rawRecord(s string) json.RawMessage { return json.RawMessage(s) }
