package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

// ErrUnresolvedState signals that a bill's jurisdiction name has no matching
// state row. The bill is skipped; no bill is ever stored without a state.
var ErrUnresolvedState = errors.New("state not found for bill jurisdiction")

// BillWriter is the persistence surface for bills, sponsor sets and actions
type BillWriter interface {
	UpsertBill(ctx context.Context, b *model.Bill) error
	ReplaceSponsors(ctx context.Context, billID int, sponsorIDs, coSponsorIDs []int) error
	UpsertAction(ctx context.Context, a *model.BillAction) error
}

// StateReader resolves jurisdiction names to state rows
type StateReader interface {
	GetByName(ctx context.Context, name string) (*model.State, error)
}

// SessionReader resolves (state, session identifier) to legislative sessions
type SessionReader interface {
	GetByIdentifier(ctx context.Context, stateID int, identifier string) (*model.LegislativeSession, error)
}

// BillUpserter transforms one raw bill record into normalized entities and
// performs an idempotent upsert against the store
type BillUpserter struct {
	bills      BillWriter
	states     StateReader
	sessions   SessionReader
	resolver   LegislatorResolver
	dispatcher TextDispatcher
	logger     *log.Logger
	errLogger  *log.Logger
	now        func() time.Time
}

// NewBillUpserter creates a new BillUpserter
func NewBillUpserter(bills BillWriter, states StateReader, sessions SessionReader, resolver LegislatorResolver, dispatcher TextDispatcher) *BillUpserter {
	return &BillUpserter{
		bills:      bills,
		states:     states,
		sessions:   sessions,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     log.New(os.Stdout, "", log.LstdFlags),
		errLogger:  log.New(os.Stderr, "ERROR: ", log.LstdFlags),
		now:        time.Now,
	}
}

// rawBill represents the OpenStates bill payload fields this system maps
type rawBill struct {
	ID           string `json:"id"`
	Session      string `json:"session"`
	Identifier   string `json:"identifier"`
	Title        string `json:"title"`
	Jurisdiction *struct {
		Name string `json:"name"`
	} `json:"jurisdiction"`
	FromOrganization *struct {
		Name string `json:"name"`
	} `json:"from_organization"`
	Classification          []string         `json:"classification"`
	Subject                 []string         `json:"subject"`
	LatestActionDescription string           `json:"latest_action_description"`
	FirstActionDate         string           `json:"first_action_date"`
	LatestActionDate        string           `json:"latest_action_date"`
	Sponsorships            []rawSponsorship `json:"sponsorships"`
	Actions                 []rawAction      `json:"actions"`
}

type rawSponsorship struct {
	Classification string `json:"classification"`
	Name           string `json:"name"`
	Person         *struct {
		Name string `json:"name"`
	} `json:"person"`
}

type rawAction struct {
	Description  string `json:"description"`
	Date         string `json:"date"`
	Order        int    `json:"order"`
	Organization *struct {
		Name           string `json:"name"`
		Classification string `json:"classification"`
	} `json:"organization"`
}

// Upsert normalizes and stores one raw bill record. Sponsor resolution
// failures are non-fatal (the sponsor is omitted); a malformed action does
// not abort the bill; an unresolved state skips the whole bill.
func (u *BillUpserter) Upsert(ctx context.Context, raw json.RawMessage) (*model.Bill, error) {
	var rb rawBill
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, fmt.Errorf("failed to parse bill record: %w", err)
	}

	state, err := u.resolveState(ctx, &rb)
	if err != nil {
		return nil, err
	}
	if state == nil {
		u.errLogger.Printf("legislature state not found for bill %s", rb.ID)
		return nil, fmt.Errorf("bill %s: %w", rb.ID, ErrUnresolvedState)
	}

	bill := &model.Bill{
		ExternalID:              rb.ID,
		Chamber:                 chamberFromOrganization(&rb),
		Session:                 rb.Session,
		Identifier:              rb.Identifier,
		Title:                   rb.Title,
		StateID:                 state.ID,
		LegislationType:         rb.Classification,
		Subjects:                rb.Subject,
		LatestActionDescription: rb.LatestActionDescription,
		RawPayload:              raw,
		FetchedAt:               u.now(),
	}

	if rb.FirstActionDate != "" {
		if d, err := normalizeDate(rb.FirstActionDate); err == nil {
			bill.IntroducedAt = sql.NullTime{Time: d, Valid: true}
		} else {
			u.errLogger.Printf("invalid first action date %q for bill %s: %v", rb.FirstActionDate, rb.ID, err)
		}
	}
	if rb.LatestActionDate != "" {
		if d, err := normalizeDate(rb.LatestActionDate); err == nil {
			bill.LatestActionDate = sql.NullTime{Time: d, Valid: true}
		} else {
			u.errLogger.Printf("invalid latest action date %q for bill %s: %v", rb.LatestActionDate, rb.ID, err)
		}
	}

	if session, err := u.sessions.GetByIdentifier(ctx, state.ID, rb.Session); err != nil {
		return nil, err
	} else if session != nil {
		bill.SessionID = sql.NullInt64{Int64: int64(session.ID), Valid: true}
	}

	sponsorIDs, coSponsorIDs, err := u.resolveSponsors(ctx, rb.Sponsorships, state.ID)
	if err != nil {
		return nil, err
	}

	if err := u.bills.UpsertBill(ctx, bill); err != nil {
		return nil, err
	}
	u.logger.Printf("bill upserted id=%d external_id=%s", bill.ID, bill.ExternalID)

	if err := u.bills.ReplaceSponsors(ctx, bill.ID, sponsorIDs, coSponsorIDs); err != nil {
		return nil, err
	}

	u.upsertActions(ctx, &rb, bill.ID)

	handled, err := u.dispatcher.Dispatch(ctx, state.Name, bill.ID)
	if err != nil {
		u.errLogger.Printf("bill text dispatch failed for bill %d: %v", bill.ID, err)
	} else if !handled {
		u.logger.Printf("no bill text command registered for state %s", state.Name)
	}

	return bill, nil
}

func (u *BillUpserter) resolveState(ctx context.Context, rb *rawBill) (*model.State, error) {
	if rb.Jurisdiction == nil || rb.Jurisdiction.Name == "" {
		return nil, nil
	}
	return u.states.GetByName(ctx, rb.Jurisdiction.Name)
}

// chamberFromOrganization maps the acting organization's name to a chamber.
// Anything other than "House" is classified as the senate; this mirrors the
// upstream data contract and knowingly lumps joint and executive
// organizations in with the senate.
func chamberFromOrganization(rb *rawBill) string {
	if rb.FromOrganization == nil || rb.FromOrganization.Name == "" {
		return ""
	}
	if rb.FromOrganization.Name == "House" {
		return model.ChamberHouse
	}
	return model.ChamberSenate
}

// resolveSponsors partitions sponsorships by classification and resolves each
// name to a legislator. Unresolved names are dropped silently.
func (u *BillUpserter) resolveSponsors(ctx context.Context, sponsorships []rawSponsorship, stateID int) (sponsorIDs, coSponsorIDs []int, err error) {
	for _, sponsorship := range sponsorships {
		name := sponsorship.Name
		if sponsorship.Person != nil && sponsorship.Person.Name != "" {
			name = sponsorship.Person.Name
		}
		if name == "" {
			continue
		}

		legislator, err := u.resolver.Resolve(ctx, name, stateID)
		if err != nil {
			return nil, nil, err
		}
		if legislator == nil {
			continue
		}

		if sponsorship.Classification == "primary" {
			sponsorIDs = append(sponsorIDs, legislator.ID)
		} else {
			coSponsorIDs = append(coSponsorIDs, legislator.ID)
		}
	}

	return sponsorIDs, coSponsorIDs, nil
}

// upsertActions stores the bill's action list keyed by (bill, order).
// Failures are per-action; one malformed action does not abort the bill.
func (u *BillUpserter) upsertActions(ctx context.Context, rb *rawBill, billID int) {
	for _, ra := range rb.Actions {
		action := &model.BillAction{
			BillID:      billID,
			Order:       ra.Order,
			Description: ra.Description,
		}
		if ra.Organization != nil {
			action.OrgName = ra.Organization.Name
			action.OrgClassification = ra.Organization.Classification
		}
		if ra.Date != "" {
			if d, err := normalizeDate(ra.Date); err == nil {
				action.Date = sql.NullTime{Time: d, Valid: true}
			} else {
				u.errLogger.Printf("invalid action date %q for bill %d: %v", ra.Date, billID, err)
			}
		}

		if err := u.bills.UpsertAction(ctx, action); err != nil {
			u.errLogger.Printf("failed to store action %d for bill %d: %v", ra.Order, billID, err)
			continue
		}
		u.logger.Printf("bill action upserted bill_id=%d action_id=%d", billID, action.ID)
	}
}

// normalizeDate parses either a plain calendar date or a full timestamp with
// a "+00:00" offset suffix. Time-of-day is discarded; the result is always
// calendar-date granularity in UTC.
func normalizeDate(s string) (time.Time, error) {
	if strings.Contains(s, "T") {
		t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(s, "+00:00"))
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", s)
}
