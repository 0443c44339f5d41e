package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

// PageFetcher retrieves one page of a jurisdiction's bill listing
type PageFetcher interface {
	FetchBillsPage(ctx context.Context, jurisdictionID string, page int, apiKey string) (*BillsPage, error)
	PageDelay() time.Duration
}

// RecordUpserter stores one raw bill record
type RecordUpserter interface {
	Upsert(ctx context.Context, raw json.RawMessage) (*model.Bill, error)
}

// ProgressTracker is the jurisdiction completion log
type ProgressTracker interface {
	IsComplete(ctx context.Context, jurisdictionID string) (bool, error)
	MarkComplete(ctx context.Context, jurisdictionID string, at time.Time) error
}

// walkPhase is the tagged state of the pagination machine
type walkPhase int

const (
	phaseFetching walkPhase = iota
	phaseRateLimited
	phaseDone
	phaseErrored
)

// walkState carries the pagination cursor through each transition. The
// machine re-enters phaseFetching on the same page after a rotation; only a
// successful fetch advances the page.
type walkState struct {
	phase walkPhase
	page  int
}

// WalkStats tracks the outcome of one jurisdiction walk
type WalkStats struct {
	Pages        int
	Bills        int
	BillsSkipped int
	BillsFailed  int
	Completed    bool
}

// PageWalker drives sequential pagination over a single jurisdiction's bill
// listing: one request at a time, a fixed delay after every fetch, credential
// rotation on rate limiting, and a completion marker when the terminal page
// is consumed.
type PageWalker struct {
	fetcher   PageFetcher
	upserter  RecordUpserter
	pool      *CredentialPool
	progress  ProgressTracker
	logger    *log.Logger
	errLogger *log.Logger
	now       func() time.Time
}

// NewPageWalker creates a new PageWalker
func NewPageWalker(fetcher PageFetcher, upserter RecordUpserter, pool *CredentialPool, progress ProgressTracker) *PageWalker {
	return &PageWalker{
		fetcher:   fetcher,
		upserter:  upserter,
		pool:      pool,
		progress:  progress,
		logger:    log.New(os.Stdout, "", log.LstdFlags),
		errLogger: log.New(os.Stderr, "ERROR: ", log.LstdFlags),
		now:       time.Now,
	}
}

// Walk paginates the jurisdiction's listing starting at startPage. A nil
// error with Completed=false means the walk ended without consuming the
// full listing, either because an upstream error cut it short or because
// the cursor landed past the last page: the jurisdiction is left incomplete
// and no retry is scheduled, so the operator must resume with an explicit
// page. Credential exhaustion and store failures are returned as errors and
// abort the run.
func (w *PageWalker) Walk(ctx context.Context, jurisdictionID string, startPage int) (*WalkStats, error) {
	if startPage < 1 {
		startPage = 1
	}

	stats := &WalkStats{}
	state := walkState{phase: phaseFetching, page: startPage}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		switch state.phase {
		case phaseFetching:
			cred, err := w.pool.Current(ctx)
			if err != nil {
				return stats, err
			}

			w.logger.Printf("****** page %d ****** jurisdiction %s", state.page, jurisdictionID)
			page, err := w.fetcher.FetchBillsPage(ctx, jurisdictionID, state.page, cred.Key)
			w.pause(ctx)

			switch {
			case errors.Is(err, ErrRateLimited):
				w.errLogger.Printf("api key exhausted on page %d of %s", state.page, jurisdictionID)
				state.phase = phaseRateLimited
			case err != nil:
				w.errLogger.Printf("bill page fetch failed for %s page %d: %v", jurisdictionID, state.page, err)
				state.phase = phaseErrored
			default:
				stats.Pages++
				w.upsertPage(ctx, page.Results, stats)
				switch {
				case state.page == page.MaxPage:
					state.phase = phaseDone
				case state.page > page.MaxPage:
					// Past the listing's end, or an empty listing
					// (max_page 0). The listing was never consumed in
					// order, so no completion is recorded.
					w.errLogger.Printf("page %d is past last page %d for jurisdiction %s; left incomplete", state.page, page.MaxPage, jurisdictionID)
					return stats, nil
				default:
					state.page++
				}
			}

		case phaseRateLimited:
			if err := w.pool.Retire(ctx, w.now()); err != nil {
				return stats, err
			}
			if _, err := w.pool.Rotate(ctx); err != nil {
				return stats, err
			}
			// Same page is re-fetched with the fresh key, never skipped.
			state.phase = phaseFetching

		case phaseDone:
			w.logger.Printf("last page %d for jurisdiction %s", state.page, jurisdictionID)
			if err := w.progress.MarkComplete(ctx, jurisdictionID, w.now()); err != nil {
				return stats, err
			}
			stats.Completed = true
			return stats, nil

		case phaseErrored:
			// The jurisdiction is left incomplete with no scheduled retry.
			w.errLogger.Printf("jurisdiction %s left incomplete; resume with --page %d", jurisdictionID, state.page)
			return stats, nil
		}
	}
}

// upsertPage processes every record in a page independently; failures are
// per-record, never batched across the page.
func (w *PageWalker) upsertPage(ctx context.Context, records []json.RawMessage, stats *WalkStats) {
	for _, raw := range records {
		_, err := w.upserter.Upsert(ctx, raw)
		switch {
		case errors.Is(err, ErrUnresolvedState):
			stats.BillsSkipped++
		case err != nil:
			w.errLogger.Printf("failed to upsert bill: %v", err)
			stats.BillsFailed++
		default:
			stats.Bills++
		}
	}
}

// pause imposes the fixed post-fetch delay that keeps the system inside the
// external API's per-key rate limit.
func (w *PageWalker) pause(ctx context.Context) {
	delay := w.fetcher.PageDelay()
	if delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
