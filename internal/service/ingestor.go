package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

// ListFetcher covers the non-paginated fetches the driver performs itself:
// the jurisdiction list and single bills by id
type ListFetcher interface {
	FetchJurisdictions(ctx context.Context, apiKey string) ([]model.JurisdictionMeta, error)
	FetchBill(ctx context.Context, billID string, apiKey string) (json.RawMessage, error)
	ListDelay() time.Duration
}

// IngestStats tracks ingestion statistics across jurisdictions
type IngestStats struct {
	Jurisdictions int
	Completed     int
	Skipped       int
	Failed        int
	Pages         int
	Bills         int
	BillsSkipped  int
	BillsFailed   int
}

// Ingestor is the top-level driver: it iterates jurisdictions (or a single
// jurisdiction, or a single bill id), orchestrating the credential pool,
// completion log and page walker.
type Ingestor struct {
	fetcher   ListFetcher
	pool      *CredentialPool
	walker    *PageWalker
	upserter  RecordUpserter
	progress  ProgressTracker
	logger    *log.Logger
	errLogger *log.Logger
	now       func() time.Time
}

// NewIngestor creates a new Ingestor
func NewIngestor(fetcher ListFetcher, pool *CredentialPool, walker *PageWalker, upserter RecordUpserter, progress ProgressTracker) *Ingestor {
	return &Ingestor{
		fetcher:   fetcher,
		pool:      pool,
		walker:    walker,
		upserter:  upserter,
		progress:  progress,
		logger:    log.New(os.Stdout, "", log.LstdFlags),
		errLogger: log.New(os.Stderr, "ERROR: ", log.LstdFlags),
		now:       time.Now,
	}
}

// IngestBill fetches and upserts a single bill by its OpenStates id, with
// the same retire-and-rotate contract as page fetching
func (i *Ingestor) IngestBill(ctx context.Context, billID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cred, err := i.pool.Current(ctx)
		if err != nil {
			return err
		}

		raw, err := i.fetcher.FetchBill(ctx, billID, cred.Key)
		i.pause(ctx)
		if errors.Is(err, ErrRateLimited) {
			i.errLogger.Printf("api key exhausted fetching bill %s", billID)
			if err := i.rotate(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		if _, err := i.upserter.Upsert(ctx, raw); err != nil {
			return err
		}
		return nil
	}
}

// IngestJurisdiction paginates exactly one jurisdiction starting at
// startPage. The completion check is deliberately skipped: an explicit
// resume re-runs even a previously completed jurisdiction.
func (i *Ingestor) IngestJurisdiction(ctx context.Context, jurisdictionID string, startPage int) (*IngestStats, error) {
	stats := &IngestStats{Jurisdictions: 1}

	wstats, err := i.walker.Walk(ctx, jurisdictionID, startPage)
	stats.merge(wstats)
	if err != nil {
		return stats, err
	}
	if !wstats.Completed {
		stats.Failed++
	} else {
		stats.Completed++
	}

	return stats, nil
}

// IngestAll fetches the jurisdiction list and paginates every jurisdiction
// not already marked complete
func (i *Ingestor) IngestAll(ctx context.Context, startPage int) (*IngestStats, error) {
	stats := &IngestStats{}

	i.logger.Println("Fetching jurisdiction list...")
	jurisdictions, err := i.fetchJurisdictions(ctx)
	if err != nil {
		return stats, err
	}

	stats.Jurisdictions = len(jurisdictions)
	i.logger.Printf("Found %d jurisdictions to process", stats.Jurisdictions)

	for idx, jurisdiction := range jurisdictions {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		progress := fmt.Sprintf("[%d/%d]", idx+1, stats.Jurisdictions)

		if jurisdiction.ID == "" {
			i.errLogger.Printf("%s jurisdiction id not found", progress)
			stats.Failed++
			continue
		}

		done, err := i.progress.IsComplete(ctx, jurisdiction.ID)
		if err != nil {
			return stats, err
		}
		if done {
			i.logger.Printf("%s Skipping %s: already ingested", progress, jurisdiction.Name)
			stats.Skipped++
			continue
		}

		i.logger.Printf("%s Ingesting %s...", progress, jurisdiction.Name)
		wstats, err := i.walker.Walk(ctx, jurisdiction.ID, startPage)
		stats.merge(wstats)
		if err != nil {
			// Credential exhaustion, cancellation and store failures are
			// fatal for the whole run.
			return stats, err
		}
		if wstats.Completed {
			stats.Completed++
		} else {
			stats.Failed++
		}
	}

	return stats, nil
}

// fetchJurisdictions retrieves the jurisdiction list with the standard
// retire-and-rotate contract. Only the first page is consulted.
func (i *Ingestor) fetchJurisdictions(ctx context.Context) ([]model.JurisdictionMeta, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cred, err := i.pool.Current(ctx)
		if err != nil {
			return nil, err
		}

		jurisdictions, err := i.fetcher.FetchJurisdictions(ctx, cred.Key)
		i.pause(ctx)
		if errors.Is(err, ErrRateLimited) {
			i.errLogger.Printf("api key exhausted fetching jurisdiction list")
			if err := i.rotate(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		return jurisdictions, nil
	}
}

func (i *Ingestor) rotate(ctx context.Context) error {
	if err := i.pool.Retire(ctx, i.now()); err != nil {
		return err
	}
	_, err := i.pool.Rotate(ctx)
	return err
}

func (i *Ingestor) pause(ctx context.Context) {
	delay := i.fetcher.ListDelay()
	if delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (s *IngestStats) merge(w *WalkStats) {
	if w == nil {
		return
	}
	s.Pages += w.Pages
	s.Bills += w.Bills
	s.BillsSkipped += w.BillsSkipped
	s.BillsFailed += w.BillsFailed
}

// PrintSummary prints the ingestion statistics
func (i *Ingestor) PrintSummary(stats *IngestStats) {
	i.logger.Println("")
	i.logger.Println("=== Ingestion Summary ===")
	i.logger.Printf("Jurisdictions:   %d", stats.Jurisdictions)
	i.logger.Printf("Completed:       %d", stats.Completed)
	i.logger.Printf("Skipped:         %d (already ingested)", stats.Skipped)
	i.logger.Printf("Incomplete:      %d", stats.Failed)
	i.logger.Printf("Pages fetched:   %d", stats.Pages)
	i.logger.Printf("Bills upserted:  %d", stats.Bills)
	i.logger.Printf("Bills skipped:   %d (unresolved state)", stats.BillsSkipped)
	i.logger.Printf("Bills failed:    %d", stats.BillsFailed)
}
