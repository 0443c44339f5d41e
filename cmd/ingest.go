package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jjenkins/statehouse/internal/service"
	"github.com/jjenkins/statehouse/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	ingestAPIKey       string
	ingestJurisdiction string
	ingestPage         int
	ingestBillID       string
	ingestCreatedSince string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest state legislature bills from the OpenStates API",
	Long: `Ingest downloads and stores state legislative bill data from the
OpenStates v3 API: bill headers, sponsor sets, and action histories.

Pagination is strictly sequential with a fixed delay after every request.
When the current API key is rate limited it is retired and the pool rotates
to the next available key; the same page is retried with the fresh key.
Jurisdictions whose listing was fully paginated are recorded and skipped on
later runs.

Examples:
  # Ingest all jurisdictions not yet completed
  ./statehouse ingest

  # Ingest a single jurisdiction, resuming at page 12
  ./statehouse ingest --jurisdiction ocd-jurisdiction/country:us/state:al/government --page 12

  # Ingest one bill by its OpenStates id
  ./statehouse ingest --bill ocd-bill/xxxx

  # Override the stored credential pool for this run
  ./statehouse ingest --api-key d8f61d86-...`,
	Run: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestAPIKey, "api-key", "", "Override the stored credential pool with a single key")
	ingestCmd.Flags().StringVar(&ingestJurisdiction, "jurisdiction", "", "Ingest only this jurisdiction id")
	ingestCmd.Flags().IntVar(&ingestPage, "page", 1, "Page to start pagination from")
	ingestCmd.Flags().StringVar(&ingestBillID, "bill", "", "Ingest a single bill by its OpenStates id")
	ingestCmd.Flags().StringVar(&ingestCreatedSince, "created-since", "", "Reserved: accepted but not applied to any request (YYYY-MM-DD)")
}

func runIngest(cmd *cobra.Command, args []string) {
	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if ingestCreatedSince != "" {
		if _, err := time.Parse("2006-01-02", ingestCreatedSince); err != nil {
			log.Fatalf("Invalid --created-since date: %v", err)
		}
		log.Printf("Note: --created-since=%s is reserved and not applied to any request", ingestCreatedSince)
	}

	// Connect to database
	log.Println("Connecting to database...")
	db, err := store.NewDB(viper.GetString("database.url"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Create dependencies
	client := service.NewClient(clientConfigFromViper())
	billStore := store.NewBillStore(db)
	progressStore := store.NewProgressStore(db)

	var pool *service.CredentialPool
	if ingestAPIKey != "" {
		log.Println("Using operator-supplied API key (stored pool bypassed)")
		pool = service.NewStaticPool(ingestAPIKey)
	} else {
		pool = service.NewCredentialPool(store.NewCredentialStore(db))
	}

	resolver := service.NewChainResolver(store.NewLegislatorStore(db))
	dispatcher := service.NewCommandDispatcher(viper.GetStringMapString("text_commands"))
	upserter := service.NewBillUpserter(billStore, store.NewStateStore(db), store.NewSessionStore(db), resolver, dispatcher)
	walker := service.NewPageWalker(client, upserter, pool, progressStore)
	ingestor := service.NewIngestor(client, pool, walker, upserter, progressStore)

	// Handle single bill ingestion
	if ingestBillID != "" {
		log.Printf("Ingesting bill %s", ingestBillID)
		if err := ingestor.IngestBill(ctx, ingestBillID); err != nil {
			if ctx.Err() != nil {
				log.Println("Ingestion cancelled")
				os.Exit(1)
			}
			log.Fatalf("Bill ingestion failed: %v", err)
		}
		log.Println("Command ran successfully")
		return
	}

	// Handle single jurisdiction ingestion
	if ingestJurisdiction != "" {
		log.Printf("Ingesting jurisdiction %s from page %d", ingestJurisdiction, ingestPage)
		stats, err := ingestor.IngestJurisdiction(ctx, ingestJurisdiction, ingestPage)
		ingestor.PrintSummary(stats)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Ingestion cancelled")
				os.Exit(1)
			}
			log.Fatalf("Ingestion failed: %v", err)
		}
		if stats.Failed > 0 || stats.BillsFailed > 0 {
			os.Exit(1)
		}
		return
	}

	// Run all-jurisdictions ingestion
	log.Println("Starting ingestion for all jurisdictions...")
	stats, err := ingestor.IngestAll(ctx, ingestPage)
	ingestor.PrintSummary(stats)
	if err != nil {
		if ctx.Err() != nil {
			log.Println("Ingestion cancelled")
			os.Exit(1)
		}
		log.Fatalf("Ingestion failed: %v", err)
	}
	if stats.Failed > 0 || stats.BillsFailed > 0 {
		os.Exit(1)
	}
	log.Println("Command ran successfully")
}
