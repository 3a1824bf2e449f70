package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/logger"
	"github.com/dkraev/fintrack/internal/notionsync"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	notionToken := flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (or set NOTION_TOKEN env)")
	txDBID := flag.String("transactions-db-id", "", "Notion database ID for transactions (required)")
	balanceDBID := flag.String("balances-db-id", "", "Notion database ID for consolidated balances (optional)")
	userID := flag.String("user", os.Getenv("FINTRACK_USER"), "User whose data to sync (or set FINTRACK_USER env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *txDBID == "" {
		log.Fatal().Msg("Error: --transactions-db-id is required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("user_id", *userID).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	repo, err := bigquery.NewBigQueryStatementRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	notionClient := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncTransactions(ctx, repo, notionClient, *txDBID, *userID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Transaction sync failed")
	}

	if *balanceDBID != "" {
		if err := notionsync.SyncBalances(ctx, repo, notionClient, *balanceDBID, *userID, *dryRun); err != nil {
			log.Fatal().Err(err).Msg("Balance sync failed")
		}
	}

	fmt.Println("Sync completed successfully.")
}
