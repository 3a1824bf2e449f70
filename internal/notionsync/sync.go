// Package notionsync mirrors ingested transactions and consolidated balances
// into Notion databases. The sync is one-directional: BigQuery is the source
// of truth, Notion is a view.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/logger"
)

// BatchSize is the number of rows processed per logging batch.
const BatchSize = 100

// SyncTransactions mirrors a user's transactions into the Notion database.
// Pages are keyed by the "Transaction ID" property: existing pages are left
// alone, stale pages (no longer in BigQuery) are archived, missing ones are
// created. The whole run is observable via the context logger.
func SyncTransactions(ctx context.Context, repo bigquery.StatementRepository, notionClient NotionService, notionDBID, userID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("user_id", userID).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	transactions, err := repo.ListUserTransactions(ctx, userID)
	if err != nil {
		return fmt.Errorf("querying transactions: %w", err)
	}

	validIDs := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		validIDs[tx.TransactionID] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("querying Notion pages: %w", err)
	}

	existingIDs := make(map[string]bool, len(notionPages))
	for _, page := range notionPages {
		if txID := extractSyncKey(page, "Transaction ID"); txID != "" {
			existingIDs[txID] = true
		}
	}

	// Archive pages whose transaction no longer exists upstream.
	var deleted int
	for _, page := range notionPages {
		txID := extractSyncKey(page, "Transaction ID")
		if txID != "" && validIDs[txID] {
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			deleted++
			continue
		}

		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			continue
		}
		deleted++
	}

	var created, skipped int
	for i, tx := range transactions {
		if i%BatchSize == 0 {
			log.Info().Int("processed", i).Int("total", len(transactions)).Msg("Sync progress")
		}

		if existingIDs[tx.TransactionID] {
			skipped++
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", tx.TransactionID).Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		props := TransactionToNotionProperties(tx)
		if _, err := notionClient.CreatePage(ctx, notionDBID, props); err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.TransactionID).Msg("Failed to create Notion page")
			continue
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("archived", deleted).
		Int("total", len(transactions)).
		Msg("Transaction sync to Notion finished")

	return nil
}

// SyncBalances mirrors the consolidated balance of every statement the user
// owns into the Notion balances database, keyed by the "Statement ID" title.
func SyncBalances(ctx context.Context, repo bigquery.StatementRepository, notionClient NotionService, notionDBID, userID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	documents, err := repo.ListUserDocuments(ctx, userID)
	if err != nil {
		return fmt.Errorf("querying documents: %w", err)
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("querying Notion pages: %w", err)
	}

	// Statement id -> page id, so reconsolidated balances update in place.
	pageByStatement := make(map[string]string, len(notionPages))
	for _, page := range notionPages {
		if id := extractTitleKey(page, "Statement ID"); id != "" {
			pageByStatement[id] = string(page.ID)
		}
	}

	var created, updated, skipped int
	for _, doc := range documents {
		row, err := repo.GetConsolidatedBalance(ctx, doc.DocumentID)
		if err != nil {
			return fmt.Errorf("querying consolidated balance for %s: %w", doc.DocumentID, err)
		}
		if row == nil {
			skipped++
			continue
		}

		if dryRun {
			log.Info().Str("statement_id", row.StatementID).Msg("[DRY RUN] Would sync consolidated balance")
			continue
		}

		props := BalanceToNotionProperties(row)
		if pageID, ok := pageByStatement[row.StatementID]; ok {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("statement_id", row.StatementID).Msg("Failed to update balance page")
				continue
			}
			updated++
		} else {
			if _, err := notionClient.CreatePage(ctx, notionDBID, props); err != nil {
				log.Warn().Err(err).Str("statement_id", row.StatementID).Msg("Failed to create balance page")
				continue
			}
			created++
		}
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Msg("Balance sync to Notion finished")

	return nil
}

// queryAllNotionPages pages through the whole database.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    100,
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}

		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// extractTitleKey pulls the title property text from a Notion page.
func extractTitleKey(page notionapi.Page, property string) string {
	prop, ok := page.Properties[property]
	if !ok {
		return ""
	}

	title, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		return ""
	}

	return title.Title[0].PlainText
}
