package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
)

// BalanceCandidateRow is one page's balance reading for a statement.
// There is at most one row per (statement_id, page_number); re-extraction
// replaces the existing row.
type BalanceCandidateRow struct {
	StatementID string `bigquery:"statement_id"` // REQUIRED (document_id)
	PageNumber  int64  `bigquery:"page_number"`  // REQUIRED

	OpeningBalance   *big.Rat `bigquery:"opening_balance"`   // NULLABLE NUMERIC
	ClosingBalance   *big.Rat `bigquery:"closing_balance"`   // NULLABLE NUMERIC
	AvailableBalance *big.Rat `bigquery:"available_balance"` // NULLABLE NUMERIC
	CurrentBalance   *big.Rat `bigquery:"current_balance"`   // NULLABLE NUMERIC

	Confidence int64  `bigquery:"confidence"` // REQUIRED, 0-100
	Notes      string `bigquery:"notes"`      // NULLABLE

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // NULLABLE
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// ConsolidatedBalanceRow is the single balance chosen for a statement.
// Exactly one row per statement; always recomputed from the full candidate
// set, never edited by hand.
type ConsolidatedBalanceRow struct {
	StatementID string `bigquery:"statement_id"` // REQUIRED

	ClosingBalance *big.Rat `bigquery:"closing_balance"` // NULLABLE NUMERIC

	Confidence int64  `bigquery:"confidence"`  // REQUIRED
	SourcePage int64  `bigquery:"source_page"` // NULLABLE, 0 when no source
	Notes      string `bigquery:"notes"`       // NULLABLE

	ComputedTS bigquery.NullTimestamp `bigquery:"computed_ts"` // NULLABLE
}
