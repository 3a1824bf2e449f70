package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID    string `bigquery:"user_id"`    // NULLABLE
	AccountID string `bigquery:"account_id"` // NULLABLE

	DocumentID   string `bigquery:"document_id"`    // NULLABLE
	ParsingRunID string `bigquery:"parsing_run_id"` // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	// Direction is "credit" or "debit", derived from the amount's sign.
	Direction string `bigquery:"direction"` // NULLABLE

	RawDescription string `bigquery:"raw_description"` // REQUIRED STRING

	StatementPageNo bigquery.NullInt64 `bigquery:"statement_page_no"` // NULLABLE
	StatementLineNo bigquery.NullInt64 `bigquery:"statement_line_no"` // NULLABLE

	// IsInternalTransfer is set once the transaction is linked as one leg of
	// an internal transfer; TransferLinkID names the active link.
	IsInternalTransfer bigquery.NullBool   `bigquery:"is_internal_transfer"` // NULLABLE
	TransferLinkID     bigquery.NullString `bigquery:"transfer_link_id"`     // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}
