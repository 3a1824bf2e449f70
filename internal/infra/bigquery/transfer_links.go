package bigquery

import "time"

// TransferLinkRow is a persisted, symmetric pairing between two transactions
// confirmed to be the two legs of one internal transfer. A transaction id
// appears in at most one active link; the guard lives in the link script,
// not here.
type TransferLinkRow struct {
	LinkID string `bigquery:"link_id"` // REQUIRED
	UserID string `bigquery:"user_id"` // REQUIRED

	Transaction1 string `bigquery:"transaction_1"` // REQUIRED
	Transaction2 string `bigquery:"transaction_2"` // REQUIRED

	Confidence float64 `bigquery:"confidence"` // REQUIRED, 0.0-1.0
	Notes      string  `bigquery:"notes"`      // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
