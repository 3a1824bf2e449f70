package bigquery

import "cloud.google.com/go/bigquery"

type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED

	UserID        string `bigquery:"user_id"`        // NULLABLE
	InstitutionID string `bigquery:"institution_id"` // NULLABLE
	AccountName   string `bigquery:"account_name"`   // NULLABLE
	AccountNumber string `bigquery:"account_number"` // NULLABLE
	SortCode      string `bigquery:"sort_code"`      // NULLABLE
	Currency      string `bigquery:"currency"`       // NULLABLE
	AccountType   string `bigquery:"account_type"`   // NULLABLE

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // NULLABLE
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}
