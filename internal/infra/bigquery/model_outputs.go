package bigquery

import "cloud.google.com/go/bigquery"

// ModelOutputRow stores the raw response of an AI extraction call so a
// consolidation decision can always be traced back to what the model said.
type ModelOutputRow struct {
	OutputID     string `bigquery:"output_id"`      // REQUIRED
	ParsingRunID string `bigquery:"parsing_run_id"` // REQUIRED
	DocumentID   string `bigquery:"document_id"`    // REQUIRED

	ModelName    string              `bigquery:"model_name"`    // REQUIRED
	ModelVersion bigquery.NullString `bigquery:"model_version"` // NULLABLE

	// OutputKind distinguishes extraction surfaces, e.g. BALANCES.
	OutputKind string `bigquery:"output_kind"` // REQUIRED

	RawJSON bigquery.NullJSON `bigquery:"raw_json"` // REQUIRED (JSON)

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
	Notes     bigquery.NullString    `bigquery:"notes"`      // NULLABLE
}
