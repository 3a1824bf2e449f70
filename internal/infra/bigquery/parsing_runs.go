package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

type ParsingRunRow struct {
	ParsingRunID string `bigquery:"parsing_run_id"` // REQUIRED
	DocumentID   string `bigquery:"document_id"`    // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	ParserType    string `bigquery:"parser_type"`    // NULLABLE, e.g. LAYOUT_TABLE
	ParserVersion string `bigquery:"parser_version"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	// PagesTotal and PagesParsed record how many pages the statement had and
	// how many yielded a table; skipped pages are normal, not failures.
	PagesTotal  bigquery.NullInt64 `bigquery:"pages_total"`  // NULLABLE
	PagesParsed bigquery.NullInt64 `bigquery:"pages_parsed"` // NULLABLE

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE
}
