package pipeline

import "github.com/dkraev/fintrack/internal/balance"

// IngestRequest carries everything the pipeline needs to ingest one uploaded
// statement.
type IngestRequest struct {
	UserID    string
	AccountID string

	// GCSURI points at the statement PDF; TextGCSURI at its extracted text
	// layer JSON.
	GCSURI     string
	TextGCSURI string

	// LayoutTemplate names the table layout to parse with, e.g. "barclays".
	LayoutTemplate string

	OriginalFilename string

	// Currency applied to every parsed transaction. Defaults to GBP.
	Currency string
}

// IngestResult summarizes one completed ingestion.
type IngestResult struct {
	DocumentID   string
	ParsingRunID string

	PagesTotal  int
	PagesParsed int

	TransactionCount int

	Balance balance.Consolidated
}
