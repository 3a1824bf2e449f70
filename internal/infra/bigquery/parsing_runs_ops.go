package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

const parsingRunsTable = "parsing_runs"

// StartParsingRunWithClient creates a parsing_runs row with status=RUNNING
// and returns its id.
func StartParsingRunWithClient(ctx context.Context, client *bigquery.Client, documentID, parserType, parserVersion string) (string, error) {
	parsingRunID := uuid.NewString()

	q := client.Query(`
		INSERT INTO ` + tableRef(parsingRunsTable) + ` (
			parsing_run_id,
			document_id,
			started_ts,
			parser_type,
			parser_version,
			status
		)
		VALUES (
			@parsing_run_id,
			@document_id,
			@started_ts,
			@parser_type,
			@parser_version,
			@status
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "parser_type", Value: parserType},
		{Name: "parser_version", Value: parserVersion},
		{Name: "status", Value: "RUNNING"},
	}

	if err := runDML(ctx, q, "StartParsingRun"); err != nil {
		return "", err
	}

	return parsingRunID, nil
}

// MarkParsingRunSucceededWithClient updates a parsing run to status=SUCCESS
// and records the page counts.
func MarkParsingRunSucceededWithClient(ctx context.Context, client *bigquery.Client, parsingRunID string, pagesTotal, pagesParsed int) error {
	q := client.Query(`
		UPDATE ` + tableRef(parsingRunsTable) + `
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    pages_total = @pages_total,
		    pages_parsed = @pages_parsed
		WHERE parsing_run_id = @parsing_run_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "pages_total", Value: int64(pagesTotal)},
		{Name: "pages_parsed", Value: int64(pagesParsed)},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	return runDML(ctx, q, "MarkParsingRunSucceeded")
}

// MarkParsingRunFailedWithClient updates a parsing run to status=FAILED.
// Failures to record the failure are logged upstream, not propagated, so the
// original pipeline error stays the one the caller sees.
func MarkParsingRunFailedWithClient(ctx context.Context, client *bigquery.Client, parsingRunID string, parseErr error) error {
	errMsg := ""
	if parseErr != nil {
		errMsg = parseErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := client.Query(`
		UPDATE ` + tableRef(parsingRunsTable) + `
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE parsing_run_id = @parsing_run_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := runDML(ctx, q, "MarkParsingRunFailed"); err != nil {
		return fmt.Errorf("recording run failure: %w", err)
	}
	return nil
}
