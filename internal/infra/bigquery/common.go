// Package bigquery holds the row types and repository operations for the
// fintrack dataset. Every operation has a ...WithClient variant so callers
// can share one client across calls.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	projectID = "fintrack-prod-470211"
	datasetID = "fintrack"
)

// tableRef returns the fully qualified, backtick-quoted table name.
func tableRef(table string) string {
	return "`" + projectID + "." + datasetID + "." + table + "`"
}

// runDML runs a DML query or script and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}

	return nil
}
