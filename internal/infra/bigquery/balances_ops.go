package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const (
	balanceCandidatesTable    = "balance_candidates"
	consolidatedBalancesTable = "consolidated_balances"
)

// numericParam renders a nullable NUMERIC for query parameters. BigQuery
// query parameters cannot carry a typed NULL NUMERIC directly, so the value
// travels as a nullable string and the SQL casts it back.
func numericParam(r *big.Rat) bigquery.NullString {
	if r == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: r.FloatString(4), Valid: true}
}

// UpsertBalanceCandidateWithClient inserts a page's balance reading or
// replaces the existing reading for the same (statement, page) pair.
func UpsertBalanceCandidateWithClient(ctx context.Context, client *bigquery.Client, row *BalanceCandidateRow) error {
	q := client.Query(`
		MERGE ` + tableRef(balanceCandidatesTable) + ` t
		USING (SELECT @statement_id AS statement_id, @page_number AS page_number) s
		ON t.statement_id = s.statement_id AND t.page_number = s.page_number
		WHEN MATCHED THEN UPDATE SET
			opening_balance = SAFE_CAST(@opening_balance AS NUMERIC),
			closing_balance = SAFE_CAST(@closing_balance AS NUMERIC),
			available_balance = SAFE_CAST(@available_balance AS NUMERIC),
			current_balance = SAFE_CAST(@current_balance AS NUMERIC),
			confidence = @confidence,
			notes = @notes,
			updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN INSERT (
			statement_id, page_number,
			opening_balance, closing_balance, available_balance, current_balance,
			confidence, notes, created_ts
		)
		VALUES (
			@statement_id, @page_number,
			SAFE_CAST(@opening_balance AS NUMERIC),
			SAFE_CAST(@closing_balance AS NUMERIC),
			SAFE_CAST(@available_balance AS NUMERIC),
			SAFE_CAST(@current_balance AS NUMERIC),
			@confidence, @notes, CURRENT_TIMESTAMP()
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: row.StatementID},
		{Name: "page_number", Value: row.PageNumber},
		{Name: "opening_balance", Value: numericParam(row.OpeningBalance)},
		{Name: "closing_balance", Value: numericParam(row.ClosingBalance)},
		{Name: "available_balance", Value: numericParam(row.AvailableBalance)},
		{Name: "current_balance", Value: numericParam(row.CurrentBalance)},
		{Name: "confidence", Value: row.Confidence},
		{Name: "notes", Value: row.Notes},
	}

	return runDML(ctx, q, "UpsertBalanceCandidate")
}

// ListBalanceCandidatesWithClient returns all balance readings recorded for
// a statement, in page order.
func ListBalanceCandidatesWithClient(ctx context.Context, client *bigquery.Client, statementID string) ([]*BalanceCandidateRow, error) {
	q := client.Query(`
		SELECT
			statement_id,
			page_number,
			opening_balance,
			closing_balance,
			available_balance,
			current_balance,
			confidence,
			notes,
			created_ts,
			updated_ts
		FROM ` + tableRef(balanceCandidatesTable) + `
		WHERE statement_id = @statement_id
		ORDER BY page_number
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBalanceCandidates: query read: %w", err)
	}

	var rows []*BalanceCandidateRow
	for {
		var r BalanceCandidateRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBalanceCandidates: iterating: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// UpsertConsolidatedBalanceWithClient writes the statement's consolidated
// balance, replacing any previous consolidation. The write is idempotent and
// safe to retry.
func UpsertConsolidatedBalanceWithClient(ctx context.Context, client *bigquery.Client, row *ConsolidatedBalanceRow) error {
	q := client.Query(`
		MERGE ` + tableRef(consolidatedBalancesTable) + ` t
		USING (SELECT @statement_id AS statement_id) s
		ON t.statement_id = s.statement_id
		WHEN MATCHED THEN UPDATE SET
			closing_balance = SAFE_CAST(@closing_balance AS NUMERIC),
			confidence = @confidence,
			source_page = @source_page,
			notes = @notes,
			computed_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN INSERT (
			statement_id, closing_balance, confidence, source_page, notes, computed_ts
		)
		VALUES (
			@statement_id,
			SAFE_CAST(@closing_balance AS NUMERIC),
			@confidence, @source_page, @notes, CURRENT_TIMESTAMP()
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: row.StatementID},
		{Name: "closing_balance", Value: numericParam(row.ClosingBalance)},
		{Name: "confidence", Value: row.Confidence},
		{Name: "source_page", Value: row.SourcePage},
		{Name: "notes", Value: row.Notes},
	}

	return runDML(ctx, q, "UpsertConsolidatedBalance")
}

// GetConsolidatedBalanceWithClient returns the statement's consolidated
// balance, or nil when consolidation has not run yet.
func GetConsolidatedBalanceWithClient(ctx context.Context, client *bigquery.Client, statementID string) (*ConsolidatedBalanceRow, error) {
	q := client.Query(`
		SELECT
			statement_id,
			closing_balance,
			confidence,
			source_page,
			notes,
			computed_ts
		FROM ` + tableRef(consolidatedBalancesTable) + `
		WHERE statement_id = @statement_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetConsolidatedBalance: query read: %w", err)
	}

	var r ConsolidatedBalanceRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetConsolidatedBalance: iterating: %w", err)
	}

	return &r, nil
}
