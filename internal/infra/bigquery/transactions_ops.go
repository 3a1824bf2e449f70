package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// InsertTransactions inserts a batch of TransactionRow into
// fintrack.transactions.
func InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertTransactions: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertTransactionsWithClient(ctx, client, rows)
}

// InsertTransactionsWithClient inserts a batch of TransactionRow using the
// provided BigQuery client.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return nil
}

const transactionColumns = `
	t.transaction_id,
	t.user_id,
	t.account_id,
	t.document_id,
	t.parsing_run_id,
	t.transaction_date,
	t.amount,
	t.currency,
	t.direction,
	t.raw_description,
	t.statement_page_no,
	t.statement_line_no,
	t.is_internal_transfer,
	t.transfer_link_id,
	t.created_ts,
	t.updated_ts`

// ListUserTransactionsWithClient returns all of a user's transactions from
// successful parsing runs, oldest first.
func ListUserTransactionsWithClient(ctx context.Context, client *bigquery.Client, userID string) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT` + transactionColumns + `
		FROM ` + tableRef(transactionsTable) + ` t
		INNER JOIN ` + tableRef(parsingRunsTable) + ` pr
		  ON t.parsing_run_id = pr.parsing_run_id
		WHERE t.user_id = @user_id
		  AND pr.status = 'SUCCESS'
		ORDER BY t.transaction_date, t.created_ts
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListUserTransactions: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUserTransactions: iterating: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// GetTransactionWithClient returns one of the user's transactions by id, or
// nil when the id does not resolve to a transaction owned by the user.
func GetTransactionWithClient(ctx context.Context, client *bigquery.Client, userID, transactionID string) (*TransactionRow, error) {
	q := client.Query(`
		SELECT` + transactionColumns + `
		FROM ` + tableRef(transactionsTable) + ` t
		WHERE t.transaction_id = @transaction_id
		  AND t.user_id = @user_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var r TransactionRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: iterating: %w", err)
	}

	return &r, nil
}
