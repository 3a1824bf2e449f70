package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transferLinksTable = "transfer_links"

// linkConflictMessage is raised by the link script when either transaction
// already participates in an active link. Callers match on it to translate
// the failure into a domain error.
const linkConflictMessage = "transfer link conflict"

// IsLinkConflict reports whether err is the link script's conflict signal.
func IsLinkConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), linkConflictMessage)
}

// CreateTransferLinkWithClient persists a link and marks both transactions
// as linked in one multi-statement transaction. The IF EXISTS guard
// serializes concurrent link attempts touching the same transaction: the
// second attempt sees the first one's transfer_link_id and aborts.
func CreateTransferLinkWithClient(ctx context.Context, client *bigquery.Client, row *TransferLinkRow) error {
	q := client.Query(`
		BEGIN TRANSACTION;

		IF EXISTS (
			SELECT 1 FROM ` + tableRef(transactionsTable) + `
			WHERE transaction_id IN (@transaction_1, @transaction_2)
			  AND transfer_link_id IS NOT NULL
		) THEN
			RAISE USING MESSAGE = '` + linkConflictMessage + `';
		END IF;

		INSERT INTO ` + tableRef(transferLinksTable) + ` (
			link_id, user_id, transaction_1, transaction_2, confidence, notes, created_ts
		)
		VALUES (
			@link_id, @user_id, @transaction_1, @transaction_2, @confidence, @notes, @created_ts
		);

		UPDATE ` + tableRef(transactionsTable) + `
		SET transfer_link_id = @link_id,
		    is_internal_transfer = TRUE,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id IN (@transaction_1, @transaction_2)
		  AND user_id = @user_id;

		COMMIT TRANSACTION;
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "link_id", Value: row.LinkID},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_1", Value: row.Transaction1},
		{Name: "transaction_2", Value: row.Transaction2},
		{Name: "confidence", Value: row.Confidence},
		{Name: "notes", Value: row.Notes},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	return runDML(ctx, q, "CreateTransferLink")
}

// RemoveTransferLinkWithClient removes the link touching the given
// transaction and clears the linked state of both legs. Removing from an
// unlinked transaction is a no-op.
func RemoveTransferLinkWithClient(ctx context.Context, client *bigquery.Client, userID, transactionID string) error {
	q := client.Query(`
		DECLARE target_link STRING;

		SET target_link = (
			SELECT transfer_link_id FROM ` + tableRef(transactionsTable) + `
			WHERE transaction_id = @transaction_id AND user_id = @user_id
		);

		IF target_link IS NOT NULL THEN
			BEGIN TRANSACTION;

			UPDATE ` + tableRef(transactionsTable) + `
			SET transfer_link_id = NULL,
			    is_internal_transfer = FALSE,
			    updated_ts = CURRENT_TIMESTAMP()
			WHERE transfer_link_id = target_link;

			DELETE FROM ` + tableRef(transferLinksTable) + `
			WHERE link_id = target_link;

			COMMIT TRANSACTION;
		END IF;
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	return runDML(ctx, q, "RemoveTransferLink")
}

// GetTransferLinkForTransactionWithClient returns the active link touching
// the given transaction, or nil.
func GetTransferLinkForTransactionWithClient(ctx context.Context, client *bigquery.Client, userID, transactionID string) (*TransferLinkRow, error) {
	q := client.Query(`
		SELECT
			link_id, user_id, transaction_1, transaction_2, confidence, notes, created_ts
		FROM ` + tableRef(transferLinksTable) + `
		WHERE user_id = @user_id
		  AND (transaction_1 = @transaction_id OR transaction_2 = @transaction_id)
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransferLinkForTransaction: query read: %w", err)
	}

	var r TransferLinkRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransferLinkForTransaction: iterating: %w", err)
	}

	return &r, nil
}
