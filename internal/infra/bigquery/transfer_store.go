package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/transfer"
)

// TransferStore adapts the BigQuery transaction and link tables to the
// transfer domain's Store interface.
type TransferStore struct {
	client *bigquery.Client
}

// NewTransferStoreWithClient wraps an existing BigQuery client.
func NewTransferStoreWithClient(client *bigquery.Client) *TransferStore {
	return &TransferStore{client: client}
}

// GetTransaction returns the user's transaction as a transfer-domain view, or
// transfer.ErrNotFound.
func (s *TransferStore) GetTransaction(ctx context.Context, userID, txnID string) (*transfer.Transaction, error) {
	row, err := GetTransactionWithClient(ctx, s.client, userID, txnID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, transfer.ErrNotFound
	}

	txn := transferTransaction(row)
	return &txn, nil
}

// ListTransactions returns all of the user's transactions as transfer-domain
// views.
func (s *TransferStore) ListTransactions(ctx context.Context, userID string) ([]transfer.Transaction, error) {
	rows, err := ListUserTransactionsWithClient(ctx, s.client, userID)
	if err != nil {
		return nil, err
	}

	txns := make([]transfer.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, transferTransaction(row))
	}
	return txns, nil
}

// CreateLink persists the link and marks both transactions atomically,
// translating the script's conflict signal into transfer.ErrAlreadyLinked.
func (s *TransferStore) CreateLink(ctx context.Context, link transfer.Link) error {
	row := &TransferLinkRow{
		LinkID:       link.ID,
		UserID:       link.UserID,
		Transaction1: link.Transaction1,
		Transaction2: link.Transaction2,
		Confidence:   link.Confidence,
		Notes:        link.Notes,
		CreatedTS:    link.CreatedAt,
	}

	if err := CreateTransferLinkWithClient(ctx, s.client, row); err != nil {
		if IsLinkConflict(err) {
			return transfer.ErrAlreadyLinked
		}
		return fmt.Errorf("creating transfer link: %w", err)
	}
	return nil
}

// RemoveLink clears any link touching txnID. No-op when unlinked.
func (s *TransferStore) RemoveLink(ctx context.Context, userID, txnID string) error {
	return RemoveTransferLinkWithClient(ctx, s.client, userID, txnID)
}

// GetLink returns the active link touching txnID, or nil when unlinked.
func (s *TransferStore) GetLink(ctx context.Context, userID, txnID string) (*transfer.Link, error) {
	row, err := GetTransferLinkForTransactionWithClient(ctx, s.client, userID, txnID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	return &transfer.Link{
		ID:           row.LinkID,
		UserID:       row.UserID,
		Transaction1: row.Transaction1,
		Transaction2: row.Transaction2,
		Confidence:   row.Confidence,
		Notes:        row.Notes,
		CreatedAt:    row.CreatedTS,
	}, nil
}

var _ transfer.Store = (*TransferStore)(nil)

// transferTransaction maps a stored row to the detector's view. NUMERIC
// amounts round to 4 decimal places, matching what the upsert scripts write.
func transferTransaction(row *TransactionRow) transfer.Transaction {
	var amount decimal.Decimal
	if row.Amount != nil {
		amount = decimal.NewFromBigRat(row.Amount, 4)
	}

	return transfer.Transaction{
		ID:          row.TransactionID,
		UserID:      row.UserID,
		AccountID:   row.AccountID,
		Date:        row.TransactionDate.In(time.UTC),
		Description: row.RawDescription,
		Amount:      amount,
		Linked:      row.TransferLinkID.Valid && row.TransferLinkID.StringVal != "",
		Internal:    row.IsInternalTransfer.Valid && row.IsInternalTransfer.Bool,
	}
}
