package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// StatementRepository is the persistence surface the pipeline and the API
// consume. The concrete implementation below talks to BigQuery; tests supply
// function-field mocks.
type StatementRepository interface {
	InsertDocument(ctx context.Context, row *DocumentRow) error
	ListUserDocuments(ctx context.Context, userID string) ([]*DocumentRow, error)
	GetDocument(ctx context.Context, documentID string) (*DocumentRow, error)
	UpdateDocumentStatus(ctx context.Context, documentID, status string) error
	SetDocumentTextLayer(ctx context.Context, documentID, textGCSURI string) error

	StartParsingRun(ctx context.Context, documentID, parserType, parserVersion string) (string, error)
	MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, pagesTotal, pagesParsed int) error
	MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) error

	InsertModelOutput(ctx context.Context, row *ModelOutputRow) error

	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
	ListUserTransactions(ctx context.Context, userID string) ([]*TransactionRow, error)

	UpsertAccount(ctx context.Context, row *AccountRow) (string, error)
	ListUserAccounts(ctx context.Context, userID string) ([]*AccountRow, error)

	UpsertBalanceCandidate(ctx context.Context, row *BalanceCandidateRow) error
	ListBalanceCandidates(ctx context.Context, statementID string) ([]*BalanceCandidateRow, error)
	UpsertConsolidatedBalance(ctx context.Context, row *ConsolidatedBalanceRow) error
	GetConsolidatedBalance(ctx context.Context, statementID string) (*ConsolidatedBalanceRow, error)
}

// BigQueryStatementRepository is the concrete StatementRepository. It holds a
// shared BigQuery client to avoid creating a new connection per operation.
type BigQueryStatementRepository struct {
	client *bigquery.Client
}

// NewBigQueryStatementRepository creates a repository with a shared BigQuery
// client.
func NewBigQueryStatementRepository(ctx context.Context) (*BigQueryStatementRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryStatementRepository: creating client: %w", err)
	}
	return &BigQueryStatementRepository{client: client}, nil
}

// Close closes the BigQuery client connection. Call when the repository is no
// longer needed.
func (r *BigQueryStatementRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// TransferStore returns the transfer-domain view over the same client.
func (r *BigQueryStatementRepository) TransferStore() *TransferStore {
	return &TransferStore{client: r.client}
}

func (r *BigQueryStatementRepository) InsertDocument(ctx context.Context, row *DocumentRow) error {
	return InsertDocumentWithClient(ctx, r.client, row)
}

func (r *BigQueryStatementRepository) ListUserDocuments(ctx context.Context, userID string) ([]*DocumentRow, error) {
	return ListUserDocumentsWithClient(ctx, r.client, userID)
}

func (r *BigQueryStatementRepository) GetDocument(ctx context.Context, documentID string) (*DocumentRow, error) {
	return GetDocumentWithClient(ctx, r.client, documentID)
}

func (r *BigQueryStatementRepository) UpdateDocumentStatus(ctx context.Context, documentID, status string) error {
	return UpdateDocumentStatusWithClient(ctx, r.client, documentID, status)
}

func (r *BigQueryStatementRepository) SetDocumentTextLayer(ctx context.Context, documentID, textGCSURI string) error {
	return SetDocumentTextLayerWithClient(ctx, r.client, documentID, textGCSURI)
}

func (r *BigQueryStatementRepository) StartParsingRun(ctx context.Context, documentID, parserType, parserVersion string) (string, error) {
	return StartParsingRunWithClient(ctx, r.client, documentID, parserType, parserVersion)
}

func (r *BigQueryStatementRepository) MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, pagesTotal, pagesParsed int) error {
	return MarkParsingRunSucceededWithClient(ctx, r.client, parsingRunID, pagesTotal, pagesParsed)
}

func (r *BigQueryStatementRepository) MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) error {
	return MarkParsingRunFailedWithClient(ctx, r.client, parsingRunID, parseErr)
}

func (r *BigQueryStatementRepository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	return InsertModelOutputWithClient(ctx, r.client, row)
}

func (r *BigQueryStatementRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, rows)
}

func (r *BigQueryStatementRepository) ListUserTransactions(ctx context.Context, userID string) ([]*TransactionRow, error) {
	return ListUserTransactionsWithClient(ctx, r.client, userID)
}

func (r *BigQueryStatementRepository) UpsertAccount(ctx context.Context, row *AccountRow) (string, error) {
	return UpsertAccountWithClient(ctx, r.client, row)
}

func (r *BigQueryStatementRepository) ListUserAccounts(ctx context.Context, userID string) ([]*AccountRow, error) {
	return ListUserAccountsWithClient(ctx, r.client, userID)
}

func (r *BigQueryStatementRepository) UpsertBalanceCandidate(ctx context.Context, row *BalanceCandidateRow) error {
	return UpsertBalanceCandidateWithClient(ctx, r.client, row)
}

func (r *BigQueryStatementRepository) ListBalanceCandidates(ctx context.Context, statementID string) ([]*BalanceCandidateRow, error) {
	return ListBalanceCandidatesWithClient(ctx, r.client, statementID)
}

func (r *BigQueryStatementRepository) UpsertConsolidatedBalance(ctx context.Context, row *ConsolidatedBalanceRow) error {
	return UpsertConsolidatedBalanceWithClient(ctx, r.client, row)
}

func (r *BigQueryStatementRepository) GetConsolidatedBalance(ctx context.Context, statementID string) (*ConsolidatedBalanceRow, error) {
	return GetConsolidatedBalanceWithClient(ctx, r.client, statementID)
}
