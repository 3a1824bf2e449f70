package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/aibalance"
	"github.com/dkraev/fintrack/internal/balance"
	infra "github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/textlayer"
)

type mockRepo struct {
	insertDocumentFunc            func(ctx context.Context, row *infra.DocumentRow) error
	updateDocumentStatusFunc      func(ctx context.Context, documentID, status string) error
	setDocumentTextLayerFunc      func(ctx context.Context, documentID, textGCSURI string) error
	startParsingRunFunc           func(ctx context.Context, documentID, parserType, parserVersion string) (string, error)
	markParsingRunSucceededFunc   func(ctx context.Context, parsingRunID string, pagesTotal, pagesParsed int) error
	markParsingRunFailedFunc      func(ctx context.Context, parsingRunID string, parseErr error) error
	insertModelOutputFunc         func(ctx context.Context, row *infra.ModelOutputRow) error
	insertTransactionsFunc        func(ctx context.Context, rows []*infra.TransactionRow) error
	upsertBalanceCandidateFunc    func(ctx context.Context, row *infra.BalanceCandidateRow) error
	listBalanceCandidatesFunc     func(ctx context.Context, statementID string) ([]*infra.BalanceCandidateRow, error)
	upsertConsolidatedBalanceFunc func(ctx context.Context, row *infra.ConsolidatedBalanceRow) error
}

func (m *mockRepo) InsertDocument(ctx context.Context, row *infra.DocumentRow) error {
	if m.insertDocumentFunc != nil {
		return m.insertDocumentFunc(ctx, row)
	}
	return nil
}

func (m *mockRepo) ListUserDocuments(ctx context.Context, userID string) ([]*infra.DocumentRow, error) {
	return nil, nil
}

func (m *mockRepo) GetDocument(ctx context.Context, documentID string) (*infra.DocumentRow, error) {
	return nil, nil
}

func (m *mockRepo) UpdateDocumentStatus(ctx context.Context, documentID, status string) error {
	if m.updateDocumentStatusFunc != nil {
		return m.updateDocumentStatusFunc(ctx, documentID, status)
	}
	return nil
}

func (m *mockRepo) SetDocumentTextLayer(ctx context.Context, documentID, textGCSURI string) error {
	if m.setDocumentTextLayerFunc != nil {
		return m.setDocumentTextLayerFunc(ctx, documentID, textGCSURI)
	}
	return nil
}

func (m *mockRepo) StartParsingRun(ctx context.Context, documentID, parserType, parserVersion string) (string, error) {
	if m.startParsingRunFunc != nil {
		return m.startParsingRunFunc(ctx, documentID, parserType, parserVersion)
	}
	return "run-1", nil
}

func (m *mockRepo) MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, pagesTotal, pagesParsed int) error {
	if m.markParsingRunSucceededFunc != nil {
		return m.markParsingRunSucceededFunc(ctx, parsingRunID, pagesTotal, pagesParsed)
	}
	return nil
}

func (m *mockRepo) MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) error {
	if m.markParsingRunFailedFunc != nil {
		return m.markParsingRunFailedFunc(ctx, parsingRunID, parseErr)
	}
	return nil
}

func (m *mockRepo) InsertModelOutput(ctx context.Context, row *infra.ModelOutputRow) error {
	if m.insertModelOutputFunc != nil {
		return m.insertModelOutputFunc(ctx, row)
	}
	return nil
}

func (m *mockRepo) InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error {
	if m.insertTransactionsFunc != nil {
		return m.insertTransactionsFunc(ctx, rows)
	}
	return nil
}

func (m *mockRepo) ListUserTransactions(ctx context.Context, userID string) ([]*infra.TransactionRow, error) {
	return nil, nil
}

func (m *mockRepo) UpsertAccount(ctx context.Context, row *infra.AccountRow) (string, error) {
	return "", nil
}

func (m *mockRepo) ListUserAccounts(ctx context.Context, userID string) ([]*infra.AccountRow, error) {
	return nil, nil
}

func (m *mockRepo) UpsertBalanceCandidate(ctx context.Context, row *infra.BalanceCandidateRow) error {
	if m.upsertBalanceCandidateFunc != nil {
		return m.upsertBalanceCandidateFunc(ctx, row)
	}
	return nil
}

func (m *mockRepo) ListBalanceCandidates(ctx context.Context, statementID string) ([]*infra.BalanceCandidateRow, error) {
	if m.listBalanceCandidatesFunc != nil {
		return m.listBalanceCandidatesFunc(ctx, statementID)
	}
	return nil, nil
}

func (m *mockRepo) UpsertConsolidatedBalance(ctx context.Context, row *infra.ConsolidatedBalanceRow) error {
	if m.upsertConsolidatedBalanceFunc != nil {
		return m.upsertConsolidatedBalanceFunc(ctx, row)
	}
	return nil
}

func (m *mockRepo) GetConsolidatedBalance(ctx context.Context, statementID string) (*infra.ConsolidatedBalanceRow, error) {
	return nil, nil
}

type mockStorage struct {
	fetchFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *mockStorage) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return nil
}

func (m *mockStorage) UploadStream(ctx context.Context, bucketName, objectName string, r io.Reader) error {
	return nil
}

func (m *mockStorage) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, gcsURI)
	}
	return []byte("%PDF-1.4"), nil
}

func (m *mockStorage) FilenameFromURI(uri string) string {
	return "statement.pdf"
}

type mockTextProvider struct {
	textLayerFunc func(ctx context.Context, textURI string) ([]textlayer.Page, error)
}

func (m *mockTextProvider) TextLayer(ctx context.Context, textURI string) ([]textlayer.Page, error) {
	return m.textLayerFunc(ctx, textURI)
}

type mockExtractor struct {
	extractFunc func(ctx context.Context, statementID string, pdfBytes []byte) (*aibalance.Result, error)
}

func (m *mockExtractor) ExtractBalances(ctx context.Context, statementID string, pdfBytes []byte) (*aibalance.Result, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, statementID, pdfBytes)
	}
	return &aibalance.Result{Raw: map[string]interface{}{"pages": nil}}, nil
}

// barclaysPage builds one text layer page carrying a barclays-style table
// with a single credit transaction.
func barclaysPage(number int) textlayer.Page {
	return textlayer.Page{
		Number: number,
		Items: []textlayer.TextItem{
			{Text: "Date", X: 10, Y: 100, Width: 12},
			{Text: "Description", X: 40, Y: 100, Width: 50},
			{Text: "Money out", X: 150, Y: 100, Width: 25},
			{Text: "Money in", X: 200, Y: 100, Width: 22},
			{Text: "Balance", X: 250, Y: 100, Width: 20},
			{Text: "15/01/2024", X: 12, Y: 90, Width: 40},
			{Text: "ACME PAYROLL", X: 110, Y: 90, Width: 35},
			{Text: "£1,250.00", X: 205, Y: 90, Width: 20},
		},
	}
}

// headerlessPage has content but no recognizable table header.
func headerlessPage(number int) textlayer.Page {
	return textlayer.Page{
		Number: number,
		Items: []textlayer.TextItem{
			{Text: "Your statement continues overleaf", X: 40, Y: 50, Width: 120},
		},
	}
}

func testRequest() IngestRequest {
	return IngestRequest{
		UserID:         "user-1",
		AccountID:      "acct-1",
		GCSURI:         "gs://bucket/uploads/statement.pdf",
		TextGCSURI:     "gs://bucket/text/statement.json",
		LayoutTemplate: "barclays",
	}
}

func TestIngestStatement(t *testing.T) {
	closing := decimal.RequireFromString("69500.00")

	var (
		documentStatuses []string
		textLayerURI     string
		insertedRows     []*infra.TransactionRow
		candidateUpserts int
		consolidatedRow  *infra.ConsolidatedBalanceRow
		runClosed        bool
	)

	repo := &mockRepo{
		updateDocumentStatusFunc: func(ctx context.Context, documentID, status string) error {
			documentStatuses = append(documentStatuses, status)
			return nil
		},
		setDocumentTextLayerFunc: func(ctx context.Context, documentID, textGCSURI string) error {
			textLayerURI = textGCSURI
			return nil
		},
		markParsingRunSucceededFunc: func(ctx context.Context, parsingRunID string, pagesTotal, pagesParsed int) error {
			runClosed = true
			if parsingRunID != "run-1" {
				t.Errorf("Expected run-1, got %s", parsingRunID)
			}
			if pagesTotal != 2 || pagesParsed != 1 {
				t.Errorf("Expected 1/2 pages parsed, got %d/%d", pagesParsed, pagesTotal)
			}
			return nil
		},
		insertModelOutputFunc: func(ctx context.Context, row *infra.ModelOutputRow) error {
			if row.OutputKind != "BALANCES" {
				t.Errorf("Expected output kind BALANCES, got %s", row.OutputKind)
			}
			if !row.RawJSON.Valid {
				t.Error("Expected raw model output to be stored")
			}
			return nil
		},
		insertTransactionsFunc: func(ctx context.Context, rows []*infra.TransactionRow) error {
			insertedRows = rows
			return nil
		},
		upsertBalanceCandidateFunc: func(ctx context.Context, row *infra.BalanceCandidateRow) error {
			candidateUpserts++
			return nil
		},
		upsertConsolidatedBalanceFunc: func(ctx context.Context, row *infra.ConsolidatedBalanceRow) error {
			consolidatedRow = row
			return nil
		},
	}

	text := &mockTextProvider{
		textLayerFunc: func(ctx context.Context, textURI string) ([]textlayer.Page, error) {
			return []textlayer.Page{barclaysPage(1), headerlessPage(2)}, nil
		},
	}
	extractor := &mockExtractor{
		extractFunc: func(ctx context.Context, statementID string, pdfBytes []byte) (*aibalance.Result, error) {
			return &aibalance.Result{
				Candidates: []balance.Candidate{
					{StatementID: statementID, PageNumber: 1, ClosingBalance: &closing, Confidence: 95},
				},
				Raw: map[string]interface{}{"pages": []interface{}{}},
			}, nil
		},
	}

	p := New(repo, &mockStorage{}, text, extractor, zerolog.Nop(), 2)

	result, err := p.IngestStatement(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected ingestion to succeed, got %v", err)
	}

	if result.PagesTotal != 2 || result.PagesParsed != 1 {
		t.Errorf("Expected 1/2 pages parsed, got %d/%d", result.PagesParsed, result.PagesTotal)
	}
	if result.TransactionCount != 1 {
		t.Errorf("Expected 1 transaction, got %d", result.TransactionCount)
	}
	if !runClosed {
		t.Error("Expected the parsing run to be closed as succeeded")
	}
	if textLayerURI != "gs://bucket/text/statement.json" {
		t.Errorf("Expected text layer URI recorded, got %q", textLayerURI)
	}
	if len(documentStatuses) != 1 || documentStatuses[0] != "SUCCESS" {
		t.Errorf("Expected final document status SUCCESS, got %v", documentStatuses)
	}

	if len(insertedRows) != 1 {
		t.Fatalf("Expected 1 stored transaction, got %d", len(insertedRows))
	}
	row := insertedRows[0]
	if row.TransactionDate != (civil.Date{Year: 2024, Month: 1, Day: 15}) {
		t.Errorf("Expected transaction date 2024-01-15, got %v", row.TransactionDate)
	}
	if row.RawDescription != "ACME PAYROLL" {
		t.Errorf("Expected description 'ACME PAYROLL', got %q", row.RawDescription)
	}
	if row.Direction != "credit" {
		t.Errorf("Expected direction credit, got %s", row.Direction)
	}
	if row.Currency != "GBP" {
		t.Errorf("Expected default currency GBP, got %s", row.Currency)
	}
	if !decimal.NewFromBigRat(row.Amount, 2).Equal(decimal.RequireFromString("1250.00")) {
		t.Errorf("Expected amount 1250.00, got %s", row.Amount.FloatString(2))
	}
	if !row.StatementPageNo.Valid || row.StatementPageNo.Int64 != 1 {
		t.Errorf("Expected statement page 1, got %+v", row.StatementPageNo)
	}
	if !row.StatementLineNo.Valid || row.StatementLineNo.Int64 != 1 {
		t.Errorf("Expected statement line 1, got %+v", row.StatementLineNo)
	}

	if candidateUpserts != 1 {
		t.Errorf("Expected 1 balance candidate upsert, got %d", candidateUpserts)
	}
	if consolidatedRow == nil {
		t.Fatal("Expected a consolidated balance upsert")
	}
	if consolidatedRow.SourcePage != 1 || consolidatedRow.Confidence != 95 {
		t.Errorf("Expected consolidation from page 1 at confidence 95, got page %d confidence %d",
			consolidatedRow.SourcePage, consolidatedRow.Confidence)
	}
	if result.Balance.ClosingBalance == nil || !result.Balance.ClosingBalance.Equal(closing) {
		t.Errorf("Expected consolidated closing balance %s, got %v", closing, result.Balance.ClosingBalance)
	}
}

func TestIngestStatement_UnknownTemplate(t *testing.T) {
	documentCreated := false
	repo := &mockRepo{
		insertDocumentFunc: func(ctx context.Context, row *infra.DocumentRow) error {
			documentCreated = true
			return nil
		},
	}
	p := New(repo, &mockStorage{}, &mockTextProvider{}, &mockExtractor{}, zerolog.Nop(), 0)

	req := testRequest()
	req.LayoutTemplate = "monzo"

	if _, err := p.IngestStatement(context.Background(), req); err == nil {
		t.Fatal("Expected an error for an unknown layout template")
	}
	if documentCreated {
		t.Error("Expected no document row for an unknown template")
	}
}

func TestIngestStatement_TextLayerFailureFailsRun(t *testing.T) {
	fetchErr := errors.New("text layer missing")

	var failedRunID string
	var recordedErr error
	var finalStatus string

	repo := &mockRepo{
		markParsingRunFailedFunc: func(ctx context.Context, parsingRunID string, parseErr error) error {
			failedRunID = parsingRunID
			recordedErr = parseErr
			return nil
		},
		updateDocumentStatusFunc: func(ctx context.Context, documentID, status string) error {
			finalStatus = status
			return nil
		},
	}
	text := &mockTextProvider{
		textLayerFunc: func(ctx context.Context, textURI string) ([]textlayer.Page, error) {
			return nil, fetchErr
		},
	}
	p := New(repo, &mockStorage{}, text, &mockExtractor{}, zerolog.Nop(), 0)

	_, err := p.IngestStatement(context.Background(), testRequest())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("Expected the fetch error, got %v", err)
	}
	if failedRunID != "run-1" {
		t.Errorf("Expected run-1 marked failed, got %q", failedRunID)
	}
	if !errors.Is(recordedErr, fetchErr) {
		t.Errorf("Expected the cause recorded on the run, got %v", recordedErr)
	}
	if finalStatus != "FAILED" {
		t.Errorf("Expected document status FAILED, got %q", finalStatus)
	}
}

func TestIngestStatement_ExtractorFailureFailsRun(t *testing.T) {
	extractErr := errors.New("model unavailable")

	var finalStatus string
	repo := &mockRepo{
		updateDocumentStatusFunc: func(ctx context.Context, documentID, status string) error {
			finalStatus = status
			return nil
		},
	}
	text := &mockTextProvider{
		textLayerFunc: func(ctx context.Context, textURI string) ([]textlayer.Page, error) {
			return []textlayer.Page{barclaysPage(1)}, nil
		},
	}
	extractor := &mockExtractor{
		extractFunc: func(ctx context.Context, statementID string, pdfBytes []byte) (*aibalance.Result, error) {
			return nil, extractErr
		},
	}
	p := New(repo, &mockStorage{}, text, extractor, zerolog.Nop(), 0)

	if _, err := p.IngestStatement(context.Background(), testRequest()); !errors.Is(err, extractErr) {
		t.Fatalf("Expected the extractor error, got %v", err)
	}
	if finalStatus != "FAILED" {
		t.Errorf("Expected document status FAILED, got %q", finalStatus)
	}
}

func TestIngestStatement_AllPagesHeaderless(t *testing.T) {
	repo := &mockRepo{}
	text := &mockTextProvider{
		textLayerFunc: func(ctx context.Context, textURI string) ([]textlayer.Page, error) {
			return []textlayer.Page{headerlessPage(1), headerlessPage(2)}, nil
		},
	}
	p := New(repo, &mockStorage{}, text, &mockExtractor{}, zerolog.Nop(), 0)

	result, err := p.IngestStatement(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected headerless pages to be non-fatal, got %v", err)
	}
	if result.PagesParsed != 0 {
		t.Errorf("Expected 0 pages parsed, got %d", result.PagesParsed)
	}
	if result.TransactionCount != 0 {
		t.Errorf("Expected no transactions, got %d", result.TransactionCount)
	}
}

func TestReconsolidate(t *testing.T) {
	closing := decimal.RequireFromString("110.00")

	var upserted *infra.ConsolidatedBalanceRow
	repo := &mockRepo{
		listBalanceCandidatesFunc: func(ctx context.Context, statementID string) ([]*infra.BalanceCandidateRow, error) {
			return []*infra.BalanceCandidateRow{
				{StatementID: statementID, PageNumber: 1, ClosingBalance: decimal.RequireFromString("100.00").Rat(), Confidence: 80},
				{StatementID: statementID, PageNumber: 2, ClosingBalance: closing.Rat(), Confidence: 80},
			}, nil
		},
		upsertConsolidatedBalanceFunc: func(ctx context.Context, row *infra.ConsolidatedBalanceRow) error {
			upserted = row
			return nil
		},
	}
	p := New(repo, &mockStorage{}, &mockTextProvider{}, &mockExtractor{}, zerolog.Nop(), 0)

	got, err := p.Reconsolidate(context.Background(), "stmt-1")
	if err != nil {
		t.Fatalf("Expected reconsolidation to succeed, got %v", err)
	}
	if got.SourcePage != 2 {
		t.Errorf("Expected the tie to resolve to page 2, got %d", got.SourcePage)
	}
	if got.ClosingBalance == nil || !got.ClosingBalance.Equal(closing) {
		t.Errorf("Expected closing balance 110.00, got %v", got.ClosingBalance)
	}
	if upserted == nil || upserted.SourcePage != 2 {
		t.Fatalf("Expected the recomputed balance to be stored, got %+v", upserted)
	}
}

func TestReconsolidate_ListError(t *testing.T) {
	listErr := errors.New("query failed")
	repo := &mockRepo{
		listBalanceCandidatesFunc: func(ctx context.Context, statementID string) ([]*infra.BalanceCandidateRow, error) {
			return nil, listErr
		},
	}
	p := New(repo, &mockStorage{}, &mockTextProvider{}, &mockExtractor{}, zerolog.Nop(), 0)

	if _, err := p.Reconsolidate(context.Background(), "stmt-1"); !errors.Is(err, listErr) {
		t.Fatalf("Expected the list error, got %v", err)
	}
}
