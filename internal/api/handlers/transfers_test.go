package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/transfer"
)

type mockTransferStore struct {
	getTransactionFunc   func(ctx context.Context, userID, txnID string) (*transfer.Transaction, error)
	listTransactionsFunc func(ctx context.Context, userID string) ([]transfer.Transaction, error)
	createLinkFunc       func(ctx context.Context, link transfer.Link) error
	removeLinkFunc       func(ctx context.Context, userID, txnID string) error
	getLinkFunc          func(ctx context.Context, userID, txnID string) (*transfer.Link, error)
}

func (m *mockTransferStore) GetTransaction(ctx context.Context, userID, txnID string) (*transfer.Transaction, error) {
	if m.getTransactionFunc != nil {
		return m.getTransactionFunc(ctx, userID, txnID)
	}
	return nil, transfer.ErrNotFound
}

func (m *mockTransferStore) ListTransactions(ctx context.Context, userID string) ([]transfer.Transaction, error) {
	if m.listTransactionsFunc != nil {
		return m.listTransactionsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockTransferStore) CreateLink(ctx context.Context, link transfer.Link) error {
	if m.createLinkFunc != nil {
		return m.createLinkFunc(ctx, link)
	}
	return nil
}

func (m *mockTransferStore) RemoveLink(ctx context.Context, userID, txnID string) error {
	if m.removeLinkFunc != nil {
		return m.removeLinkFunc(ctx, userID, txnID)
	}
	return nil
}

func (m *mockTransferStore) GetLink(ctx context.Context, userID, txnID string) (*transfer.Link, error) {
	if m.getLinkFunc != nil {
		return m.getLinkFunc(ctx, userID, txnID)
	}
	return nil, nil
}

func transferTxn(id, account, amount string) transfer.Transaction {
	return transfer.Transaction{
		ID:        id,
		UserID:    "user-1",
		AccountID: account,
		Date:      time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.RequireFromString(amount),
	}
}

func newTransfersHandler(store transfer.Store) *TransfersHandler {
	svc := transfer.NewService(store, nil, zerolog.Nop())
	return NewTransfersHandler(svc, zerolog.Nop())
}

func TestDetectTransfers(t *testing.T) {
	store := &mockTransferStore{
		listTransactionsFunc: func(ctx context.Context, userID string) ([]transfer.Transaction, error) {
			return []transfer.Transaction{
				transferTxn("a", "x", "-100"),
				transferTxn("b", "y", "100"),
			}, nil
		},
	}
	h := newTransfersHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/transfers/detect", nil)
	rec := httptest.NewRecorder()
	h.DetectTransfers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Suggestions []transfer.Suggestion `json:"suggestions"`
		Count       int                   `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if body.Count != 1 || len(body.Suggestions) != 1 {
		t.Errorf("Expected 1 suggestion, got count %d with %d entries", body.Count, len(body.Suggestions))
	}
}

func TestDetectTransfers_EmptyResultIsArray(t *testing.T) {
	h := newTransfersHandler(&mockTransferStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/transfers/detect", nil)
	rec := httptest.NewRecorder()
	h.DetectTransfers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"suggestions":[]`) {
		t.Errorf("Expected an empty array, got %s", rec.Body.String())
	}
}

func TestSuggestTransfers_NotFound(t *testing.T) {
	h := newTransfersHandler(&mockTransferStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/ghost/transfer-suggestions", nil)
	rec := httptest.NewRecorder()
	h.SuggestTransfers(rec, req, "ghost")

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestGetTransferLink(t *testing.T) {
	store := &mockTransferStore{
		getTransactionFunc: func(ctx context.Context, userID, txnID string) (*transfer.Transaction, error) {
			txn := transferTxn(txnID, "acct-1", "-100")
			return &txn, nil
		},
		getLinkFunc: func(ctx context.Context, userID, txnID string) (*transfer.Link, error) {
			return &transfer.Link{
				ID:           "link-1",
				UserID:       userID,
				Transaction1: txnID,
				Transaction2: "t2",
				Confidence:   0.9,
				CreatedAt:    time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	h := newTransfersHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/t1/transfer-link", nil)
	rec := httptest.NewRecorder()
	h.GetTransferLink(rec, req, "t1")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var link transfer.Link
	if err := json.NewDecoder(rec.Body).Decode(&link); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if link.ID != "link-1" || link.Transaction2 != "t2" {
		t.Errorf("Expected link-1 pairing t1 with t2, got %+v", link)
	}
}

func TestGetTransferLink_Unlinked(t *testing.T) {
	store := &mockTransferStore{
		getTransactionFunc: func(ctx context.Context, userID, txnID string) (*transfer.Transaction, error) {
			txn := transferTxn(txnID, "acct-1", "-100")
			return &txn, nil
		},
	}
	h := newTransfersHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/t1/transfer-link", nil)
	rec := httptest.NewRecorder()
	h.GetTransferLink(rec, req, "t1")

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unlinked transaction, got %d", rec.Code)
	}
}

func TestGetTransferLink_TransactionNotFound(t *testing.T) {
	h := newTransfersHandler(&mockTransferStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/ghost/transfer-link", nil)
	rec := httptest.NewRecorder()
	h.GetTransferLink(rec, req, "ghost")

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestLinkTransfer(t *testing.T) {
	store := &mockTransferStore{
		getTransactionFunc: func(ctx context.Context, userID, txnID string) (*transfer.Transaction, error) {
			txn := transferTxn(txnID, "acct-"+txnID, "-100")
			return &txn, nil
		},
	}
	h := newTransfersHandler(store)

	body := `{"transaction_1": "t1", "transaction_2": "t2", "confidence": 0.95}`
	req := httptest.NewRequest(http.MethodPost, "/api/transfers/link", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.LinkTransfer(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if resp["link_id"] == "" {
		t.Error("Expected a link id in the response")
	}
}

func TestLinkTransfer_BadRequests(t *testing.T) {
	h := newTransfersHandler(&mockTransferStore{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing ids", `{"transaction_1": "t1"}`},
		{"self link", `{"transaction_1": "t1", "transaction_2": "t1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transfers/link", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.LinkTransfer(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestLinkTransfer_NotFound(t *testing.T) {
	h := newTransfersHandler(&mockTransferStore{})

	body := `{"transaction_1": "t1", "transaction_2": "t2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transfers/link", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.LinkTransfer(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestLinkTransfer_Conflict(t *testing.T) {
	store := &mockTransferStore{
		getTransactionFunc: func(ctx context.Context, userID, txnID string) (*transfer.Transaction, error) {
			txn := transferTxn(txnID, "acct-"+txnID, "-100")
			txn.Linked = txnID == "t2"
			return &txn, nil
		},
	}
	h := newTransfersHandler(store)

	body := `{"transaction_1": "t1", "transaction_2": "t2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transfers/link", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.LinkTransfer(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
}

func TestUnlinkTransfer(t *testing.T) {
	store := &mockTransferStore{
		getTransactionFunc: func(ctx context.Context, userID, txnID string) (*transfer.Transaction, error) {
			txn := transferTxn(txnID, "acct-1", "-100")
			return &txn, nil
		},
	}
	h := newTransfersHandler(store)

	body := `{"transaction_id": "t1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transfers/unlink", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.UnlinkTransfer(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
}

func TestUnlinkTransfer_MissingID(t *testing.T) {
	h := newTransfersHandler(&mockTransferStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/transfers/unlink", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.UnlinkTransfer(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
