package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dkraev/fintrack/internal/api/middleware"
	"github.com/dkraev/fintrack/internal/transfer"
)

// TransfersHandler serves transfer detection, suggestion, linking and
// unlinking.
type TransfersHandler struct {
	svc *transfer.Service
	log zerolog.Logger
}

// NewTransfersHandler creates a transfers handler.
func NewTransfersHandler(svc *transfer.Service, log zerolog.Logger) *TransfersHandler {
	return &TransfersHandler{svc: svc, log: log}
}

// detectRequest carries optional tolerance overrides; zero values fall back
// to the defaults.
type detectRequest struct {
	DateToleranceDays      int     `json:"date_tolerance_days"`
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`
}

func (r detectRequest) options() transfer.Options {
	opts := transfer.DefaultOptions()
	if r.DateToleranceDays > 0 {
		opts.DateToleranceDays = r.DateToleranceDays
	}
	if r.AmountTolerancePercent > 0 {
		opts.AmountTolerancePercent = r.AmountTolerancePercent
	}
	return opts
}

// DetectTransfers handles POST /api/transfers/detect
func (h *TransfersHandler) DetectTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req detectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	suggestions, err := h.svc.Detect(ctx, userID, req.options())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to detect transfers")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to detect transfers")
		return
	}

	if suggestions == nil {
		suggestions = []transfer.Suggestion{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// SuggestTransfers handles GET /api/transactions/{id}/transfer-suggestions
func (h *TransfersHandler) SuggestTransfers(w http.ResponseWriter, r *http.Request, txnID string) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	suggestions, err := h.svc.SuggestFor(ctx, userID, txnID, transfer.DefaultOptions())
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", txnID).Msg("Failed to suggest transfers")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to suggest transfers")
		return
	}

	if suggestions == nil {
		suggestions = []transfer.Suggestion{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// GetTransferLink handles GET /api/transactions/{id}/transfer-link
func (h *TransfersHandler) GetTransferLink(w http.ResponseWriter, r *http.Request, txnID string) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	link, err := h.svc.LinkFor(ctx, userID, txnID)
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", txnID).Msg("Failed to get transfer link")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get transfer link")
		return
	}
	if link == nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction is not linked")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, link)
}

// LinkTransfer handles POST /api/transfers/link
func (h *TransfersHandler) LinkTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req struct {
		Transaction1 string  `json:"transaction_1"`
		Transaction2 string  `json:"transaction_2"`
		Confidence   float64 `json:"confidence"`
		Notes        string  `json:"notes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Transaction1 == "" || req.Transaction2 == "" {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_1 and transaction_2 are required")
		return
	}
	if req.Transaction1 == req.Transaction2 {
		middleware.WriteError(w, http.StatusBadRequest, "Cannot link a transaction to itself")
		return
	}

	linkID, err := h.svc.Link(ctx, userID, req.Transaction1, req.Transaction2, req.Confidence, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		case errors.Is(err, transfer.ErrAlreadyLinked):
			middleware.WriteError(w, http.StatusConflict, "Transaction already linked; unlink it first")
		default:
			h.log.Error().Err(err).Msg("Failed to link transactions")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to link transactions")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"link_id":       linkID,
		"transaction_1": req.Transaction1,
		"transaction_2": req.Transaction2,
	})
}

// UnlinkTransfer handles POST /api/transfers/unlink
func (h *TransfersHandler) UnlinkTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req struct {
		TransactionID string `json:"transaction_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TransactionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	if err := h.svc.Unlink(ctx, userID, req.TransactionID); err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", req.TransactionID).Msg("Failed to unlink transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to unlink transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"transaction_id": req.TransactionID,
		"status":         "unlinked",
	})
}
