package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dkraev/fintrack/internal/api/middleware"
	"github.com/dkraev/fintrack/internal/balance"
	infra "github.com/dkraev/fintrack/internal/infra/bigquery"
)

// Reconsolidator recomputes a statement's consolidated balance from its
// stored candidates.
type Reconsolidator interface {
	Reconsolidate(ctx context.Context, statementID string) (balance.Consolidated, error)
}

// BalancesHandler serves a statement's balance readings and consolidation.
type BalancesHandler struct {
	repo  infra.StatementRepository
	recon Reconsolidator
	log   zerolog.Logger
}

// NewBalancesHandler creates a balances handler.
func NewBalancesHandler(repo infra.StatementRepository, recon Reconsolidator, log zerolog.Logger) *BalancesHandler {
	return &BalancesHandler{repo: repo, recon: recon, log: log}
}

// ownsStatement checks that the statement exists and belongs to the caller.
func (h *BalancesHandler) ownsStatement(w http.ResponseWriter, r *http.Request, statementID string) bool {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	doc, err := h.repo.GetDocument(ctx, statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to get statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get statement")
		return false
	}
	if doc == nil || doc.UserID != userID {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return false
	}
	return true
}

// GetBalance handles GET /api/statements/{id}/balance
func (h *BalancesHandler) GetBalance(w http.ResponseWriter, r *http.Request, statementID string) {
	if !h.ownsStatement(w, r, statementID) {
		return
	}

	row, err := h.repo.GetConsolidatedBalance(r.Context(), statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to get consolidated balance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get consolidated balance")
		return
	}
	if row == nil {
		middleware.WriteError(w, http.StatusNotFound, "No consolidated balance for this statement")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, row)
}

// ListBalanceCandidates handles GET /api/statements/{id}/balance/candidates
func (h *BalancesHandler) ListBalanceCandidates(w http.ResponseWriter, r *http.Request, statementID string) {
	if !h.ownsStatement(w, r, statementID) {
		return
	}

	rows, err := h.repo.ListBalanceCandidates(r.Context(), statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to list balance candidates")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list balance candidates")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": rows,
		"count":      len(rows),
	})
}

// Reconsolidate handles POST /api/statements/{id}/balance/reconsolidate
func (h *BalancesHandler) Reconsolidate(w http.ResponseWriter, r *http.Request, statementID string) {
	if !h.ownsStatement(w, r, statementID) {
		return
	}

	consolidated, err := h.recon.Reconsolidate(r.Context(), statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to reconsolidate balance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to reconsolidate balance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, consolidated)
}
