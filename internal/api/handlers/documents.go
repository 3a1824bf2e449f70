// Package handlers implements the HTTP endpoints of the statement API.
// Every endpoint is scoped to the caller identified by the User middleware.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkraev/fintrack/internal/api/middleware"
	"github.com/dkraev/fintrack/internal/gcs"
	infra "github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/jobs"
	"github.com/dkraev/fintrack/internal/layout"
)

// DocumentsHandler serves statement upload, ingestion, and document listing.
type DocumentsHandler struct {
	repo      infra.StatementRepository
	storage   gcs.StorageService
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewDocumentsHandler creates a documents handler.
func NewDocumentsHandler(repo infra.StatementRepository, storage gcs.StorageService, publisher jobs.Publisher, bucket string, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		repo:      repo,
		storage:   storage,
		publisher: publisher,
		bucket:    bucket,
		log:       log,
	}
}

// ListDocuments handles GET /api/documents
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	documents, err := h.repo.ListUserDocuments(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list documents")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"count":     len(documents),
	})
}

// GetDocument handles GET /api/documents/{id}
func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	doc, err := h.repo.GetDocument(ctx, documentID)
	if err != nil {
		h.log.Error().Err(err).Str("document_id", documentID).Msg("Failed to get document")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get document")
		return
	}
	if doc == nil || doc.UserID != userID {
		middleware.WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, doc)
}

// UploadStatement handles POST /api/statements/upload
// The request body is streamed straight to Cloud Storage.
func (h *DocumentsHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Uploads are not configured")
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}
	// Strip any path or query debris from the client-supplied name.
	if idx := strings.Index(filename, "?"); idx > 0 {
		filename = filename[:idx]
	}
	filename = filepath.Base(filename)

	objectName := fmt.Sprintf("uploads/%s/%s", time.Now().Format("2006/01/02"), uuid.NewString()+"-"+filename)
	gcsURI := fmt.Sprintf("gs://%s/%s", h.bucket, objectName)

	if err := h.storage.UploadStream(ctx, h.bucket, objectName, r.Body); err != nil {
		h.log.Error().Err(err).Str("object", objectName).Msg("Failed to upload statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload statement")
		return
	}

	h.log.Info().
		Str("gcs_uri", gcsURI).
		Str("filename", filename).
		Msg("Statement uploaded")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"gcs_uri":     gcsURI,
		"object_name": objectName,
		"filename":    filename,
		"status":      "uploaded",
	})
}

// EnqueueIngest handles POST /api/statements/ingest
func (h *DocumentsHandler) EnqueueIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req struct {
		GCSURI         string `json:"gcs_uri"`
		TextGCSURI     string `json:"text_gcs_uri"`
		LayoutTemplate string `json:"layout_template"`
		AccountID      string `json:"account_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.GCSURI == "" || req.TextGCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri and text_gcs_uri are required")
		return
	}
	if _, ok := layout.Template(req.LayoutTemplate); !ok {
		middleware.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown layout_template; known templates: %s", strings.Join(layout.TemplateNames(), ", ")))
		return
	}

	job := &jobs.IngestStatementJob{
		GCSURI:         req.GCSURI,
		TextGCSURI:     req.TextGCSURI,
		UserID:         userID,
		AccountID:      req.AccountID,
		LayoutTemplate: req.LayoutTemplate,
	}

	if err := h.publisher.PublishIngestStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue ingestion job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingestion job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Msg("Ingestion job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// ListTransactions handles GET /api/transactions
func (h *DocumentsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	transactions, err := h.repo.ListUserTransactions(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	// Return an array even when empty for frontend compatibility.
	if transactions == nil {
		transactions = []*infra.TransactionRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}
