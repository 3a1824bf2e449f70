package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dkraev/fintrack/internal/aibalance"
	"github.com/dkraev/fintrack/internal/api/handlers"
	"github.com/dkraev/fintrack/internal/api/middleware"
	"github.com/dkraev/fintrack/internal/gcs"
	infraBQ "github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/jobs"
	"github.com/dkraev/fintrack/internal/jobs/inmemory"
	"github.com/dkraev/fintrack/internal/keywords"
	"github.com/dkraev/fintrack/internal/logger"
	"github.com/dkraev/fintrack/internal/pipeline"
	"github.com/dkraev/fintrack/internal/textlayer"
	"github.com/dkraev/fintrack/internal/transfer"
)

func main() {
	// Load .env for local development; production relies on real env vars.
	_ = godotenv.Load()

	var (
		port    = flag.String("port", "8080", "HTTP server port")
		bucket  = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for statement uploads (or set GCS_BUCKET env)")
		model   = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model for balance extraction (or set GEMINI_MODEL env)")
		workers = flag.Int("workers", 5, "Number of concurrent ingestion workers")
	)
	flag.Parse()

	log := logger.New()

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - statement uploads will be disabled")
	}

	ctx := context.Background()

	repo, err := infraBQ.NewBigQueryStatementRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement repository")
	}
	defer repo.Close()

	storage := gcs.NewService()
	textProvider := textlayer.NewGCSProvider(storage)
	extractor := aibalance.NewGeminiExtractor(*model)
	pipe := pipeline.New(repo, storage, textProvider, extractor, log, 0)

	transferSvc := transfer.NewService(repo.TransferStore(), keywords.TransferV1(), log)

	// Job infrastructure; in-memory for single-instance deployments.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		ingestJob, ok := job.(*jobs.IngestStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", ingestJob.JobID).
			Str("gcs_uri", ingestJob.GCSURI).
			Msg("Processing ingestion job")

		result, err := pipe.IngestStatement(ctx, pipeline.IngestRequest{
			UserID:         ingestJob.UserID,
			AccountID:      ingestJob.AccountID,
			GCSURI:         ingestJob.GCSURI,
			TextGCSURI:     ingestJob.TextGCSURI,
			LayoutTemplate: ingestJob.LayoutTemplate,
		})
		if err != nil {
			return err
		}

		ingestJob.DocumentID = result.DocumentID
		ingestJob.ParsingRunID = result.ParsingRunID
		return nil
	}

	go func() {
		log.Info().Msg("Starting ingestion worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Ingestion worker stopped with error")
		}
	}()

	documentsHandler := handlers.NewDocumentsHandler(repo, storage, jobQueue, *bucket, log)
	transfersHandler := handlers.NewTransfersHandler(transferSvc, log)
	balancesHandler := handlers.NewBalancesHandler(repo, pipe, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	api := http.NewServeMux()

	api.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			documentsHandler.ListDocuments(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		documentID := strings.TrimPrefix(r.URL.Path, "/api/documents/")
		if documentID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Document ID is required")
			return
		}
		documentsHandler.GetDocument(w, r, documentID)
	})

	api.HandleFunc("/api/statements/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			documentsHandler.UploadStatement(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/statements/ingest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			documentsHandler.EnqueueIngest(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Statement balance endpoints:
	//   GET  /api/statements/{id}/balance
	//   GET  /api/statements/{id}/balance/candidates
	//   POST /api/statements/{id}/balance/reconsolidate
	api.HandleFunc("/api/statements/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/statements/"), "/")
		switch {
		case len(parts) == 2 && parts[1] == "balance" && r.Method == http.MethodGet:
			balancesHandler.GetBalance(w, r, parts[0])
		case len(parts) == 3 && parts[1] == "balance" && parts[2] == "candidates" && r.Method == http.MethodGet:
			balancesHandler.ListBalanceCandidates(w, r, parts[0])
		case len(parts) == 3 && parts[1] == "balance" && parts[2] == "reconsolidate" && r.Method == http.MethodPost:
			balancesHandler.Reconsolidate(w, r, parts[0])
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	api.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			documentsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transaction transfer endpoints:
	//   GET /api/transactions/{id}/transfer-suggestions
	//   GET /api/transactions/{id}/transfer-link
	api.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/transactions/"), "/")
		switch {
		case len(parts) == 2 && parts[1] == "transfer-suggestions" && r.Method == http.MethodGet:
			transfersHandler.SuggestTransfers(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "transfer-link" && r.Method == http.MethodGet:
			transfersHandler.GetTransferLink(w, r, parts[0])
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	api.HandleFunc("/api/transfers/detect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transfersHandler.DetectTransfers(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/transfers/link", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transfersHandler.LinkTransfer(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/transfers/unlink", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transfersHandler.UnlinkTransfer(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	// Health stays outside the identity requirement.
	root := http.NewServeMux()
	root.Handle("/api/", middleware.User(api))
	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
