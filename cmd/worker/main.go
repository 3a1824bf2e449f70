package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dkraev/fintrack/internal/aibalance"
	"github.com/dkraev/fintrack/internal/gcs"
	infraBQ "github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/jobs"
	"github.com/dkraev/fintrack/internal/jobs/inmemory"
	"github.com/dkraev/fintrack/internal/logger"
	"github.com/dkraev/fintrack/internal/pipeline"
	"github.com/dkraev/fintrack/internal/textlayer"
)

func main() {
	_ = godotenv.Load()

	var (
		model   = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model for balance extraction (or set GEMINI_MODEL env)")
		workers = flag.Int("workers", 5, "Number of concurrent ingestion workers")
	)
	flag.Parse()

	log := logger.New()

	log.Info().Msg("Starting ingestion worker service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := infraBQ.NewBigQueryStatementRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement repository")
	}
	defer repo.Close()

	storage := gcs.NewService()
	textProvider := textlayer.NewGCSProvider(storage)
	extractor := aibalance.NewGeminiExtractor(*model)
	pipe := pipeline.New(repo, storage, textProvider, extractor, log, 0)

	// In production this would be Cloud Tasks or Pub/Sub behind the same
	// interfaces.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
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
			log.Error().
				Err(err).
				Str("job_id", ingestJob.JobID).
				Msg("Ingestion failed")
			return err
		}

		log.Info().
			Str("job_id", ingestJob.JobID).
			Str("document_id", result.DocumentID).
			Int("transactions", result.TransactionCount).
			Msg("Ingestion completed")

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
