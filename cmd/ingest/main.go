package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dkraev/fintrack/internal/aibalance"
	"github.com/dkraev/fintrack/internal/gcs"
	infraBQ "github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/logger"
	"github.com/dkraev/fintrack/internal/pipeline"
	"github.com/dkraev/fintrack/internal/textlayer"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	var (
		gcsURI    = flag.String("gcs-uri", "", "GCS URI of the statement PDF (e.g. gs://bucket/file.pdf)")
		textURI   = flag.String("text-uri", "", "GCS URI of the extracted text layer JSON")
		template  = flag.String("template", "", "Layout template name (e.g. barclays)")
		userID    = flag.String("user", os.Getenv("FINTRACK_USER"), "User the statement belongs to (or set FINTRACK_USER env)")
		accountID = flag.String("account", "", "Account the statement belongs to (optional)")
		model     = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model for balance extraction")
	)
	flag.Parse()

	if *gcsURI == "" || *textURI == "" || *template == "" {
		log.Fatal().Msg("Error: --gcs-uri, --text-uri and --template are required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	// Bound the run so the CLI cannot hang on a stuck upstream call.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryStatementRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement repository")
	}
	defer repo.Close()

	storage := gcs.NewService()
	pipe := pipeline.New(repo, storage, textlayer.NewGCSProvider(storage), aibalance.NewGeminiExtractor(*model), log, 0)

	log.Info().Str("gcs_uri", *gcsURI).Str("template", *template).Msg("Starting ingestion")

	result, err := pipe.IngestStatement(ctx, pipeline.IngestRequest{
		UserID:         *userID,
		AccountID:      *accountID,
		GCSURI:         *gcsURI,
		TextGCSURI:     *textURI,
		LayoutTemplate: *template,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Ingested document %s: %d transactions from %d/%d pages.\n",
		result.DocumentID, result.TransactionCount, result.PagesParsed, result.PagesTotal)
}
