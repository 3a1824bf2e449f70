package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/dkraev/fintrack/internal/gcs"
	"github.com/dkraev/fintrack/internal/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	var (
		bucketName string
		objectName string
		filePath   string
	)

	flag.StringVar(&bucketName, "bucket", "", "GCS bucket name (required)")
	flag.StringVar(&objectName, "object", "", "GCS object name (optional; defaults to file name)")
	flag.StringVar(&filePath, "file", "", "Path to local statement PDF (required)")
	flag.Parse()

	if bucketName == "" || filePath == "" {
		log.Fatal().Msg("Usage: upload-statement -bucket BUCKET_NAME -file /path/to/statement.pdf [-object OBJECT_NAME]")
	}

	if objectName == "" {
		objectName = filepath.Base(filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Str("file", filePath).
		Msg("Uploading statement to GCS")

	storage := gcs.NewService()
	if err := storage.UploadFile(ctx, bucketName, objectName, filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", filePath, bucketName, objectName)
}
