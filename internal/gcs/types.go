package gcs

import (
	"context"
	"io"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// UploadStream writes the reader's content to a storage bucket under the
	// given object name. Used by the upload endpoint to stream request bodies.
	UploadStream(ctx context.Context, bucketName, objectName string, r io.Reader) error

	// Fetch downloads file bytes from the given storage URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)

	// FilenameFromURI extracts the filename from a storage URI.
	FilenameFromURI(uri string) string
}
