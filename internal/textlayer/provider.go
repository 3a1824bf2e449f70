package textlayer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dkraev/fintrack/internal/gcs"
)

// document is the wire shape of an extracted text layer as written by the
// extraction facility: one object per statement with a pages array.
type document struct {
	Pages []Page `json:"pages"`
}

// GCSProvider reads extracted text layers from Cloud Storage.
type GCSProvider struct {
	storage gcs.StorageService
}

// NewGCSProvider creates a provider backed by the given storage service.
func NewGCSProvider(storage gcs.StorageService) *GCSProvider {
	return &GCSProvider{storage: storage}
}

// TextLayer fetches and decodes the text layer JSON at textURI.
// Pages are returned in ascending page order regardless of file order.
func (p *GCSProvider) TextLayer(ctx context.Context, textURI string) ([]Page, error) {
	data, err := p.storage.Fetch(ctx, textURI)
	if err != nil {
		return nil, fmt.Errorf("textlayer: fetching %s: %w", textURI, err)
	}

	return Decode(data)
}

// Decode parses a text layer document from raw JSON.
func Decode(data []byte) ([]Page, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("textlayer: decoding document: %w", err)
	}

	sort.Slice(doc.Pages, func(i, j int) bool {
		return doc.Pages[i].Number < doc.Pages[j].Number
	})

	return doc.Pages, nil
}
