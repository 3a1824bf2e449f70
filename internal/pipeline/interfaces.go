package pipeline

import (
	"context"

	"github.com/dkraev/fintrack/internal/textlayer"
)

// TextLayerProvider fetches the positioned text runs of a statement.
// This interface enables mocking the storage round-trip in tests.
type TextLayerProvider interface {
	TextLayer(ctx context.Context, textURI string) ([]textlayer.Page, error)
}
