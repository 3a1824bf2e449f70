// Package textlayer defines the positioned-text input the layout parser
// consumes. The text layer itself is produced by an external extraction
// facility and stored alongside the statement as a JSON object; this package
// only decodes and hands it over.
package textlayer

import "context"

// TextItem is one positioned run of text on a statement page. Coordinates are
// page-local and bottom-up (PDF convention): larger Y is higher on the page.
// The coordinate space is consistent within one page but not necessarily
// across pages.
type TextItem struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is the extracted text layer of a single statement page.
type Page struct {
	Number int        `json:"page_number"`
	Items  []TextItem `json:"items"`
}

// Provider supplies the extracted text layer for a statement document.
// Implementations must return pages in ascending page order.
type Provider interface {
	TextLayer(ctx context.Context, textURI string) ([]Page, error)
}
