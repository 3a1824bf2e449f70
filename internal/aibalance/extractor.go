// Package aibalance extracts per-page balance readings from a statement PDF
// using Gemini. The model output is treated strictly as untrusted structured
// data: absent or malformed fields degrade to null, never to a failure.
package aibalance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dkraev/fintrack/internal/balance"
)

// DefaultModelName is the Gemini model used for balance extraction.
const DefaultModelName = "gemini-2.5-flash"

// Extractor produces balance candidates for a statement document.
// This interface enables mocking the model call in tests.
type Extractor interface {
	ExtractBalances(ctx context.Context, statementID string, pdfBytes []byte) (*Result, error)
}

// Result carries the coerced candidates plus the raw model output, which the
// pipeline stores for audit.
type Result struct {
	Candidates []balance.Candidate
	Raw        map[string]interface{}
}

// GeminiExtractor is the concrete Extractor backed by the Gemini API.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor creates an extractor for the given model name; an empty
// name selects DefaultModelName.
func NewGeminiExtractor(model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{model: model}
}

const balancePrompt = "You are a financial statement reader for PDF bank statements.\n\n" +
	"Task:\n" +
	"- For EVERY page of the attached statement, report the balance figures printed on that page.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a JSON array with one object per page.\n\n" +
	"Each object must have these fields:\n" +
	"- \"page_number\": integer, 1-based\n" +
	"- \"opening_balance\": number or null\n" +
	"- \"closing_balance\": number or null\n" +
	"- \"available_balance\": number or null\n" +
	"- \"current_balance\": number or null\n" +
	"- \"confidence\": integer 0-100, how certain you are about the closing balance\n" +
	"- \"notes\": string, where on the page the figures were found\n\n" +
	"Rules:\n" +
	"- Use null for any figure that is not printed on the page.\n" +
	"- Never guess a figure from arithmetic; only report printed values.\n" +
	"- A page with no balance figures still gets an object with nulls and confidence 0.\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n" +
	"Output must begin with \"[\" and end with \"]\".\n"

// ExtractBalances sends the PDF to Gemini and coerces the response into one
// balance candidate per page.
func (e *GeminiExtractor) ExtractBalances(ctx context.Context, statementID string, pdfBytes []byte) (*Result, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("aibalance: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: balancePrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdfBytes,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("aibalance: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("aibalance: empty response from model")
	}

	// Clean up Markdown fences / extra text if the model ignored instructions.
	clean := cleanModelJSON(rawText)

	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("aibalance: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	raw := map[string]interface{}{"pages": parsed}
	return &Result{
		Candidates: CoerceCandidates(statementID, parsed),
		Raw:        raw,
	}, nil
}

// cleanModelJSON strips ```json fences and trailing markdown the model may
// emit despite the prompt.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}
