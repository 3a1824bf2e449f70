// Package pipeline orchestrates statement ingestion end to end: document
// bookkeeping, layout-aware table parsing, AI balance extraction, balance
// consolidation, and persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dkraev/fintrack/internal/aibalance"
	"github.com/dkraev/fintrack/internal/balance"
	"github.com/dkraev/fintrack/internal/gcs"
	infra "github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/layout"
	"github.com/dkraev/fintrack/internal/textlayer"
)

const (
	parserType    = "LAYOUT_TABLE"
	parserVersion = "v1"

	outputKindBalances = "BALANCES"

	defaultCurrency = "GBP"

	// defaultParseWorkers bounds concurrent page parses. Pages are
	// independent, so this is purely a CPU/memory knob.
	defaultParseWorkers = 4
)

// Pipeline wires the ingestion stages together. All collaborators are
// interfaces so tests can run the full flow against mocks.
type Pipeline struct {
	repo      infra.StatementRepository
	storage   gcs.StorageService
	text      TextLayerProvider
	extractor aibalance.Extractor
	log       zerolog.Logger

	parseWorkers int
}

// New creates a pipeline. parseWorkers <= 0 selects the default.
func New(repo infra.StatementRepository, storage gcs.StorageService, text TextLayerProvider, extractor aibalance.Extractor, log zerolog.Logger, parseWorkers int) *Pipeline {
	if parseWorkers <= 0 {
		parseWorkers = defaultParseWorkers
	}
	return &Pipeline{
		repo:         repo,
		storage:      storage,
		text:         text,
		extractor:    extractor,
		log:          log,
		parseWorkers: parseWorkers,
	}
}

// IngestStatement runs the full ingestion for one uploaded statement:
//
//  1. Create the documents row and open a parsing run.
//  2. Fetch the text layer and parse every page's transaction table.
//  3. Extract per-page balances from the PDF, store the raw model output,
//     and consolidate them into one closing balance.
//  4. Persist transactions and balances, then close the run.
//
// Pages without a recognizable table header are skipped, not fatal; the run
// records how many pages parsed out of the total.
func (p *Pipeline) IngestStatement(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	cfg, ok := layout.Template(req.LayoutTemplate)
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown layout template %q (have %v)", req.LayoutTemplate, layout.TemplateNames())
	}
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}

	documentID, err := p.createDocument(ctx, req)
	if err != nil {
		return nil, err
	}

	parsingRunID, err := p.repo.StartParsingRun(ctx, documentID, parserType, parserVersion)
	if err != nil {
		return nil, fmt.Errorf("pipeline: starting parsing run: %w", err)
	}

	result, err := p.ingest(ctx, req, cfg, documentID, parsingRunID)
	if err != nil {
		p.failRun(ctx, documentID, parsingRunID, err)
		return nil, err
	}

	if err := p.repo.MarkParsingRunSucceeded(ctx, parsingRunID, result.PagesTotal, result.PagesParsed); err != nil {
		return nil, fmt.Errorf("pipeline: closing parsing run: %w", err)
	}
	if err := p.repo.UpdateDocumentStatus(ctx, documentID, "SUCCESS"); err != nil {
		return nil, fmt.Errorf("pipeline: updating document status: %w", err)
	}

	p.log.Info().
		Str("document_id", documentID).
		Str("parsing_run_id", parsingRunID).
		Int("pages_total", result.PagesTotal).
		Int("pages_parsed", result.PagesParsed).
		Int("transactions", result.TransactionCount).
		Msg("Statement ingested")

	return result, nil
}

// ingest is the fallible middle of IngestStatement; any error here fails the
// parsing run.
func (p *Pipeline) ingest(ctx context.Context, req IngestRequest, cfg layout.TableLayout, documentID, parsingRunID string) (*IngestResult, error) {
	pages, err := p.text.TextLayer(ctx, req.TextGCSURI)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetching text layer: %w", err)
	}
	if err := p.repo.SetDocumentTextLayer(ctx, documentID, req.TextGCSURI); err != nil {
		return nil, fmt.Errorf("pipeline: recording text layer: %w", err)
	}

	pageNumbers, parsed, pagesParsed, err := p.parsePages(ctx, pages, cfg)
	if err != nil {
		return nil, err
	}

	consolidated, err := p.extractBalances(ctx, req, documentID, parsingRunID)
	if err != nil {
		return nil, err
	}

	rows := buildTransactionRows(req, documentID, parsingRunID, pageNumbers, parsed)
	if err := p.repo.InsertTransactions(ctx, rows); err != nil {
		return nil, fmt.Errorf("pipeline: inserting transactions: %w", err)
	}

	return &IngestResult{
		DocumentID:       documentID,
		ParsingRunID:     parsingRunID,
		PagesTotal:       len(pages),
		PagesParsed:      pagesParsed,
		TransactionCount: len(rows),
		Balance:          consolidated,
	}, nil
}

// parsePages parses all pages concurrently, preserving page order in the
// returned slices. Header-less pages produce no transactions and do not
// count as parsed.
func (p *Pipeline) parsePages(ctx context.Context, pages []textlayer.Page, cfg layout.TableLayout) ([]int, [][]layout.Transaction, int, error) {
	pageNumbers := make([]int, len(pages))
	parsed := make([][]layout.Transaction, len(pages))
	ok := make([]bool, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parseWorkers)

	var mu sync.Mutex
	for i := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			page := pages[i]
			txns, err := layout.ParsePage(page.Items, cfg)
			if err == layout.ErrHeaderNotFound {
				p.log.Debug().Int("page", page.Number).Msg("No table header on page, skipping")
				mu.Lock()
				pageNumbers[i] = page.Number
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("pipeline: parsing page %d: %w", page.Number, err)
			}

			mu.Lock()
			pageNumbers[i] = page.Number
			parsed[i] = txns
			ok[i] = true
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}

	pagesParsed := 0
	for _, v := range ok {
		if v {
			pagesParsed++
		}
	}

	return pageNumbers, parsed, pagesParsed, nil
}

// extractBalances runs the AI balance extraction, stores the raw model
// output and the per-page candidates, and consolidates them.
func (p *Pipeline) extractBalances(ctx context.Context, req IngestRequest, documentID, parsingRunID string) (balance.Consolidated, error) {
	pdfBytes, err := p.storage.Fetch(ctx, req.GCSURI)
	if err != nil {
		return balance.Consolidated{}, fmt.Errorf("pipeline: fetching statement PDF: %w", err)
	}

	result, err := p.extractor.ExtractBalances(ctx, documentID, pdfBytes)
	if err != nil {
		return balance.Consolidated{}, fmt.Errorf("pipeline: extracting balances: %w", err)
	}

	rawJSON, err := json.Marshal(result.Raw)
	if err != nil {
		return balance.Consolidated{}, fmt.Errorf("pipeline: encoding raw model output: %w", err)
	}

	output := &infra.ModelOutputRow{
		OutputID:     uuid.NewString(),
		ParsingRunID: parsingRunID,
		DocumentID:   documentID,
		ModelName:    aibalance.DefaultModelName,
		OutputKind:   outputKindBalances,
		RawJSON:      bigquery.NullJSON{JSONVal: string(rawJSON), Valid: true},
	}
	if err := p.repo.InsertModelOutput(ctx, output); err != nil {
		return balance.Consolidated{}, fmt.Errorf("pipeline: storing model output: %w", err)
	}

	for _, c := range result.Candidates {
		if err := p.repo.UpsertBalanceCandidate(ctx, candidateRow(c)); err != nil {
			return balance.Consolidated{}, fmt.Errorf("pipeline: storing balance candidate for page %d: %w", c.PageNumber, err)
		}
	}

	consolidated := balance.Consolidate(documentID, result.Candidates)
	if err := p.repo.UpsertConsolidatedBalance(ctx, consolidatedRow(consolidated)); err != nil {
		return balance.Consolidated{}, fmt.Errorf("pipeline: storing consolidated balance: %w", err)
	}

	return consolidated, nil
}

// Reconsolidate recomputes a statement's consolidated balance from its
// stored candidates. Safe to call any number of times; the result depends
// only on the current candidate set.
func (p *Pipeline) Reconsolidate(ctx context.Context, statementID string) (balance.Consolidated, error) {
	rows, err := p.repo.ListBalanceCandidates(ctx, statementID)
	if err != nil {
		return balance.Consolidated{}, fmt.Errorf("pipeline: listing balance candidates: %w", err)
	}

	candidates := make([]balance.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, candidateFromRow(row))
	}

	consolidated := balance.Consolidate(statementID, candidates)
	if err := p.repo.UpsertConsolidatedBalance(ctx, consolidatedRow(consolidated)); err != nil {
		return balance.Consolidated{}, fmt.Errorf("pipeline: storing consolidated balance: %w", err)
	}

	return consolidated, nil
}

func (p *Pipeline) createDocument(ctx context.Context, req IngestRequest) (string, error) {
	documentID := uuid.NewString()

	filename := req.OriginalFilename
	if filename == "" {
		filename = p.storage.FilenameFromURI(req.GCSURI)
	}

	row := &infra.DocumentRow{
		DocumentID:       documentID,
		UserID:           req.UserID,
		GCSURI:           req.GCSURI,
		DocumentType:     "BANK_STATEMENT",
		AccountID:        req.AccountID,
		LayoutTemplate:   req.LayoutTemplate,
		UploadTS:         time.Now(),
		ParsingStatus:    "PROCESSING",
		OriginalFilename: filename,
		FileMimeType:     "application/pdf",
	}

	if err := p.repo.InsertDocument(ctx, row); err != nil {
		return "", fmt.Errorf("pipeline: creating document: %w", err)
	}

	return documentID, nil
}

// failRun records the failure on both the run and the document. Recording
// errors are logged, not returned, so the original failure stays visible.
func (p *Pipeline) failRun(ctx context.Context, documentID, parsingRunID string, cause error) {
	if err := p.repo.MarkParsingRunFailed(ctx, parsingRunID, cause); err != nil {
		p.log.Error().Err(err).Str("parsing_run_id", parsingRunID).Msg("Failed to record run failure")
	}
	if err := p.repo.UpdateDocumentStatus(ctx, documentID, "FAILED"); err != nil {
		p.log.Error().Err(err).Str("document_id", documentID).Msg("Failed to record document failure")
	}

	p.log.Error().Err(cause).
		Str("document_id", documentID).
		Str("parsing_run_id", parsingRunID).
		Msg("Statement ingestion failed")
}
