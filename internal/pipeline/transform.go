package pipeline

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/balance"
	infra "github.com/dkraev/fintrack/internal/infra/bigquery"
	"github.com/dkraev/fintrack/internal/layout"
)

// buildTransactionRows flattens per-page parse results into storable rows.
// pages is indexed by zero-based page position; page and line numbers in the
// rows are 1-based, matching what the statement shows.
func buildTransactionRows(req IngestRequest, documentID, parsingRunID string, pageNumbers []int, pages [][]layout.Transaction) []*infra.TransactionRow {
	now := time.Now()

	var rows []*infra.TransactionRow
	for i, txns := range pages {
		for line, txn := range txns {
			rows = append(rows, &infra.TransactionRow{
				TransactionID:   uuid.NewString(),
				UserID:          req.UserID,
				AccountID:       req.AccountID,
				DocumentID:      documentID,
				ParsingRunID:    parsingRunID,
				TransactionDate: civil.DateOf(txn.Date),
				Amount:          txn.Amount.Rat(),
				Currency:        req.Currency,
				Direction:       string(txn.Type),
				RawDescription:  txn.Description,
				StatementPageNo: bigquery.NullInt64{Int64: int64(pageNumbers[i]), Valid: true},
				StatementLineNo: bigquery.NullInt64{Int64: int64(line + 1), Valid: true},
				CreatedTS:       now,
			})
		}
	}

	return rows
}

// candidateRow maps a domain candidate to its storage row.
func candidateRow(c balance.Candidate) *infra.BalanceCandidateRow {
	return &infra.BalanceCandidateRow{
		StatementID:      c.StatementID,
		PageNumber:       int64(c.PageNumber),
		OpeningBalance:   ratOf(c.OpeningBalance),
		ClosingBalance:   ratOf(c.ClosingBalance),
		AvailableBalance: ratOf(c.AvailableBalance),
		CurrentBalance:   ratOf(c.CurrentBalance),
		Confidence:       int64(c.Confidence),
		Notes:            c.Notes,
	}
}

// consolidatedRow maps the consolidation outcome to its storage row.
func consolidatedRow(c balance.Consolidated) *infra.ConsolidatedBalanceRow {
	return &infra.ConsolidatedBalanceRow{
		StatementID:    c.StatementID,
		ClosingBalance: ratOf(c.ClosingBalance),
		Confidence:     int64(c.Confidence),
		SourcePage:     int64(c.SourcePage),
		Notes:          c.Notes,
	}
}

// candidateFromRow maps a stored candidate back into the domain shape, used
// when reconsolidating from persisted readings.
func candidateFromRow(row *infra.BalanceCandidateRow) balance.Candidate {
	return balance.Candidate{
		StatementID:      row.StatementID,
		PageNumber:       int(row.PageNumber),
		OpeningBalance:   decOf(row.OpeningBalance),
		ClosingBalance:   decOf(row.ClosingBalance),
		AvailableBalance: decOf(row.AvailableBalance),
		CurrentBalance:   decOf(row.CurrentBalance),
		Confidence:       int(row.Confidence),
		Notes:            row.Notes,
	}
}

func ratOf(d *decimal.Decimal) *big.Rat {
	if d == nil {
		return nil
	}
	return d.Rat()
}

func decOf(r *big.Rat) *decimal.Decimal {
	if r == nil {
		return nil
	}
	d := decimal.NewFromBigRat(r, 4)
	return &d
}
