// Package balance consolidates the per-page balance readings extracted from
// a statement into one trusted closing balance.
package balance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Candidate is one page's estimated balance reading. Numeric fields are
// pointers because the upstream extractor reports absent or unreadable
// values as null; that is normal data, not an error.
type Candidate struct {
	StatementID      string
	PageNumber       int
	OpeningBalance   *decimal.Decimal
	ClosingBalance   *decimal.Decimal
	AvailableBalance *decimal.Decimal
	CurrentBalance   *decimal.Decimal
	Confidence       int // 0–100
	Notes            string
}

// Consolidated is the single balance chosen to represent a statement.
// ClosingBalance is nil when no page produced a usable reading; that is a
// valid terminal state.
type Consolidated struct {
	StatementID    string
	ClosingBalance *decimal.Decimal
	Confidence     int
	SourcePage     int
	Notes          string
}

// Consolidate picks the statement's closing balance from the current
// candidate set: highest confidence wins, ties go to the later page.
//
// The function is pure and order-independent: permuting candidates never
// changes the result, so it can be recomputed concurrently by any caller.
func Consolidate(statementID string, candidates []Candidate) Consolidated {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.ClosingBalance == nil {
			continue
		}
		if best == nil ||
			c.Confidence > best.Confidence ||
			(c.Confidence == best.Confidence && c.PageNumber > best.PageNumber) {
			best = c
		}
	}

	if best == nil {
		return Consolidated{
			StatementID: statementID,
			Confidence:  0,
			Notes:       "no closing balance found on any page",
		}
	}

	closing := best.ClosingBalance.Copy()
	return Consolidated{
		StatementID:    statementID,
		ClosingBalance: &closing,
		Confidence:     best.Confidence,
		SourcePage:     best.PageNumber,
		Notes:          fmt.Sprintf("selected from page %d with confidence %d", best.PageNumber, best.Confidence),
	}
}
