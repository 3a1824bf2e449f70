// Package transfer detects and links pairs of transactions across accounts
// that represent a single internal money movement. Detection is a read-only
// heuristic; links are only ever created or removed by explicit calls.
package transfer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/keywords"
)

// Transaction is the view of a stored transaction the detector needs.
type Transaction struct {
	ID          string
	UserID      string
	AccountID   string
	Date        time.Time
	Description string
	Amount      decimal.Decimal // signed: positive credit, negative debit
	Linked      bool            // participates in an active transfer link
	Internal    bool            // already flagged as an internal movement
}

// Options bound the candidate search.
type Options struct {
	DateToleranceDays      int
	AmountTolerancePercent float64
}

// DefaultOptions matches the tolerances the UI offers by default.
func DefaultOptions() Options {
	return Options{DateToleranceDays: 3, AmountTolerancePercent: 1.0}
}

// Suggestion is a scored candidate pair. Suggestions are transient; they are
// never persisted and never create links by themselves.
type Suggestion struct {
	Transaction1 Transaction     `json:"transaction_1"`
	Transaction2 Transaction     `json:"transaction_2"`
	Confidence   float64         `json:"confidence"`
	AmountDiff   decimal.Decimal `json:"amount_diff"`
	DateDiffDays int             `json:"date_diff_days"`
	Reason       string          `json:"reason"`
}

const (
	baseConfidence = 0.50
	maxConfidence  = 0.95
)

// Detect scans a user's transactions for cross-account pairs that plausibly
// represent one transfer, sorted by descending confidence.
func Detect(txns []Transaction, opts Options, kw *keywords.Set) []Suggestion {
	var out []Suggestion
	for i := 0; i < len(txns); i++ {
		for j := i + 1; j < len(txns); j++ {
			if s, ok := scorePair(txns[i], txns[j], opts, kw); ok {
				out = append(out, s)
			}
		}
	}

	sortByConfidence(out)
	return out
}

// SuggestFor scores candidates for a single target transaction and returns
// the top five by confidence.
func SuggestFor(target Transaction, txns []Transaction, opts Options, kw *keywords.Set) []Suggestion {
	var out []Suggestion
	for _, other := range txns {
		if other.ID == target.ID {
			continue
		}
		if s, ok := scorePair(target, other, opts, kw); ok {
			out = append(out, s)
		}
	}

	sortByConfidence(out)
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// scorePair applies the candidate filter and, when the pair qualifies,
// computes its confidence.
//
// Filter: different accounts, opposite signs, amount difference within the
// percentage tolerance, date difference within the day tolerance, and
// neither side already linked or flagged internal.
func scorePair(a, b Transaction, opts Options, kw *keywords.Set) (Suggestion, bool) {
	if a.Linked || b.Linked || a.Internal || b.Internal {
		return Suggestion{}, false
	}
	if a.AccountID == b.AccountID {
		return Suggestion{}, false
	}
	if a.Amount.Sign()*b.Amount.Sign() >= 0 {
		return Suggestion{}, false
	}

	diff := a.Amount.Add(b.Amount).Abs()
	tolerance := a.Amount.Abs().Mul(decimal.NewFromFloat(opts.AmountTolerancePercent / 100))
	if diff.GreaterThan(tolerance) {
		return Suggestion{}, false
	}

	days := dateDiffDays(a.Date, b.Date)
	if days > opts.DateToleranceDays {
		return Suggestion{}, false
	}

	confidence := baseConfidence
	var reasons []string

	onePercent := a.Amount.Abs().Mul(decimal.NewFromFloat(0.01))
	switch {
	case diff.IsZero():
		confidence += 0.30
		reasons = append(reasons, "exact amount match")
	case diff.LessThanOrEqual(onePercent):
		confidence += 0.20
		reasons = append(reasons, "amount within 1%")
	}

	switch days {
	case 0:
		confidence += 0.20
		reasons = append(reasons, "same day")
	case 1:
		confidence += 0.10
		reasons = append(reasons, "one day apart")
	}

	if kw != nil && (kw.Match(a.Description) || kw.Match(b.Description)) {
		confidence += 0.15
		reasons = append(reasons, "transfer keyword")
	}

	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	reason := "opposite amounts across accounts"
	if len(reasons) > 0 {
		reason = fmt.Sprintf("opposite amounts across accounts (%s)", strings.Join(reasons, ", "))
	}

	return Suggestion{
		Transaction1: a,
		Transaction2: b,
		Confidence:   confidence,
		AmountDiff:   diff,
		DateDiffDays: days,
		Reason:       reason,
	}, true
}

// dateDiffDays returns the whole-day distance between two calendar dates,
// ignoring time of day.
func dateDiffDays(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Abs(da.Sub(db).Hours() / 24))
}

func sortByConfidence(s []Suggestion) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Confidence > s[j].Confidence })
}
