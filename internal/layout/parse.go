package layout

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/textlayer"
)

// ErrHeaderNotFound reports that a page has no recognizable table header.
// Callers treat it as "skip this page", not as a failure of the statement.
var ErrHeaderNotFound = errors.New("layout: table header not found on page")

// Type classifies a transaction by the sign of its amount.
type Type string

const (
	TypeCredit Type = "credit"
	TypeDebit  Type = "debit"
)

// Transaction is one table row reconstructed from a statement page.
// Amount is signed: positive means money in, negative means money out.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        Type
}

// ParsePage reconstructs the transactions on one page from its positioned
// text runs. It is a pure function of (items, cfg): no state survives the
// call, so pages of one statement may be parsed concurrently.
//
// Returns ErrHeaderNotFound when fewer than len(cfg.Headers)−2 header labels
// are located; every other malformed input degrades to skipped rows.
func ParsePage(items []textlayer.TextItem, cfg TableLayout) ([]Transaction, error) {
	cs, ok := detectHeader(items, cfg)
	if !ok {
		return nil, ErrHeaderNotFound
	}

	rows := groupRows(items, cs.headerY, cfg.RowTolerance)

	var out []Transaction
	var pending *Transaction
	for _, r := range rows {
		cells := assignColumns(r, cs, cfg.ColumnTolerance)

		var emitted *Transaction
		pending, emitted = foldRow(pending, cells, cfg)
		if emitted != nil {
			out = append(out, *emitted)
		}
	}
	if pending != nil {
		out = append(out, *pending)
	}

	return out, nil
}

// foldRow advances the pending-transaction accumulator by one row.
//
// A row with a parseable date and a non-zero amount starts a new
// transaction, emitting the previous pending one. A row with neither date
// nor amount but with loose text extends the pending description when
// multi-line mode is on. Every other row is ignored.
func foldRow(pending *Transaction, cells rowCells, cfg TableLayout) (next *Transaction, emitted *Transaction) {
	date, hasDate := parseDate(cells.cellText(cfg.DateColumn), cfg)
	amount := rowAmount(cells, cfg)
	loose := cells.looseText()

	switch {
	case hasDate && !amount.IsZero():
		txn := &Transaction{
			Date:        date,
			Description: loose,
			Amount:      amount,
			Type:        amountType(amount),
		}
		return txn, pending

	case !hasDate && amount.IsZero() && loose != "" && cfg.MultiLine && pending != nil:
		if pending.Description == "" {
			pending.Description = loose
		} else {
			pending.Description += " " + loose
		}
		return pending, nil

	default:
		return pending, nil
	}
}

// parseDate extracts and parses a date from the date column's cell text.
func parseDate(cell string, cfg TableLayout) (time.Time, bool) {
	if cell == "" || cfg.DatePattern == nil {
		return time.Time{}, false
	}

	token := cfg.DatePattern.FindString(cell)
	if token == "" {
		return time.Time{}, false
	}

	for _, layout := range cfg.DateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rowAmount derives the row's signed amount from the debit and credit cells.
// A positive credit wins over the debit; a positive debit becomes a negative
// amount; anything else is zero, which cannot start a transaction.
func rowAmount(cells rowCells, cfg TableLayout) decimal.Decimal {
	if credit, ok := parseAmount(cells.cellText(cfg.CreditColumn), cfg); ok && credit.IsPositive() {
		return credit
	}
	if debit, ok := parseAmount(cells.cellText(cfg.DebitColumn), cfg); ok && debit.IsPositive() {
		return debit.Neg()
	}
	return decimal.Zero
}

// parseAmount cleans amount cell text with the configured strip pattern and
// parses the remainder. Malformed text is reported as absent, never as an
// error.
func parseAmount(cell string, cfg TableLayout) (decimal.Decimal, bool) {
	s := cell
	if cfg.AmountStrip != nil {
		s = cfg.AmountStrip.ReplaceAllString(s, "")
	}
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func amountType(amount decimal.Decimal) Type {
	if amount.IsNegative() {
		return TypeDebit
	}
	return TypeCredit
}
