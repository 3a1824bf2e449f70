// Package layout reconstructs tabular transaction data from the positioned
// text runs of a statement page. The parser is configured per known bank
// layout; it does not discover layouts on its own.
package layout

import "regexp"

// TableLayout describes one bank's statement table: which header labels to
// expect, which columns carry the date and the two amounts, and the
// tolerances and patterns used to group rows and clean cell text.
//
// Tolerances are per-document-family constants tuned empirically; statements
// scanned at a different scale need their own template.
type TableLayout struct {
	// Name identifies the template, e.g. "barclays".
	Name string

	// Headers is the ordered list of expected header labels. Header
	// detection succeeds when all but two of them are located on the page.
	Headers []string

	// DateColumn names the header whose cells carry the transaction date.
	DateColumn string

	// DebitColumn and CreditColumn name the headers whose cells carry
	// money-out and money-in amounts.
	DebitColumn  string
	CreditColumn string

	// RowTolerance is the maximum y-distance between a text item and a row
	// cluster for the item to join that row.
	RowTolerance float64

	// ColumnTolerance widens each column interval on both sides when
	// assigning items to columns.
	ColumnTolerance float64

	// DatePattern extracts the date token from the date column's cell text.
	DatePattern *regexp.Regexp

	// DateLayouts are the time.Parse layouts tried against the extracted
	// date token, in order.
	DateLayouts []string

	// AmountStrip removes currency symbols and thousands separators from
	// amount cell text before numeric parsing.
	AmountStrip *regexp.Regexp

	// MultiLine enables description continuation rows: a row with no date
	// and no amount appends its loose text to the pending transaction.
	MultiLine bool
}

// Common cell-text patterns shared by the built-in templates.
var (
	// Slash dates (15/01/2024) or UK text dates (15 Jan 2024).
	ukDatePattern = regexp.MustCompile(
		`(?i)\b(\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})\b`)

	ukDateLayouts = []string{"02/01/2006", "2/1/2006", "02/01/06", "2 Jan 2006", "02 Jan 2006", "2 January 2006"}

	// Currency symbols, thousands separators, stray whitespace.
	currencyStrip = regexp.MustCompile(`[£$€,\s\x{00A0}]`)
)

// templates is the registry of known statement layouts. Column labels and
// tolerances come from the statement formats of the supported banks.
var templates = map[string]TableLayout{
	"barclays": {
		Name:            "barclays",
		Headers:         []string{"Date", "Description", "Money out", "Money in", "Balance"},
		DateColumn:      "Date",
		DebitColumn:     "Money out",
		CreditColumn:    "Money in",
		RowTolerance:    3.0,
		ColumnTolerance: 2.0,
		DatePattern:     ukDatePattern,
		DateLayouts:     ukDateLayouts,
		AmountStrip:     currencyStrip,
		MultiLine:       true,
	},
	"hsbc": {
		Name:            "hsbc",
		Headers:         []string{"Date", "Payment type and details", "Paid out", "Paid in", "Balance"},
		DateColumn:      "Date",
		DebitColumn:     "Paid out",
		CreditColumn:    "Paid in",
		RowTolerance:    3.0,
		ColumnTolerance: 2.0,
		DatePattern:     ukDatePattern,
		DateLayouts:     ukDateLayouts,
		AmountStrip:     currencyStrip,
		MultiLine:       true,
	},
	"metro": {
		Name:            "metro",
		Headers:         []string{"Date", "Transaction", "Money Out", "Money In", "Balance"},
		DateColumn:      "Date",
		DebitColumn:     "Money Out",
		CreditColumn:    "Money In",
		RowTolerance:    2.5,
		ColumnTolerance: 2.0,
		DatePattern:     ukDatePattern,
		DateLayouts:     ukDateLayouts,
		AmountStrip:     currencyStrip,
		MultiLine:       false,
	},
}

// Template returns the named layout template.
func Template(name string) (TableLayout, bool) {
	cfg, ok := templates[name]
	return cfg, ok
}

// TemplateNames lists the registered template names.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	return names
}
