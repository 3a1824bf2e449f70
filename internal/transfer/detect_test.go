package transfer

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/keywords"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func txn(id, account string, amount string, date time.Time, desc string) Transaction {
	return Transaction{
		ID:          id,
		UserID:      "user-1",
		AccountID:   account,
		Date:        date,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScorePair_MaxConfidence(t *testing.T) {
	// Exact amount, same day, keyword: 0.5+0.30+0.20+0.15 capped at 0.95.
	a := txn("a", "acct-x", "-5000", day(3), "INTERBANK TRANSFER REF 1123")
	b := txn("b", "acct-y", "5000", day(3), "TRANSFER FROM CHECKING")

	s, ok := scorePair(a, b, DefaultOptions(), keywords.TransferV1())
	if !ok {
		t.Fatal("Expected pair to qualify")
	}
	if !almostEqual(s.Confidence, 0.95) {
		t.Errorf("Expected confidence 0.95, got %f", s.Confidence)
	}
	if !s.AmountDiff.IsZero() {
		t.Errorf("Expected zero amount diff, got %s", s.AmountDiff)
	}
	if s.DateDiffDays != 0 {
		t.Errorf("Expected 0 day diff, got %d", s.DateDiffDays)
	}
}

func TestScorePair_Scoring(t *testing.T) {
	tests := []struct {
		name string
		a    Transaction
		b    Transaction
		want float64
	}{
		{
			name: "exact amount same day no keyword",
			a:    txn("a", "x", "-100", day(3), "PAYMENT OUT"),
			b:    txn("b", "y", "100", day(3), "PAYMENT IN"),
			want: 0.5 + 0.30 + 0.20,
		},
		{
			name: "exact amount one day apart",
			a:    txn("a", "x", "-100", day(3), "PAYMENT OUT"),
			b:    txn("b", "y", "100", day(4), "PAYMENT IN"),
			want: 0.5 + 0.30 + 0.10,
		},
		{
			name: "near amount same day",
			a:    txn("a", "x", "-100.00", day(3), "PAYMENT OUT"),
			b:    txn("b", "y", "99.50", day(3), "PAYMENT IN"),
			want: 0.5 + 0.20 + 0.20,
		},
		{
			name: "exact amount three days apart",
			a:    txn("a", "x", "-100", day(3), "PAYMENT OUT"),
			b:    txn("b", "y", "100", day(6), "PAYMENT IN"),
			want: 0.5 + 0.30,
		},
		{
			name: "keyword on one side only",
			a:    txn("a", "x", "-100", day(3), "FPS CREDIT 4471"),
			b:    txn("b", "y", "100", day(5), "PAYMENT IN"),
			want: 0.5 + 0.30 + 0.15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := scorePair(tt.a, tt.b, DefaultOptions(), keywords.TransferV1())
			if !ok {
				t.Fatal("Expected pair to qualify")
			}
			if !almostEqual(s.Confidence, tt.want) {
				t.Errorf("Expected confidence %f, got %f", tt.want, s.Confidence)
			}
		})
	}
}

func TestScorePair_Filters(t *testing.T) {
	linked := txn("a", "x", "-100", day(3), "OUT")
	linked.Linked = true
	internal := txn("a", "x", "-100", day(3), "OUT")
	internal.Internal = true

	tests := []struct {
		name string
		a    Transaction
		b    Transaction
	}{
		{
			name: "same account",
			a:    txn("a", "x", "-100", day(3), "OUT"),
			b:    txn("b", "x", "100", day(3), "IN"),
		},
		{
			name: "same sign",
			a:    txn("a", "x", "-100", day(3), "OUT"),
			b:    txn("b", "y", "-100", day(3), "OUT"),
		},
		{
			name: "zero amount counterpart",
			a:    txn("a", "x", "-100", day(3), "OUT"),
			b:    txn("b", "y", "0", day(3), "IN"),
		},
		{
			name: "amount outside tolerance",
			a:    txn("a", "x", "-100.00", day(3), "OUT"),
			b:    txn("b", "y", "98.00", day(3), "IN"),
		},
		{
			name: "date outside tolerance",
			a:    txn("a", "x", "-100", day(3), "OUT"),
			b:    txn("b", "y", "100", day(7), "IN"),
		},
		{
			name: "already linked",
			a:    linked,
			b:    txn("b", "y", "100", day(3), "IN"),
		},
		{
			name: "flagged internal",
			a:    internal,
			b:    txn("b", "y", "100", day(3), "IN"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := scorePair(tt.a, tt.b, DefaultOptions(), keywords.TransferV1()); ok {
				t.Error("Expected pair to be filtered out")
			}
		})
	}
}

func TestScorePair_ToleranceBoundary(t *testing.T) {
	opts := DefaultOptions()

	// Exactly 1% off: inside the default tolerance.
	a := txn("a", "x", "-100.00", day(3), "OUT")
	b := txn("b", "y", "99.00", day(3), "IN")
	if _, ok := scorePair(a, b, opts, nil); !ok {
		t.Error("Expected a 1% difference to pass the default tolerance")
	}

	// Exactly 3 days apart: inside the default day tolerance.
	c := txn("c", "y", "100", day(6), "IN")
	if _, ok := scorePair(a, c, opts, nil); !ok {
		t.Error("Expected a 3-day gap to pass the default tolerance")
	}
}

func TestScorePair_NilKeywords(t *testing.T) {
	a := txn("a", "x", "-100", day(3), "TRANSFER OUT")
	b := txn("b", "y", "100", day(3), "TRANSFER IN")

	s, ok := scorePair(a, b, DefaultOptions(), nil)
	if !ok {
		t.Fatal("Expected pair to qualify")
	}
	if !almostEqual(s.Confidence, 0.5+0.30+0.20) {
		t.Errorf("Expected no keyword bonus without a keyword set, got %f", s.Confidence)
	}
}

func TestDetect_SortedByConfidence(t *testing.T) {
	txns := []Transaction{
		txn("a", "x", "-100", day(3), "OUT"),
		txn("b", "y", "100", day(3), "IN"),  // exact + same day
		txn("c", "z", "99.50", day(4), "IN"), // near + one day
	}

	got := Detect(txns, DefaultOptions(), nil)

	if len(got) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(got))
	}
	if got[0].Confidence < got[1].Confidence {
		t.Errorf("Expected descending confidence, got %f then %f", got[0].Confidence, got[1].Confidence)
	}
	if got[0].Transaction2.ID != "b" {
		t.Errorf("Expected strongest pair to involve transaction b, got %s", got[0].Transaction2.ID)
	}
}

func TestDetect_NoCandidates(t *testing.T) {
	txns := []Transaction{
		txn("a", "x", "-100", day(3), "OUT"),
		txn("b", "x", "100", day(3), "IN"), // same account
	}

	if got := Detect(txns, DefaultOptions(), nil); len(got) != 0 {
		t.Errorf("Expected no suggestions, got %d", len(got))
	}
}

func TestSuggestFor_TopFiveAndSelfExcluded(t *testing.T) {
	target := txn("target", "x", "-100", day(3), "OUT")

	txns := []Transaction{target}
	for i := 0; i < 8; i++ {
		counterDay := day(3 + i%3)
		txns = append(txns, txn(fmt.Sprintf("c%d", i), "y", "100", counterDay, "IN"))
	}

	got := SuggestFor(target, txns, DefaultOptions(), nil)

	if len(got) != 5 {
		t.Fatalf("Expected 5 suggestions, got %d", len(got))
	}
	for _, s := range got {
		if s.Transaction2.ID == "target" {
			t.Error("Expected the target to be excluded from its own suggestions")
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Confidence < got[i].Confidence {
			t.Errorf("Expected descending confidence at index %d", i)
		}
	}
}

func TestDateDiffDays(t *testing.T) {
	tests := []struct {
		name string
		a    time.Time
		b    time.Time
		want int
	}{
		{"same day", day(3), day(3), 0},
		{"one day", day(3), day(4), 1},
		{"symmetric", day(4), day(3), 1},
		{"time of day ignored", day(3).Add(23 * time.Hour), day(4), 1},
		{"month boundary", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dateDiffDays(tt.a, tt.b); got != tt.want {
				t.Errorf("Expected %d days, got %d", tt.want, got)
			}
		})
	}
}
