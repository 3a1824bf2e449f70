package aibalance

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dkraev/fintrack/internal/balance"
)

// CoerceCandidates converts the model's decoded JSON into balance
// candidates. Entries without a usable page number are dropped; every other
// malformed field becomes null or zero. Nothing here ever errors.
func CoerceCandidates(statementID string, parsed interface{}) []balance.Candidate {
	entries, ok := parsed.([]interface{})
	if !ok {
		return nil
	}

	candidates := make([]balance.Candidate, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		page, ok := coerceInt(obj["page_number"])
		if !ok || page < 1 {
			continue
		}

		candidates = append(candidates, balance.Candidate{
			StatementID:      statementID,
			PageNumber:       page,
			OpeningBalance:   coerceDecimal(obj["opening_balance"]),
			ClosingBalance:   coerceDecimal(obj["closing_balance"]),
			AvailableBalance: coerceDecimal(obj["available_balance"]),
			CurrentBalance:   coerceDecimal(obj["current_balance"]),
			Confidence:       coerceConfidence(obj["confidence"]),
			Notes:            coerceString(obj["notes"]),
		})
	}

	return candidates
}

// coerceDecimal accepts JSON numbers and numeric strings; anything else is
// reported as absent.
func coerceDecimal(v interface{}) *decimal.Decimal {
	switch val := v.(type) {
	case float64:
		d := decimal.NewFromFloat(val)
		return &d
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	default:
		return nil
	}
}

func coerceInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}

// coerceConfidence clamps to the 0–100 scale; malformed values mean "no
// confidence", never an error.
func coerceConfidence(v interface{}) int {
	n, ok := coerceInt(v)
	if !ok {
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func coerceString(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
