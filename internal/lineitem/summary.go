package lineitem

import "github.com/shopspring/decimal"

// Summary is the derived money state of a document.
type Summary struct {
	Items            []Item
	Total            decimal.Decimal
	Advance          decimal.Decimal
	RemainingBalance decimal.Decimal
}

// Summarize validates the items and advance and computes every derived value.
// The advance must lie within [0, total].
func Summarize(items []Item, advance decimal.Decimal) (Summary, error) {
	if err := Validate(items); err != nil {
		return Summary{}, err
	}
	computed, total := Recalculate(items)
	summary := Summary{Items: computed, Total: total}
	return summary.WithAdvance(advance)
}

// WithAdvance recomputes the remaining balance for a new advance without touching items.
func (s Summary) WithAdvance(advance decimal.Decimal) (Summary, error) {
	advance = advance.Round(MoneyScale)
	if advance.IsNegative() || advance.GreaterThan(s.Total) {
		return s, ErrInvalidAdvance
	}
	s.Advance = advance
	s.RemainingBalance = Balance(s.Total, advance)
	return s, nil
}

func Balance(total, advance decimal.Decimal) decimal.Decimal {
	return total.Sub(advance)
}
