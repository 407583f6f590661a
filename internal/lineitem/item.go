// Package lineitem computes item amounts, document totals and balances.
// Every function is pure: inputs are never mutated and the same inputs
// always produce the same result.
package lineitem

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoItems         = errors.New("invalid_items")
	ErrLastItem        = errors.New("last_item")
	ErrItemIndex       = errors.New("invalid_item_index")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidAdvance  = errors.New("invalid_advance")
)

// MoneyScale is the number of decimal places money is stored with.
const MoneyScale = 2

// Item is one line of a document. Amount is always derived.
type Item struct {
	Description string          `json:"description" gorm:"column:description;type:text;not null;default:''"`
	Quantity    int64           `json:"quantity" gorm:"column:quantity;not null"`
	Rate        decimal.Decimal `json:"rate" gorm:"column:rate;type:numeric(14,2);not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
}

// Blank is the item appended when a user adds a line.
func Blank() Item {
	return Item{Quantity: 1, Rate: decimal.Zero, Amount: decimal.Zero}
}

// Computed returns the item with amount = quantity * rate.
func (i Item) Computed() Item {
	i.Rate = i.Rate.Round(MoneyScale)
	i.Amount = i.Rate.Mul(decimal.NewFromInt(i.Quantity))
	return i
}

// Recalculate returns a copy of items with every amount recomputed, and their sum.
func Recalculate(items []Item) ([]Item, decimal.Decimal) {
	out := make([]Item, len(items))
	total := decimal.Zero
	for idx, item := range items {
		out[idx] = item.Computed()
		total = total.Add(out[idx].Amount)
	}
	return out, total
}

// Total sums the stored amounts without recomputing them.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// Add appends a blank line. Totals are unchanged because the line is worth zero.
func Add(items []Item) []Item {
	out := make([]Item, 0, len(items)+1)
	out = append(out, items...)
	return append(out, Blank())
}

// Remove drops the line at index. A document keeps at least one line, so
// removing the only remaining item returns the list unchanged with ErrLastItem.
func Remove(items []Item, index int) ([]Item, error) {
	if index < 0 || index >= len(items) {
		return items, ErrItemIndex
	}
	if len(items) <= 1 {
		return items, ErrLastItem
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	return out, nil
}

// Edit sets quantity and rate of one line and recomputes its amount.
func Edit(items []Item, index int, quantity int64, rate decimal.Decimal) ([]Item, error) {
	if index < 0 || index >= len(items) {
		return items, ErrItemIndex
	}
	out := make([]Item, len(items))
	copy(out, items)
	out[index].Quantity = quantity
	out[index].Rate = rate
	out[index] = out[index].Computed()
	return out, nil
}

// Validate checks the per-line invariants that storage does not enforce.
func Validate(items []Item) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.Rate.IsNegative() || !item.Rate.Equal(item.Rate.Round(MoneyScale)) {
			return ErrInvalidRate
		}
	}
	return nil
}
