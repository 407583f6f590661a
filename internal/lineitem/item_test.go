package lineitem

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(desc string, qty int64, rate string) Item {
	return Item{Description: desc, Quantity: qty, Rate: decimal.RequireFromString(rate)}
}

func TestRecalculate(t *testing.T) {
	items := []Item{
		item("design", 2, "500"),
		item("hosting", 3, "19.99"),
		item("domain", 1, "0"),
	}

	got, total := Recalculate(items)

	require.Len(t, got, 3)
	sum := decimal.Zero
	for _, it := range got {
		assert.True(t, it.Amount.Equal(it.Rate.Mul(decimal.NewFromInt(it.Quantity))), "amount of %s", it.Description)
		sum = sum.Add(it.Amount)
	}
	assert.True(t, total.Equal(sum))
	assert.Equal(t, "1059.97", total.StringFixed(2))
	assert.True(t, items[0].Amount.IsZero(), "input must not be mutated")
}

func TestRecalculateIsDeterministic(t *testing.T) {
	items := []Item{item("a", 7, "12.5"), item("b", 1, "3.25")}

	first, firstTotal := Recalculate(items)
	second, secondTotal := Recalculate(items)

	assert.Equal(t, first, second)
	assert.True(t, firstTotal.Equal(secondTotal))
}

func TestAdd(t *testing.T) {
	items, total := Recalculate([]Item{item("a", 2, "10")})

	added := Add(items)

	require.Len(t, added, 2)
	assert.Equal(t, int64(1), added[1].Quantity)
	assert.True(t, added[1].Rate.IsZero())
	assert.True(t, added[1].Amount.IsZero())
	_, newTotal := Recalculate(added)
	assert.True(t, total.Equal(newTotal))
	assert.Len(t, items, 1)
}

func TestRemove(t *testing.T) {
	t.Run("refuses the last item", func(t *testing.T) {
		items := []Item{item("only", 1, "5")}

		got, err := Remove(items, 0)

		assert.ErrorIs(t, err, ErrLastItem)
		assert.Len(t, got, 1)
	})

	t.Run("removes and keeps order", func(t *testing.T) {
		items := []Item{item("a", 1, "1"), item("b", 1, "2"), item("c", 1, "3")}

		got, err := Remove(items, 1)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Description)
		assert.Equal(t, "c", got[1].Description)
		assert.Len(t, items, 3)
	})

	t.Run("rejects out of range index", func(t *testing.T) {
		_, err := Remove([]Item{item("a", 1, "1"), item("b", 1, "1")}, 5)
		assert.ErrorIs(t, err, ErrItemIndex)
	})
}

func TestEdit(t *testing.T) {
	items, _ := Recalculate([]Item{item("a", 1, "10"), item("b", 1, "20")})

	got, err := Edit(items, 0, 4, decimal.RequireFromString("2.5"))

	require.NoError(t, err)
	assert.Equal(t, "10.00", got[0].Amount.StringFixed(2))
	assert.Equal(t, "10.00", items[0].Amount.StringFixed(2))
	assert.Equal(t, "30.00", Total(got).StringFixed(2))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
		want  error
	}{
		{name: "empty", items: nil, want: ErrNoItems},
		{name: "zero quantity", items: []Item{item("a", 0, "1")}, want: ErrInvalidQuantity},
		{name: "negative rate", items: []Item{item("a", 1, "-1")}, want: ErrInvalidRate},
		{name: "zero rate is fine", items: []Item{item("a", 1, "0")}, want: nil},
		{name: "sub-cent rate", items: []Item{item("a", 3, "0.125")}, want: ErrInvalidRate},
		{name: "trailing zeros are fine", items: []Item{item("a", 1, "12.500")}, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.items)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
