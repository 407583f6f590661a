package lineitem

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	summary, err := Summarize([]Item{item("work", 2, "500")}, decimal.NewFromInt(250))

	require.NoError(t, err)
	assert.Equal(t, "1000.00", summary.Total.StringFixed(2))
	assert.Equal(t, "250.00", summary.Advance.StringFixed(2))
	assert.Equal(t, "750.00", summary.RemainingBalance.StringFixed(2))
	assert.True(t, summary.RemainingBalance.Equal(summary.Total.Sub(summary.Advance)))
}

func TestSummaryWithAdvance(t *testing.T) {
	summary, err := Summarize([]Item{item("work", 1, "100")}, decimal.Zero)
	require.NoError(t, err)

	t.Run("recomputes balance without touching items", func(t *testing.T) {
		updated, err := summary.WithAdvance(decimal.RequireFromString("40.5"))

		require.NoError(t, err)
		assert.Equal(t, summary.Items, updated.Items)
		assert.Equal(t, "59.50", updated.RemainingBalance.StringFixed(2))
	})

	t.Run("advance equal to total leaves nothing due", func(t *testing.T) {
		updated, err := summary.WithAdvance(decimal.NewFromInt(100))

		require.NoError(t, err)
		assert.True(t, updated.RemainingBalance.IsZero())
	})

	t.Run("rejects advance above total", func(t *testing.T) {
		_, err := summary.WithAdvance(decimal.NewFromInt(101))
		assert.ErrorIs(t, err, ErrInvalidAdvance)
	})

	t.Run("rejects negative advance", func(t *testing.T) {
		_, err := summary.WithAdvance(decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrInvalidAdvance)
	})
}

func TestSummarizeRejectsInvalidItems(t *testing.T) {
	_, err := Summarize(nil, decimal.Zero)
	assert.ErrorIs(t, err, ErrNoItems)
}
