package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCart_RecordInteraction(t *testing.T) {
	c := NewCart()
	assert.False(t, c.RecordInteraction(t0))
	require.NotNil(t, c.LastInteractionAt)
	assert.True(t, c.LastInteractionAt.Equal(t0))

	//abandoned → active
	c.MarkAbandoned()
	assert.True(t, c.RecordInteraction(t0.Add(time.Minute)))
	assert.Equal(t, CartStatusActive, c.Status)
}

func TestCart_DeleteIfAbandoned(t *testing.T) {
	c := NewCart()
	_, err := c.DeleteIfAbandoned(DeletionModeSoft)
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Equal(t, CartStatusActive, c.Status)

	c.MarkAbandoned()
	hard, err := c.DeleteIfAbandoned(DeletionModeSoft)
	require.NoError(t, err)
	assert.False(t, hard)
	assert.True(t, c.IsDeleted())

	//deletedは終端
	_, err = c.DeleteIfAbandoned(DeletionModeSoft)
	assert.ErrorIs(t, err, ErrNotEligible)

	c2 := NewCart()
	c2.MarkAbandoned()
	hard, err = c2.DeleteIfAbandoned(DeletionModeHard)
	require.NoError(t, err)
	assert.True(t, hard)
}

func TestCart_IsInactiveSince(t *testing.T) {
	cutoff := t0.Add(-3 * time.Hour)

	//操作履歴なし → updated_atで判定
	c := Cart{Status: CartStatusActive, UpdatedAt: cutoff.Add(-time.Minute)}
	assert.True(t, c.ShouldBeAbandoned(cutoff))

	recent := cutoff.Add(time.Minute)
	c.LastInteractionAt = &recent
	assert.False(t, c.ShouldBeAbandoned(cutoff))

	old := cutoff.Add(-time.Second)
	c.LastInteractionAt = &old
	c.UpdatedAt = t0
	assert.True(t, c.ShouldBeAbandoned(cutoff))

	c.Status = CartStatusAbandoned
	assert.False(t, c.ShouldBeAbandoned(cutoff))
}

func TestCart_ShouldBeDeleted(t *testing.T) {
	cutoff := t0.Add(-7 * 24 * time.Hour)

	c := Cart{Status: CartStatusAbandoned, UpdatedAt: cutoff.Add(-24 * time.Hour)}
	assert.True(t, c.ShouldBeDeleted(cutoff))

	c.UpdatedAt = cutoff.Add(time.Hour)
	assert.False(t, c.ShouldBeDeleted(cutoff))

	c.Status = CartStatusActive
	c.UpdatedAt = cutoff.Add(-24 * time.Hour)
	assert.False(t, c.ShouldBeDeleted(cutoff))
}

func TestCart_RecalculateTotal(t *testing.T) {
	items := []CartItem{
		{Quantity: 3, UnitPrice: decimal.RequireFromString("1.99")},
		{Quantity: 2, UnitPrice: decimal.RequireFromString("25")},
	}

	c := NewCart()
	c.RecalculateTotal(items)
	assert.True(t, decimal.RequireFromString("55.97").Equal(c.TotalPrice), c.TotalPrice.String())

	c.RecalculateTotal(nil)
	assert.True(t, c.TotalPrice.IsZero())
}

func TestCart_TotalFits(t *testing.T) {
	c := NewCart()
	c.RecalculateTotal([]CartItem{{Quantity: 1, UnitPrice: MaxTotalPrice}})
	assert.True(t, c.TotalFits())

	c.RecalculateTotal([]CartItem{{Quantity: 2, UnitPrice: MaxTotalPrice}})
	assert.False(t, c.TotalFits())
}

func TestParseDeletionMode(t *testing.T) {
	m, err := ParseDeletionMode("")
	require.NoError(t, err)
	assert.Equal(t, DeletionModeSoft, m)

	m, err = ParseDeletionMode(" Hard ")
	require.NoError(t, err)
	assert.Equal(t, DeletionModeHard, m)

	_, err = ParseDeletionMode("archive")
	assert.Error(t, err)
	assert.False(t, DeletionMode("archive").Valid())
}
