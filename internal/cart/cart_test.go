package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/perfshop/internal/catalog"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Product{
		{ID: "p-1", Name: "Phone Case", Category: "Accessories", Price: decimal.RequireFromString("14.99"), InStock: true},
		{ID: "p-2", Name: "USB Cable", Category: "Accessories", Price: decimal.RequireFromString("0.10"), InStock: true},
		{ID: "p-3", Name: "Headphones", Category: "Audio", Price: decimal.RequireFromString("199.00"), InStock: false},
	})
	require.NoError(t, err)
	return cat
}

func TestCart_AddMergesLines(t *testing.T) {
	c := New(testCatalog(t))

	_, err := c.Add("p-1", 1)
	require.NoError(t, err)
	snap, err := c.Add("p-1", 2)
	require.NoError(t, err)

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 3, snap.Lines[0].Quantity)
	assert.Equal(t, "44.97", snap.Subtotal.StringFixed(2))
}

func TestCart_DecimalTotalsAreExact(t *testing.T) {
	// Given: ten-cent items, which float arithmetic gets wrong
	c := New(testCatalog(t))

	// When
	for i := 0; i < 3; i++ {
		_, err := c.Add("p-2", 1)
		require.NoError(t, err)
	}

	// Then
	assert.True(t, c.Subtotal().Equal(decimal.RequireFromString("0.3")))
	assert.Equal(t, 3, c.ItemCount())
}

func TestCart_AddValidation(t *testing.T) {
	c := New(testCatalog(t))

	tests := []struct {
		name string
		id   string
		qty  int
		code string
	}{
		{"unknown product", "p-404", 1, shoperrors.ErrCodeUnknownProduct},
		{"out of stock", "p-3", 1, shoperrors.ErrCodeOutOfStock},
		{"zero quantity", "p-1", 0, shoperrors.ErrCodeInvalidQuantity},
		{"negative quantity", "p-1", -2, shoperrors.ErrCodeInvalidQuantity},
		{"over the cap", "p-1", MaxQuantity + 1, shoperrors.ErrCodeInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Add(tt.id, tt.qty)
			assert.Equal(t, tt.code, shoperrors.GetCode(err))
			assert.True(t, shoperrors.IsValidation(err))
		})
	}
	assert.Empty(t, c.Snapshot().Lines)
}

func TestCart_SetQuantityAndRemove(t *testing.T) {
	c := New(testCatalog(t))
	_, _ = c.Add("p-1", 1)
	_, _ = c.Add("p-2", 5)

	snap, err := c.SetQuantity("p-2", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ItemCount)

	snap, err = c.Remove("p-1")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "p-2", snap.Lines[0].ProductID)

	_, err = c.Remove("p-1")
	assert.Equal(t, shoperrors.ErrCodeUnknownProduct, shoperrors.GetCode(err))
}

func TestCart_ClearAndSubscribe(t *testing.T) {
	c := New(testCatalog(t))
	var counts []int
	c.Subscribe(func(s Snapshot) { counts = append(counts, s.ItemCount) })

	_, _ = c.Add("p-1", 2)
	_, _ = c.Add("p-2", 1)
	c.Clear()

	assert.Equal(t, []int{2, 3, 0}, counts)
	assert.True(t, c.Subtotal().IsZero())
}
