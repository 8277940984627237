package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring(id string) Product {
	return Product{ID: id, Name: "Ring " + id, Code: "RG-" + id, MinWeight: "4g", Category: "rings"}
}

func TestAddToCartTwiceIncrementsOneLine(t *testing.T) {
	s := NewStore(nil)
	s.AddToCart(ring("R1"))
	s.AddToCart(ring("R1"))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 2, s.TotalQuantity())
}

func TestUpdateQuantityBelowOneRemovesLine(t *testing.T) {
	s := NewStore(nil)
	s.AddToCart(ring("R1"))
	s.AddToCart(ring("R2"))

	s.UpdateQuantity("R1", 5)
	assert.Equal(t, 5, s.Items()[0].Quantity)

	s.UpdateQuantity("R1", 0)
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "R2", items[0].ID)

	s.UpdateQuantity("R2", -3)
	assert.Zero(t, s.Count())

	s.UpdateQuantity("missing", 3)
	assert.Zero(t, s.Count())
}

func TestCountIsDistinctLines(t *testing.T) {
	s := NewStore(nil)
	s.AddToCart(ring("R1"))
	s.AddToCart(ring("R1"))
	s.AddToCart(ring("R1"))
	s.AddToCart(ring("R2"))
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 4, s.TotalQuantity())
}

func TestRemoveAndClear(t *testing.T) {
	s := NewStore(nil)
	s.AddToCart(ring("R1"))
	s.AddToCart(ring("R2"))
	s.RemoveFromCart("R1")
	require.Len(t, s.Items(), 1)
	s.RemoveFromCart("R1")
	require.Len(t, s.Items(), 1)

	s.ClearCart()
	assert.Empty(t, s.Items())
}

func TestNewStoreDropsInvalidAndDuplicateLines(t *testing.T) {
	s := NewStore([]Item{
		{Product: ring("R1"), Quantity: 2},
		{Product: ring("R1"), Quantity: 9},
		{Product: ring("R2"), Quantity: 0},
		{Product: Product{Name: "no id"}, Quantity: 1},
	})
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestItemsReturnsCopy(t *testing.T) {
	s := NewStore(nil)
	s.AddToCart(ring("R1"))
	items := s.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, s.Items()[0].Quantity)
}
