package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []OrderItem {
	return []OrderItem{
		{ProductID: "p-1", ProductName: "Keyboard", UnitPrice: decimal.RequireFromString("79.99"), Quantity: 2},
		{ProductID: "p-2", ProductName: "Mouse", UnitPrice: decimal.RequireFromString("25.50"), Quantity: 1},
	}
}

func TestNewOrder(t *testing.T) {
	order, err := NewOrder("user-1", "usd", testItems())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, "user-1", order.UserID)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("185.48")), "total = 2*79.99 + 25.50")
	assert.False(t, order.CreatedAt.IsZero())
	assert.Empty(t, order.PaymentIntentID)
}

func TestNewOrder_NoItems(t *testing.T) {
	_, err := NewOrder("user-1", "usd", nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestNewOrder_NonPositiveQuantity(t *testing.T) {
	items := testItems()
	items[1].Quantity = 0

	_, err := NewOrder("user-1", "usd", items)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestNewOrder_NonPositiveTotal(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p-free", ProductName: "Sticker", UnitPrice: decimal.Zero, Quantity: 3},
	}
	_, err := NewOrder("user-1", "usd", items)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestOrderItem_LineTotal(t *testing.T) {
	item := OrderItem{UnitPrice: decimal.RequireFromString("19.99"), Quantity: 3}
	assert.True(t, item.LineTotal().Equal(decimal.RequireFromString("59.97")))
}

func TestOrder_Cancel(t *testing.T) {
	order, err := NewOrder("user-1", "usd", testItems())
	require.NoError(t, err)

	assert.True(t, order.Cancel())
	assert.Equal(t, StatusCancelled, order.Status)

	// 终态之后再取消是无效操作
	assert.False(t, order.Cancel())
}

func TestOrder_CancelAfterShipment(t *testing.T) {
	order, err := NewOrder("user-1", "usd", testItems())
	require.NoError(t, err)
	order.SetStatus(StatusShipped)

	assert.False(t, order.Cancel())
	assert.Equal(t, StatusShipped, order.Status)
}

func TestOrder_AmountMinorUnits(t *testing.T) {
	order, err := NewOrder("user-1", "usd", []OrderItem{
		{ProductID: "p-1", ProductName: "Cable", UnitPrice: decimal.RequireFromString("12.34"), Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1234), order.AmountMinorUnits())

	// 超出两位小数的部分截断，不四舍五入
	order.TotalAmount = decimal.RequireFromString("10.999")
	assert.Equal(t, int64(1099), order.AmountMinorUnits())
}

func TestSnapshot(t *testing.T) {
	order, err := NewOrder("user-1", "usd", testItems())
	require.NoError(t, err)
	order.ID = 42
	order.AttachPaymentIntent("pi_123")

	snap := Snapshot(order)
	assert.Equal(t, uint64(42), snap.ID)
	assert.Equal(t, "user-1", snap.UserID)
	assert.Equal(t, StatusPending, snap.Status)
	assert.Equal(t, "pi_123", snap.PaymentIntentID)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "p-1", snap.Items[0].ProductID)
	assert.Equal(t, "Keyboard", snap.Items[0].ProductName)
	assert.True(t, snap.TotalAmount.Equal(order.TotalAmount))
}
