// internal/service/order/domain/events.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// 生命周期事件使用的 topic。
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusUpdated = "order.status.updated"
	TopicOrderCancelled     = "order.cancelled"
	TopicPaymentProcessed   = "payment.processed"
)

// OrderSnapshot 是事件消息携带的订单快照：发布时刻的完整订单视图。
// 消息不落库，字段名跨版本保持稳定，下游按名字解析。
type OrderSnapshot struct {
	ID              uint64          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []ItemSnapshot  `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
}

// ItemSnapshot 是事件中的订单条目视图。
type ItemSnapshot struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

// Snapshot 从聚合构造一份事件快照。
func Snapshot(o *Order) OrderSnapshot {
	items := make([]ItemSnapshot, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemSnapshot{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return OrderSnapshot{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
		PaymentIntentID: o.PaymentIntentID,
	}
}

// PaymentProcessedEvent 是 payment.processed 消息的载体：
// 订单快照加上网关上报的支付状态字符串。
type PaymentProcessedEvent struct {
	Order         OrderSnapshot `json:"order"`
	PaymentStatus string        `json:"paymentStatus"`
}
