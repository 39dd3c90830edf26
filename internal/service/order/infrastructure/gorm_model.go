// internal/service/order/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"

	"orderhub/internal/service/order/domain"
)

// OrderModel 对应数据库中的 orders 表。
type OrderModel struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	UserID          string `gorm:"index"`
	TotalAmount     string `gorm:"type:decimal(12,2)"`
	Currency        string `gorm:"size:8"`
	Status          string `gorm:"size:16;index"`
	PaymentIntentID string `gorm:"size:64;index"`
	Version         uint64
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定 GORM 应该使用的表名。
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表。
// UnitPrice 和 ProductName 是下单时刻的快照列，不回表商品。
type OrderItemModel struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	OrderID     uint64 `gorm:"index"`
	ProductID   string `gorm:"size:64"`
	ProductName string
	UnitPrice   string `gorm:"type:decimal(12,2)"`
	Quantity    int
	Position    int // 保持条目的插入顺序
}

// TableName 指定 GORM 应该使用的表名。
func (OrderItemModel) TableName() string {
	return "order_items"
}

// toModel 把领域聚合转换为数据库模型。
func toModel(o *domain.Order) *OrderModel {
	items := make([]OrderItemModel, 0, len(o.Items))
	for i, item := range o.Items {
		items = append(items, OrderItemModel{
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice.String(),
			Quantity:    item.Quantity,
			Position:    i,
		})
	}
	return &OrderModel{
		ID:              o.ID,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount.String(),
		Currency:        o.Currency,
		Status:          string(o.Status),
		PaymentIntentID: o.PaymentIntentID,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           items,
	}
}

// toDomain 把数据库模型还原为领域聚合。
// 金额列损坏属于数据级故障，这里直接上抛解析错误。
func toDomain(m *OrderModel) (*domain.Order, error) {
	total, err := decimal.NewFromString(m.TotalAmount)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, len(m.Items))
	for _, item := range m.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   price,
			Quantity:    item.Quantity,
		})
	}
	return &domain.Order{
		ID:              m.ID,
		UserID:          m.UserID,
		Items:           items,
		TotalAmount:     total,
		Currency:        m.Currency,
		Status:          domain.Status(m.Status),
		PaymentIntentID: m.PaymentIntentID,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}, nil
}
