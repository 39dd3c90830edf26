// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 是订单聚合的根实体。
// TotalAmount 在创建时一次性算定，等于所有行小计之和，之后不再重算
// （条目在本流程中创建后不可变）。状态只通过迁移表定义的路径流转。
type Order struct {
	ID          uint64
	UserID      string
	Items       []OrderItem // 插入顺序即展示/结算顺序
	TotalAmount decimal.Decimal
	Currency    string
	Status      Status
	CreatedAt   time.Time // 创建时设置一次，之后不可变

	// PaymentIntentID 是支付网关侧 PaymentIntent 的引用，
	// 在支付意图创建之前为空。核心只持久化这个 id，不落网关对象。
	PaymentIntentID string

	// Version 由仓储维护，用于更新时的乐观并发检查。
	Version uint64

	UpdatedAt time.Time
}

// OrderItem 是订单的行条目，完全归属于一个 Order，没有独立生命周期。
// ProductName 和 UnitPrice 是下单时刻的商品快照。
type OrderItem struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// LineTotal 返回行小计：单价 × 数量。
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrder 是订单聚合的工厂函数。调用方负责先解析商品快照并完成库存预占；
// 这里只做聚合本身的不变量检查：条目非空、数量为正、总额为正。
func NewOrder(userID, currency string, items []OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, NewValidationError("Order must contain at least one item")
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, NewValidationError("Item quantity must be greater than 0")
		}
		total = total.Add(item.LineTotal())
	}
	if total.Cmp(decimal.Zero) <= 0 {
		return nil, NewValidationError("Order total must be greater than 0")
	}

	now := time.Now()
	return &Order{
		UserID:      userID,
		Items:       items,
		TotalAmount: total,
		Currency:    currency,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetStatus 无条件覆盖订单状态。
// 注意：是否是合法迁移由调用方决定要不要校验，这里保持宽容语义。
func (o *Order) SetStatus(status Status) {
	o.Status = status
	o.UpdatedAt = time.Now()
}

// Cancel 取消订单。只有 PENDING/PROCESSING 的订单可以取消。
func (o *Order) Cancel() bool {
	if !o.Status.Cancellable() {
		return false
	}
	o.SetStatus(StatusCancelled)
	return true
}

// AttachPaymentIntent 把网关侧的支付意图 id 记录到订单上。
func (o *Order) AttachPaymentIntent(intentID string) {
	o.PaymentIntentID = intentID
	o.UpdatedAt = time.Now()
}

// AmountMinorUnits 返回以最小货币单位表示的订单总额（如美分）。
// 规则：乘以 100 后截断。十进制金额在这里只有两位小数，精度风险有限，
// 但规则本身是截断而不是四舍五入。
func (o *Order) AmountMinorUnits() int64 {
	return o.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()
}
