// internal/service/order/domain/status.go
package domain

import "fmt"

// Status 定义了订单的生命周期状态。
type Status string

const (
	StatusPending    Status = "PENDING"    // 订单已创建，库存已预占，等待支付
	StatusProcessing Status = "PROCESSING" // 支付成功或确认通过，进入处理流程
	StatusShipped    Status = "SHIPPED"    // 已发货
	StatusDelivered  Status = "DELIVERED"  // 已送达（终态）
	StatusCancelled  Status = "CANCELLED"  // 已取消（终态，仅能从 PENDING/PROCESSING 到达）
)

// transitions 是状态机的显式迁移表。
// SHIPPED/DELIVERED/CANCELLED 之后没有任何回退路径。
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransitionTo 判断从当前状态到 next 是否是合法迁移。
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal 判断当前状态是否是终态。
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Cancellable 判断订单在当前状态下能否被取消。
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// ParseStatus 把外部输入解析为 Status。
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown order status: %q", raw)
}
