// internal/service/order/domain/port/payment.go
package port

import "context"

// 网关上报的支付状态中，核心只对成功状态做显式分支，
// 其余一律按失败处理。
const PaymentStatusSucceeded = "succeeded"

// PaymentIntent 是支付网关侧的在途扣款对象。
// 它由网关持有和变更，核心只在订单上记录它的 ID。
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string // requires_confirmation / succeeded / failed / canceled / ...
	Amount       int64  // 最小货币单位
	Currency     string
}

// PaymentGateway 是支付处理商的出站端口。
// 金额一律以最小货币单位（整数）传输。
type PaymentGateway interface {
	// Create 创建一个支付意图，metadata 用于携带订单 id 等关联信息。
	Create(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*PaymentIntent, error)

	// Confirm 确认支付意图。paymentMethodID 可以为空，表示使用默认支付方式。
	Confirm(ctx context.Context, intentID, paymentMethodID string) (*PaymentIntent, error)

	// Retrieve 查询支付意图的当前状态。
	Retrieve(ctx context.Context, intentID string) (*PaymentIntent, error)

	// Cancel 取消支付意图。
	Cancel(ctx context.Context, intentID string) (*PaymentIntent, error)
}
