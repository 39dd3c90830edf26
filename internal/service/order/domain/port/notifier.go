// internal/service/order/domain/port/notifier.go
package port

import (
	"context"

	"orderhub/internal/service/order/domain"
)

// Notifier 是用户通知的出站端口，由事件消费侧在各生命周期节点调用。
// 实现方决定通知的具体形态（邮件、推送、下游消息等）。
type Notifier interface {
	// SendOrderConfirmation 发送下单确认。
	SendOrderConfirmation(ctx context.Context, order domain.OrderSnapshot) error

	// SendShippingNotice 发送发货通知。
	SendShippingNotice(ctx context.Context, order domain.OrderSnapshot) error

	// SendDeliveryConfirmation 发送送达确认。
	SendDeliveryConfirmation(ctx context.Context, order domain.OrderSnapshot) error

	// SendCancellationNotice 发送取消通知。
	SendCancellationNotice(ctx context.Context, order domain.OrderSnapshot) error

	// SendPaymentConfirmation 发送支付成功确认。
	SendPaymentConfirmation(ctx context.Context, order domain.OrderSnapshot) error

	// SendPaymentFailureNotice 发送支付失败通知。
	SendPaymentFailureNotice(ctx context.Context, order domain.OrderSnapshot) error
}
