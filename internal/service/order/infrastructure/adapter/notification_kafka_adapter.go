// internal/service/order/infrastructure/adapter/notification_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"orderhub/internal/pkg/mq"
	"orderhub/internal/service/order/domain"
)

// 通知种类，下游的通知服务按 kind 选择模板和渠道。
const (
	NotificationOrderConfirmation   = "order.confirmation"
	NotificationShipping            = "order.shipped"
	NotificationDelivery            = "order.delivered"
	NotificationCancellation        = "order.cancelled"
	NotificationPaymentConfirmation = "payment.confirmation"
	NotificationPaymentFailure      = "payment.failure"
)

// NotificationEvent 是发给通知服务的消息结构。
// EventID 供下游做投递去重。
type NotificationEvent struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
	OrderID uint64 `json:"orderId"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NotificationKafkaAdapter 是 port.Notifier 的 Kafka 实现：
// 把各类用户通知发布到 notifications topic，由下游服务真正投递。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

// NewNotificationKafkaAdapter 创建通知生产者适配器。
func NewNotificationKafkaAdapter(brokers []string, topic string) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: mq.NewKafkaWriter(brokers, topic)}
}

// SendOrderConfirmation 发送下单确认。
func (a *NotificationKafkaAdapter) SendOrderConfirmation(ctx context.Context, order domain.OrderSnapshot) error {
	return a.send(ctx, order, NotificationOrderConfirmation,
		fmt.Sprintf("Your order #%d has been received. Total: %s %s.", order.ID, order.TotalAmount.String(), order.Currency))
}

// SendShippingNotice 发送发货通知。
func (a *NotificationKafkaAdapter) SendShippingNotice(ctx context.Context, order domain.OrderSnapshot) error {
	return a.send(ctx, order, NotificationShipping,
		fmt.Sprintf("Your order #%d has been shipped.", order.ID))
}

// SendDeliveryConfirmation 发送送达确认。
func (a *NotificationKafkaAdapter) SendDeliveryConfirmation(ctx context.Context, order domain.OrderSnapshot) error {
	return a.send(ctx, order, NotificationDelivery,
		fmt.Sprintf("Your order #%d has been delivered.", order.ID))
}

// SendCancellationNotice 发送取消通知。
func (a *NotificationKafkaAdapter) SendCancellationNotice(ctx context.Context, order domain.OrderSnapshot) error {
	return a.send(ctx, order, NotificationCancellation,
		fmt.Sprintf("Your order #%d has been cancelled.", order.ID))
}

// SendPaymentConfirmation 发送支付成功确认。
func (a *NotificationKafkaAdapter) SendPaymentConfirmation(ctx context.Context, order domain.OrderSnapshot) error {
	return a.send(ctx, order, NotificationPaymentConfirmation,
		fmt.Sprintf("Payment for order #%d has been received.", order.ID))
}

// SendPaymentFailureNotice 发送支付失败通知。
func (a *NotificationKafkaAdapter) SendPaymentFailureNotice(ctx context.Context, order domain.OrderSnapshot) error {
	return a.send(ctx, order, NotificationPaymentFailure,
		fmt.Sprintf("Payment for order #%d failed. The order has been cancelled.", order.ID))
}

func (a *NotificationKafkaAdapter) send(ctx context.Context, order domain.OrderSnapshot, kind, message string) error {
	event := NotificationEvent{
		EventID: uuid.NewString(),
		UserID:  order.UserID,
		OrderID: order.ID,
		Kind:    kind,
		Message: message,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(order.UserID), value)
}

// Close 关闭底层的 Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
