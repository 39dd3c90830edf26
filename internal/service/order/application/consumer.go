// internal/service/order/application/consumer.go
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"
)

// HandlerFunc 是一条入站消息的处理函数。
// 返回的 error 由订阅侧记录并打点，消息不会重投——当前的投递语义
// 是尽力而为，处理失败的消息在记录后被丢弃。
type HandlerFunc func(ctx context.Context, value []byte) error

// OrderEventConsumer 订阅订单生命周期事件并驱动副作用流程
// （通知、发货准备、退款/回补）。它只对已发布的事件做出反应，
// 从不充当订单状态的事实来源。
type OrderEventConsumer struct {
	orders   *OrderService
	notifier port.Notifier
	tracer   trace.Tracer
}

// NewOrderEventConsumer 创建事件消费者。
func NewOrderEventConsumer(orders *OrderService, notifier port.Notifier, tracer trace.Tracer) *OrderEventConsumer {
	return &OrderEventConsumer{
		orders:   orders,
		notifier: notifier,
		tracer:   tracer,
	}
}

// Routes 返回显式的 topic -> handler 订阅表，在启动时装配一次。
func (c *OrderEventConsumer) Routes() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		domain.TopicOrderCreated:       c.HandleOrderCreated,
		domain.TopicOrderStatusUpdated: c.HandleOrderStatusUpdated,
		domain.TopicOrderCancelled:     c.HandleOrderCancelled,
		domain.TopicPaymentProcessed:   c.HandlePaymentProcessed,
	}
}

// HandleOrderCreated 处理新订单：执行下单后的业务检查，发送下单确认，
// 然后把订单推进到 PROCESSING。
func (c *OrderEventConsumer) HandleOrderCreated(ctx context.Context, value []byte) error {
	ctx, span := c.tracer.Start(ctx, "consumer.HandleOrderCreated", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var snap domain.OrderSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		span.RecordError(err)
		return fmt.Errorf("unmarshal order.created: %w", err)
	}
	span.SetAttributes(attribute.Int64("order.id", int64(snap.ID)))
	logger.Ctx(ctx).Info().Uint64("orderId", snap.ID).Msg("processing order created")

	c.processNewOrder(ctx, snap)

	if err := c.notifier.SendOrderConfirmation(ctx, snap); err != nil {
		span.RecordError(err)
		return fmt.Errorf("order %d: send confirmation: %w", snap.ID, err)
	}

	if _, err := c.orders.UpdateOrderStatus(ctx, snap.ID, domain.StatusProcessing); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// 订单在消息在途期间被删除/丢失，属于缺失信号而非异常
			logger.Ctx(ctx).Warn().Uint64("orderId", snap.ID).Msg("order vanished before processing transition")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition to PROCESSING failed")
		return fmt.Errorf("order %d: transition to PROCESSING: %w", snap.ID, err)
	}
	return nil
}

// HandleOrderStatusUpdated 按消息携带的状态分派副作用。
// 未列出的状态不做处理。
func (c *OrderEventConsumer) HandleOrderStatusUpdated(ctx context.Context, value []byte) error {
	ctx, span := c.tracer.Start(ctx, "consumer.HandleOrderStatusUpdated", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var snap domain.OrderSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		span.RecordError(err)
		return fmt.Errorf("unmarshal order.status.updated: %w", err)
	}
	span.SetAttributes(
		attribute.Int64("order.id", int64(snap.ID)),
		attribute.String("order.status", string(snap.Status)),
	)
	logger.Ctx(ctx).Info().
		Uint64("orderId", snap.ID).
		Str("status", string(snap.Status)).
		Msg("processing order status update")

	switch snap.Status {
	case domain.StatusProcessing:
		c.prepareShipment(ctx, snap)
	case domain.StatusShipped:
		if err := c.notifier.SendShippingNotice(ctx, snap); err != nil {
			span.RecordError(err)
			return fmt.Errorf("order %d: send shipping notice: %w", snap.ID, err)
		}
	case domain.StatusDelivered:
		if err := c.notifier.SendDeliveryConfirmation(ctx, snap); err != nil {
			span.RecordError(err)
			return fmt.Errorf("order %d: send delivery confirmation: %w", snap.ID, err)
		}
	case domain.StatusCancelled:
		c.processCancellation(ctx, snap)
	default:
	}
	return nil
}

// HandleOrderCancelled 处理取消事件：执行取消侧的补偿并通知用户。
func (c *OrderEventConsumer) HandleOrderCancelled(ctx context.Context, value []byte) error {
	ctx, span := c.tracer.Start(ctx, "consumer.HandleOrderCancelled", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var snap domain.OrderSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		span.RecordError(err)
		return fmt.Errorf("unmarshal order.cancelled: %w", err)
	}
	span.SetAttributes(attribute.Int64("order.id", int64(snap.ID)))
	logger.Ctx(ctx).Info().Uint64("orderId", snap.ID).Msg("processing order cancellation")

	c.processCancellation(ctx, snap)

	if err := c.notifier.SendCancellationNotice(ctx, snap); err != nil {
		span.RecordError(err)
		return fmt.Errorf("order %d: send cancellation notice: %w", snap.ID, err)
	}
	return nil
}

// HandlePaymentProcessed 处理支付结果：成功则把订单推进到 PROCESSING
// 并发送支付确认；其余一律按失败处理——取消订单（连带回补库存）
// 并发送支付失败通知。
func (c *OrderEventConsumer) HandlePaymentProcessed(ctx context.Context, value []byte) error {
	ctx, span := c.tracer.Start(ctx, "consumer.HandlePaymentProcessed", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event domain.PaymentProcessedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("unmarshal payment.processed: %w", err)
	}
	snap := event.Order
	span.SetAttributes(
		attribute.Int64("order.id", int64(snap.ID)),
		attribute.String("payment.status", event.PaymentStatus),
	)
	logger.Ctx(ctx).Info().
		Uint64("orderId", snap.ID).
		Str("paymentStatus", event.PaymentStatus).
		Msg("processing payment result")

	if event.PaymentStatus == port.PaymentStatusSucceeded {
		if _, err := c.orders.UpdateOrderStatus(ctx, snap.ID, domain.StatusProcessing); err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				logger.Ctx(ctx).Warn().Uint64("orderId", snap.ID).Msg("order vanished before payment transition")
				return nil
			}
			span.RecordError(err)
			return fmt.Errorf("order %d: transition after payment: %w", snap.ID, err)
		}
		if err := c.notifier.SendPaymentConfirmation(ctx, snap); err != nil {
			span.RecordError(err)
			return fmt.Errorf("order %d: send payment confirmation: %w", snap.ID, err)
		}
		return nil
	}

	if _, err := c.orders.CancelOrder(ctx, snap.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("order %d: cancel after failed payment: %w", snap.ID, err)
	}
	if err := c.notifier.SendPaymentFailureNotice(ctx, snap); err != nil {
		span.RecordError(err)
		return fmt.Errorf("order %d: send payment failure notice: %w", snap.ID, err)
	}
	return nil
}

// processNewOrder 执行新订单的业务检查：校验条目、初始化履约跟踪。
// 目前只有日志占位，真正的履约系统在下游。
func (c *OrderEventConsumer) processNewOrder(ctx context.Context, snap domain.OrderSnapshot) {
	logger.Ctx(ctx).Info().
		Uint64("orderId", snap.ID).
		Int("items", len(snap.Items)).
		Msg("running new order business checks")
}

// prepareShipment 为进入 PROCESSING 的订单做发货准备。
func (c *OrderEventConsumer) prepareShipment(ctx context.Context, snap domain.OrderSnapshot) {
	logger.Ctx(ctx).Info().Uint64("orderId", snap.ID).Msg("preparing order for shipping")
}

// processCancellation 执行取消侧的补偿流程。
// 库存回补由 CancelOrder 在发布事件之前完成，这里处理的是
// 退款与数据修正这类下游补偿。
func (c *OrderEventConsumer) processCancellation(ctx context.Context, snap domain.OrderSnapshot) {
	logger.Ctx(ctx).Info().Uint64("orderId", snap.ID).Msg("running cancellation compensations")
}
