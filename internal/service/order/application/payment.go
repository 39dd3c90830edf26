// internal/service/order/application/payment.go
package application

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/metrics"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"
)

// PaymentOrchestrator 把订单生命周期和支付网关调用桥接起来，
// 并把支付结果以 payment.processed 事件回流给订单侧。
// 网关失败原样上抛（GatewayError），从不直接改动订单状态。
type PaymentOrchestrator struct {
	gateway port.PaymentGateway
	repo    domain.OrderRepository
	orders  *OrderService
	events  port.EventPublisher
	tracer  trace.Tracer
}

// NewPaymentOrchestrator 创建支付编排实例。
func NewPaymentOrchestrator(gateway port.PaymentGateway, repo domain.OrderRepository, orders *OrderService, events port.EventPublisher, tracer trace.Tracer) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		gateway: gateway,
		repo:    repo,
		orders:  orders,
		events:  events,
		tracer:  tracer,
	}
}

// InitiatePayment 为订单在网关侧创建一个支付意图，金额按最小货币单位
// 传输，订单 id 作为关联元数据。意图 id 会写到传入的聚合上，
// 但持久化由调用方负责；这里不改订单状态。
func (p *PaymentOrchestrator) InitiatePayment(ctx context.Context, order *domain.Order) (*port.PaymentIntent, error) {
	ctx, span := p.tracer.Start(ctx, "payment.InitiatePayment")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))

	intent, err := p.gateway.Create(ctx, order.AmountMinorUnits(), order.Currency, map[string]string{
		"order_id": strconv.FormatUint(order.ID, 10),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment intent creation failed")
		return nil, err
	}

	order.AttachPaymentIntent(intent.ID)
	logger.Ctx(ctx).Info().
		Uint64("orderId", order.ID).
		Str("paymentIntentId", intent.ID).
		Msg("payment intent created")
	return intent, nil
}

// ConfirmPayment 确认支付意图，并把网关上报的状态连同归属订单一起
// 发布为 payment.processed 事件。找不到归属订单时不做任何猜测，
// 记录后直接返回。
func (p *PaymentOrchestrator) ConfirmPayment(ctx context.Context, intentID, paymentMethodID string) (*port.PaymentIntent, error) {
	ctx, span := p.tracer.Start(ctx, "payment.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.intent_id", intentID))

	intent, err := p.gateway.Confirm(ctx, intentID, paymentMethodID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment confirmation failed")
		return nil, err
	}

	order, err := p.repo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Ctx(ctx).Warn().
				Str("paymentIntentId", intentID).
				Msg("no order linked to confirmed payment intent")
			return intent, nil
		}
		span.RecordError(err)
		return intent, err
	}

	event := domain.PaymentProcessedEvent{
		Order:         domain.Snapshot(order),
		PaymentStatus: intent.Status,
	}
	key := strconv.FormatUint(order.ID, 10)
	if err := p.events.Publish(ctx, domain.TopicPaymentProcessed, key, event); err != nil {
		metrics.PublishFailures.WithLabelValues(domain.TopicPaymentProcessed).Inc()
		logger.Ctx(ctx).Error().Err(err).
			Uint64("orderId", order.ID).
			Msg("failed to publish payment processed event")
		return intent, nil
	}
	metrics.EventsPublished.WithLabelValues(domain.TopicPaymentProcessed).Inc()

	logger.Ctx(ctx).Info().
		Uint64("orderId", order.ID).
		Str("paymentStatus", intent.Status).
		Msg("payment processed event published")
	return intent, nil
}

// RetrievePayment 查询支付意图的当前状态，纯透传。
func (p *PaymentOrchestrator) RetrievePayment(ctx context.Context, intentID string) (*port.PaymentIntent, error) {
	return p.gateway.Retrieve(ctx, intentID)
}

// CancelPayment 取消支付意图。如果能找到归属订单，则走统一的
// CancelOrder 路径取消它——取消必须连带归还库存，单独覆盖状态会把
// 已预占的库存漏掉。
func (p *PaymentOrchestrator) CancelPayment(ctx context.Context, intentID string) (*port.PaymentIntent, error) {
	ctx, span := p.tracer.Start(ctx, "payment.CancelPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.intent_id", intentID))

	intent, err := p.gateway.Cancel(ctx, intentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment cancellation failed")
		return nil, err
	}

	order, err := p.repo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Ctx(ctx).Warn().
				Str("paymentIntentId", intentID).
				Msg("no order linked to cancelled payment intent")
			return intent, nil
		}
		span.RecordError(err)
		return intent, err
	}

	cancelled, err := p.orders.CancelOrder(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		return intent, err
	}
	if !cancelled {
		logger.Ctx(ctx).Warn().
			Uint64("orderId", order.ID).
			Str("status", string(order.Status)).
			Msg("order not cancellable after payment intent cancellation")
	}
	return intent, nil
}
