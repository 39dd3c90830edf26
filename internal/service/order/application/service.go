// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/metrics"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"
)

// OrderService 负责订单生命周期的业务编排：创建校验、状态流转、
// 库存预占/补偿，以及生命周期事件的发布。
// 所有依赖通过构造函数显式注入，进程启动时创建一次。
type OrderService struct {
	repo     domain.OrderRepository
	stock    port.StockStore
	events   port.EventPublisher
	tracer   trace.Tracer
	currency string
}

// NewOrderService 创建订单服务实例。
func NewOrderService(repo domain.OrderRepository, stock port.StockStore, events port.EventPublisher, tracer trace.Tracer, currency string) *OrderService {
	return &OrderService{
		repo:     repo,
		stock:    stock,
		events:   events,
		tracer:   tracer,
		currency: currency,
	}
}

// CreateOrder 校验并创建订单：逐条解析商品快照、原子扣减库存、
// 计算总额、以 PENDING 状态持久化，最后发布 order.created 事件。
//
// 扣库存按条目顺序逐个执行。中途失败时创建中止，已扣减的条目
// 不会自动回滚——这是当前设计已知的弱点，靠后续取消路径补偿。
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("Order must contain at least one item")
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, domain.NewValidationError("Item quantity must be greater than 0")
		}

		product, err := s.stock.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, domain.NewValidationError("Product not found for item: %s", line.ProductID)
			}
			span.RecordError(err)
			return nil, err
		}
		if product.Stock < line.Quantity {
			return nil, domain.NewValidationError("Insufficient stock for product: %s", product.Name)
		}

		// 原子扣减。并发下 GetProduct 的读数可能已过期，
		// 真正的护栏是存储侧的条件扣减。
		if err := s.stock.Decrease(ctx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil, domain.NewValidationError("Insufficient stock for product: %s", product.Name)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "stock decrease failed")
			return nil, err
		}

		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
		})
	}

	order, err := domain.NewOrder(req.UserID, s.currency, items)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist order")
		return nil, err
	}
	metrics.OrdersCreated.Inc()
	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))

	// 发布失败只记录，不回滚已持久化的订单
	s.publish(ctx, domain.TopicOrderCreated, order)

	logger.Ctx(ctx).Info().
		Uint64("orderId", order.ID).
		Str("userId", order.UserID).
		Str("totalAmount", order.TotalAmount.String()).
		Msg("order created")
	return order, nil
}

// UpdateOrderStatus 无条件把订单状态覆盖为 status 并发布 order.status.updated。
// 订单不存在时返回 domain.ErrOrderNotFound，调用方按缺失信号处理。
//
// 沿用原有的宽容语义：不拦截迁移表之外的状态变更，只记一条告警，
// 是否收紧留待产品决策。
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.Status) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", int64(orderID)),
		attribute.String("order.status", string(status)),
	)

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != status && !order.Status.CanTransitionTo(status) {
		logger.Ctx(ctx).Warn().
			Uint64("orderId", orderID).
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("applying status change outside the transition table")
	}

	order.SetStatus(status)
	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.publish(ctx, domain.TopicOrderStatusUpdated, order)
	return order, nil
}

// CancelOrder 取消订单并归还库存。
// 只有 PENDING/PROCESSING 的订单可以取消；订单不存在或状态不允许时
// 返回 false 且没有任何副作用。
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "order.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", int64(orderID)))

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return false, nil
		}
		return false, err
	}
	if !order.Status.Cancellable() {
		return false, nil
	}

	// 逐条归还库存。单条补偿失败记录后继续，不中断其余条目
	for _, item := range order.Items {
		if err := s.stock.Increase(ctx, item.ProductID, item.Quantity); err != nil {
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).
				Uint64("orderId", orderID).
				Str("productId", item.ProductID).
				Msg("failed to restore stock during cancellation")
		}
	}

	order.SetStatus(domain.StatusCancelled)
	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		return false, err
	}

	s.publish(ctx, domain.TopicOrderStatusUpdated, order)
	logger.Ctx(ctx).Info().Uint64("orderId", orderID).Msg("order cancelled")
	return true, nil
}

// AttachPaymentIntent 把支付意图引用落到订单上。
// 支付编排只负责创建意图，引用的持久化由这里完成。
func (s *OrderService) AttachPaymentIntent(ctx context.Context, orderID uint64, intentID string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.AttachPaymentIntent(intentID)
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// 查询操作都是纯读：无副作用，无匹配时返回空结果而不是错误。

func (s *OrderService) GetOrderByID(ctx context.Context, orderID uint64) (*domain.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

func (s *OrderService) GetOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.FindByUserID(ctx, userID)
}

func (s *OrderService) GetAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.FindAll(ctx)
}

func (s *OrderService) GetOrdersByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	return s.repo.FindByStatus(ctx, status)
}

func (s *OrderService) GetOrderByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	return s.repo.FindByPaymentIntentID(ctx, intentID)
}

func (s *OrderService) GetOrdersBetweenDates(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	return s.repo.FindBetween(ctx, start, end)
}

func (s *OrderService) CountOrdersByStatus(ctx context.Context, status domain.Status) (int64, error) {
	return s.repo.CountByStatus(ctx, status)
}

// publish 尽力而为地发布一条订单快照事件。
// 发布失败只打点和记日志，业务操作的成功与否不依赖消息发出。
func (s *OrderService) publish(ctx context.Context, topic string, order *domain.Order) {
	key := strconv.FormatUint(order.ID, 10)
	if err := s.events.Publish(ctx, topic, key, domain.Snapshot(order)); err != nil {
		metrics.PublishFailures.WithLabelValues(topic).Inc()
		logger.Ctx(ctx).Error().Err(err).
			Uint64("orderId", order.ID).
			Str("topic", topic).
			Msg("failed to publish lifecycle event")
		return
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
}
