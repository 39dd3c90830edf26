package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"
)

type consumerFixture struct {
	repo     *fakeOrderRepo
	stock    *fakeStockStore
	events   *fakePublisher
	notifier *fakeNotifier
	orders   *OrderService
	consumer *OrderEventConsumer
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	repo := newFakeOrderRepo()
	stock := keyboardAndMouse()
	events := &fakePublisher{}
	notifier := newFakeNotifier()
	orders := newTestService(repo, stock, events)
	return &consumerFixture{
		repo:     repo,
		stock:    stock,
		events:   events,
		notifier: notifier,
		orders:   orders,
		consumer: NewOrderEventConsumer(orders, notifier, testTracer),
	}
}

func (f *consumerFixture) snapshotJSON(t *testing.T, order *domain.Order) []byte {
	t.Helper()
	value, err := json.Marshal(domain.Snapshot(order))
	require.NoError(t, err)
	return value
}

func TestRoutes_CoverAllLifecycleTopics(t *testing.T) {
	f := newConsumerFixture(t)
	routes := f.consumer.Routes()

	for _, topic := range []string{
		domain.TopicOrderCreated,
		domain.TopicOrderStatusUpdated,
		domain.TopicOrderCancelled,
		domain.TopicPaymentProcessed,
	} {
		assert.Contains(t, routes, topic)
	}
	assert.Len(t, routes, 4)
}

func TestHandleOrderCreated(t *testing.T) {
	f := newConsumerFixture(t)
	order := mustCreateOrder(t, f.orders)

	err := f.consumer.HandleOrderCreated(context.Background(), f.snapshotJSON(t, order))
	require.NoError(t, err)

	assert.Equal(t, 1, f.notifier.count("confirmation"))

	saved, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, saved.Status)
}

func TestHandleOrderCreated_OrderVanished(t *testing.T) {
	// 订单在消息在途期间消失：发确认、吞掉缺失信号
	f := newConsumerFixture(t)
	snap := domain.OrderSnapshot{ID: 999, UserID: "user-1", Status: domain.StatusPending}
	value, err := json.Marshal(snap)
	require.NoError(t, err)

	err = f.consumer.HandleOrderCreated(context.Background(), value)
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count("confirmation"))
}

func TestHandleOrderCreated_BadPayload(t *testing.T) {
	f := newConsumerFixture(t)
	err := f.consumer.HandleOrderCreated(context.Background(), []byte("{not json"))
	assert.Error(t, err)
}

func TestHandleOrderStatusUpdated_Shipped(t *testing.T) {
	f := newConsumerFixture(t)
	order := mustCreateOrder(t, f.orders)
	order.SetStatus(domain.StatusShipped)

	err := f.consumer.HandleOrderStatusUpdated(context.Background(), f.snapshotJSON(t, order))
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count("shipping"))
}

func TestHandleOrderStatusUpdated_Delivered(t *testing.T) {
	f := newConsumerFixture(t)
	order := mustCreateOrder(t, f.orders)
	order.SetStatus(domain.StatusDelivered)

	err := f.consumer.HandleOrderStatusUpdated(context.Background(), f.snapshotJSON(t, order))
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count("delivery"))
}

func TestHandleOrderStatusUpdated_PendingIsNoop(t *testing.T) {
	f := newConsumerFixture(t)
	order := mustCreateOrder(t, f.orders)

	err := f.consumer.HandleOrderStatusUpdated(context.Background(), f.snapshotJSON(t, order))
	require.NoError(t, err)
	assert.Equal(t, 0, f.notifier.count("shipping"))
	assert.Equal(t, 0, f.notifier.count("delivery"))
}

func TestHandleOrderStatusUpdated_NotifierFailure(t *testing.T) {
	f := newConsumerFixture(t)
	f.notifier.err = errors.New("smtp down")
	order := mustCreateOrder(t, f.orders)
	order.SetStatus(domain.StatusShipped)

	err := f.consumer.HandleOrderStatusUpdated(context.Background(), f.snapshotJSON(t, order))
	assert.Error(t, err)
}

func TestHandleOrderCancelled(t *testing.T) {
	f := newConsumerFixture(t)
	order := mustCreateOrder(t, f.orders)
	order.SetStatus(domain.StatusCancelled)

	err := f.consumer.HandleOrderCancelled(context.Background(), f.snapshotJSON(t, order))
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count("cancellation"))
}

func TestHandlePaymentProcessed_Succeeded(t *testing.T) {
	f := newConsumerFixture(t)
	order := mustCreateOrder(t, f.orders)

	value, err := json.Marshal(domain.PaymentProcessedEvent{
		Order:         domain.Snapshot(order),
		PaymentStatus: port.PaymentStatusSucceeded,
	})
	require.NoError(t, err)

	err = f.consumer.HandlePaymentProcessed(context.Background(), value)
	require.NoError(t, err)

	saved, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, saved.Status)
	assert.Equal(t, 1, f.notifier.count("payment-confirmation"))
}

func TestHandlePaymentProcessed_Failed(t *testing.T) {
	f := newConsumerFixture(t)
	order := mustCreateOrder(t, f.orders)
	require.Equal(t, 9, f.stock.stockOf("p-1"))

	value, err := json.Marshal(domain.PaymentProcessedEvent{
		Order:         domain.Snapshot(order),
		PaymentStatus: "failed",
	})
	require.NoError(t, err)

	err = f.consumer.HandlePaymentProcessed(context.Background(), value)
	require.NoError(t, err)

	// 订单取消、库存归还、发送失败通知
	saved, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, saved.Status)
	assert.Equal(t, 10, f.stock.stockOf("p-1"))
	assert.Equal(t, 1, f.notifier.count("payment-failure"))
}
