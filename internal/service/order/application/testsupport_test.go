package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace/noop"

	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

// fakeOrderRepo 是内存版的订单仓储，按 ID 索引，Save 回填自增 ID。
type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint64
	orders map[uint64]*domain.Order

	saveErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uint64]*domain.Order{}}
}

func (r *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if order.ID == 0 {
		r.nextID++
		order.ID = r.nextID
		order.Version = 1
	} else {
		order.Version++
	}
	clone := *order
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	clone.Items = items
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uint64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *fakeOrderRepo) FindByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindAll(_ context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		clone := *o
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeOrderRepo) FindByStatus(_ context.Context, status domain.Status) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.Status == status {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindByPaymentIntentID(_ context.Context, intentID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentIntentID == intentID {
			clone := *o
			return &clone, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *fakeOrderRepo) FindBetween(_ context.Context, start, end time.Time) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if !o.CreatedAt.Before(start) && !o.CreatedAt.After(end) {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) CountByStatus(_ context.Context, status domain.Status) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

// fakeStockStore 是内存版的商品库存。
type fakeStockStore struct {
	mu       sync.Mutex
	products map[string]*port.Product

	decreaseErr map[string]error // 按商品覆盖 Decrease 的结果
	increaseErr error
}

func newFakeStockStore(products ...*port.Product) *fakeStockStore {
	s := &fakeStockStore{products: map[string]*port.Product{}, decreaseErr: map[string]error{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStockStore) GetProduct(_ context.Context, productID string) (*port.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *fakeStockStore) Decrease(_ context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.decreaseErr[productID]; ok {
		return err
	}
	p, ok := s.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock < quantity {
		return domain.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (s *fakeStockStore) Increase(_ context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.increaseErr != nil {
		return s.increaseErr
	}
	if p, ok := s.products[productID]; ok {
		p.Stock += quantity
	}
	return nil
}

func (s *fakeStockStore) stockOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

// publishedEvent 记录一次发布调用。
type publishedEvent struct {
	Topic   string
	Key     string
	Payload any
}

// fakePublisher 记录所有发布的事件。
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *fakePublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// fakeNotifier 记录每类通知的调用次数。
type fakeNotifier struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: map[string]int{}}
}

func (n *fakeNotifier) record(kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.calls[kind]++
	return nil
}

func (n *fakeNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[kind]
}

func (n *fakeNotifier) SendOrderConfirmation(_ context.Context, _ domain.OrderSnapshot) error {
	return n.record("confirmation")
}

func (n *fakeNotifier) SendShippingNotice(_ context.Context, _ domain.OrderSnapshot) error {
	return n.record("shipping")
}

func (n *fakeNotifier) SendDeliveryConfirmation(_ context.Context, _ domain.OrderSnapshot) error {
	return n.record("delivery")
}

func (n *fakeNotifier) SendCancellationNotice(_ context.Context, _ domain.OrderSnapshot) error {
	return n.record("cancellation")
}

func (n *fakeNotifier) SendPaymentConfirmation(_ context.Context, _ domain.OrderSnapshot) error {
	return n.record("payment-confirmation")
}

func (n *fakeNotifier) SendPaymentFailureNotice(_ context.Context, _ domain.OrderSnapshot) error {
	return n.record("payment-failure")
}

// fakeGateway 是可脚本化的支付网关。
type fakeGateway struct {
	mu      sync.Mutex
	intents map[string]*port.PaymentIntent
	nextID  int

	createErr  error
	confirmErr error
	cancelErr  error

	// confirmStatus 覆盖 Confirm 之后的状态，默认 succeeded
	confirmStatus string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*port.PaymentIntent{}, confirmStatus: port.PaymentStatusSucceeded}
}

func (g *fakeGateway) Create(_ context.Context, amount int64, currency string, _ map[string]string) (*port.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	intent := &port.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", g.nextID),
		ClientSecret: "secret",
		Status:       "requires_confirmation",
		Amount:       amount,
		Currency:     currency,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *fakeGateway) Confirm(_ context.Context, intentID, _ string) (*port.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.confirmErr != nil {
		return nil, g.confirmErr
	}
	intent, ok := g.intents[intentID]
	if !ok {
		intent = &port.PaymentIntent{ID: intentID}
		g.intents[intentID] = intent
	}
	intent.Status = g.confirmStatus
	clone := *intent
	return &clone, nil
}

func (g *fakeGateway) Retrieve(_ context.Context, intentID string) (*port.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, &domain.GatewayError{Op: "retrieve", Err: domain.ErrOrderNotFound}
	}
	clone := *intent
	return &clone, nil
}

func (g *fakeGateway) Cancel(_ context.Context, intentID string) (*port.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	intent, ok := g.intents[intentID]
	if !ok {
		intent = &port.PaymentIntent{ID: intentID}
		g.intents[intentID] = intent
	}
	intent.Status = "canceled"
	clone := *intent
	return &clone, nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
