package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/service/order/application"
	"orderhub/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	orders   *application.OrderService
	payments *application.PaymentOrchestrator
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(orders *application.OrderService, payments *application.PaymentOrchestrator) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/orders", h.ordersHandler)
	mux.HandleFunc("/api/orders/", h.orderByIDHandler)
	mux.HandleFunc("/api/orders/user/", h.ordersByUserHandler)
	mux.HandleFunc("/api/orders/payment-intent/", h.orderByPaymentIntentHandler)
	mux.HandleFunc("/api/orders/status/", h.ordersByStatusHandler)
	mux.HandleFunc("/api/orders/count/status/", h.countByStatusHandler)
	mux.HandleFunc("/api/orders/date-range", h.ordersByDateRangeHandler)

	mux.HandleFunc("/api/payments/create-payment-intent", h.createPaymentIntentHandler)
	mux.HandleFunc("/api/payments/confirm-payment", h.confirmPaymentHandler)
	mux.HandleFunc("/api/payments/cancel-payment-intent", h.cancelPaymentIntentHandler)
	mux.HandleFunc("/api/payments/payment-intent/", h.retrievePaymentIntentHandler)
	mux.HandleFunc("/api/payments/webhook", h.webhookHandler)
}

// ---- 订单接口 ----

// ordersHandler 处理 POST /api/orders（下单）和 GET /api/orders（全量查询）。
func (h *OrderHandler) ordersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	switch r.Method {
	case http.MethodPost:
		var req application.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tracer := otel.Tracer(serviceName)
		ctx, span := tracer.Start(ctx, "api.CreateOrder")
		defer span.End()
		span.SetAttributes(attribute.String("order.user_id", req.UserID))

		order, err := h.orders.CreateOrder(ctx, &req)
		if err != nil {
			h.writeDomainError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusCreated, domain.Snapshot(order))

	case http.MethodGet:
		orders, err := h.orders.GetAllOrders(ctx)
		if err != nil {
			h.writeDomainError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshots(orders))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// orderByIDHandler 处理 GET /api/orders/{id}、PUT /api/orders/{id}/status
// 和 DELETE /api/orders/{id}[/cancel]。
func (h *OrderHandler) orderByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	rest := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	idPart, tail, _ := strings.Cut(rest, "/")
	orderID, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	switch {
	case tail == "" && r.Method == http.MethodGet:
		order, err := h.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			h.writeDomainError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.Snapshot(order))

	case tail == "status" && r.Method == http.MethodPut:
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := h.orders.UpdateOrderStatus(ctx, orderID, status)
		if err != nil {
			h.writeDomainError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.Snapshot(order))

	case (tail == "" || tail == "cancel") && r.Method == http.MethodDelete:
		cancelled, err := h.orders.CancelOrder(ctx, orderID)
		if err != nil {
			h.writeDomainError(ctx, w, err)
			return
		}
		if !cancelled {
			writeError(w, http.StatusConflict, "order cannot be cancelled")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ordersByUserHandler 处理 GET /api/orders/user/{userId}。
func (h *OrderHandler) ordersByUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	userID := strings.TrimPrefix(r.URL.Path, "/api/orders/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}
	orders, err := h.orders.GetOrdersByUserID(ctx, userID)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots(orders))
}

// orderByPaymentIntentHandler 处理 GET /api/orders/payment-intent/{ref}。
func (h *OrderHandler) orderByPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	intentID := strings.TrimPrefix(r.URL.Path, "/api/orders/payment-intent/")
	if intentID == "" {
		writeError(w, http.StatusBadRequest, "missing payment intent id")
		return
	}
	order, err := h.orders.GetOrderByPaymentIntentID(ctx, intentID)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Snapshot(order))
}

// ordersByStatusHandler 处理 GET /api/orders/status/{status}。
func (h *OrderHandler) ordersByStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	status, err := domain.ParseStatus(strings.TrimPrefix(r.URL.Path, "/api/orders/status/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	orders, err := h.orders.GetOrdersByStatus(ctx, status)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots(orders))
}

// countByStatusHandler 处理 GET /api/orders/count/status/{status}。
func (h *OrderHandler) countByStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	status, err := domain.ParseStatus(strings.TrimPrefix(r.URL.Path, "/api/orders/count/status/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	count, err := h.orders.CountOrdersByStatus(ctx, status)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// ordersByDateRangeHandler 处理 GET /api/orders/date-range?start=...&end=...（RFC3339，含边界）。
func (h *OrderHandler) ordersByDateRangeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start time, want RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end time, want RFC3339")
		return
	}
	orders, err := h.orders.GetOrdersBetweenDates(ctx, start, end)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots(orders))
}

// ---- 支付接口 ----

// createPaymentIntentHandler 处理 POST /api/payments/create-payment-intent。
// 编排器创建支付意向后，由本层负责把 paymentIntentId 落回订单。
func (h *OrderHandler) createPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	var req struct {
		OrderID uint64 `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.CreatePaymentIntent")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", int64(req.OrderID)))

	order, err := h.orders.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	intent, err := h.payments.InitiatePayment(ctx, order)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	if _, err := h.orders.AttachPaymentIntent(ctx, req.OrderID, intent.ID); err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// confirmPaymentHandler 处理 POST /api/payments/confirm-payment。
func (h *OrderHandler) confirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	var req struct {
		PaymentIntentID string `json:"paymentIntentId"`
		PaymentMethodID string `json:"paymentMethodId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "missing paymentIntentId")
		return
	}
	intent, err := h.payments.ConfirmPayment(ctx, req.PaymentIntentID, req.PaymentMethodID)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// cancelPaymentIntentHandler 处理 POST /api/payments/cancel-payment-intent。
func (h *OrderHandler) cancelPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	var req struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "missing paymentIntentId")
		return
	}
	intent, err := h.payments.CancelPayment(ctx, req.PaymentIntentID)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// retrievePaymentIntentHandler 处理 GET /api/payments/payment-intent/{id}。
func (h *OrderHandler) retrievePaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := extractContext(r)

	intentID := strings.TrimPrefix(r.URL.Path, "/api/payments/payment-intent/")
	if intentID == "" {
		writeError(w, http.StatusBadRequest, "missing payment intent id")
		return
	}
	intent, err := h.payments.RetrievePayment(ctx, intentID)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// webhookHandler 占位：签名校验的网关回调尚未接入。
func (h *OrderHandler) webhookHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "webhook endpoint not implemented")
}

// ---- 辅助函数 ----

func extractContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func (h *OrderHandler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var gerr *domain.GatewayError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &gerr):
		writeError(w, http.StatusBadGateway, gerr.Error())
	default:
		logger.Ctx(ctx).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func snapshots(orders []*domain.Order) []domain.OrderSnapshot {
	out := make([]domain.OrderSnapshot, 0, len(orders))
	for _, o := range orders {
		out = append(out, domain.Snapshot(o))
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
