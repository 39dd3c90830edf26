// internal/service/order/infrastructure/adapter/stripe_http_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"
)

// StripeHTTPAdapter 是 port.PaymentGateway 的 Stripe 实现，
// 直接调用 Stripe 的 REST API（form 编码请求 + JSON 响应）。
// 所有失败都包成 domain.GatewayError 上抛，不在这里重试。
type StripeHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

// NewStripeHTTPAdapter 创建支付网关适配器。
func NewStripeHTTPAdapter(client *httpclient.Client, baseURL, apiKey string) *StripeHTTPAdapter {
	return &StripeHTTPAdapter{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// stripeIntent 是 Stripe 返回的 PaymentIntent 中核心关心的字段。
type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Create 创建一个支付意图。金额是最小货币单位，订单 id 放在 metadata
// 里作为关联/幂等信息。
func (a *StripeHTTPAdapter) Create(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*port.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", amountMinorUnits))
	form.Set("currency", currency)
	form.Add("payment_method_types[]", "card")
	for key, value := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}
	if orderID, ok := metadata["order_id"]; ok {
		form.Set("description", "Order #"+orderID)
	}

	return a.post(ctx, "create", "/payment_intents", form)
}

// Confirm 确认支付意图。paymentMethodID 为空时使用意图上已有的支付方式。
func (a *StripeHTTPAdapter) Confirm(ctx context.Context, intentID, paymentMethodID string) (*port.PaymentIntent, error) {
	form := url.Values{}
	if paymentMethodID != "" {
		form.Set("payment_method", paymentMethodID)
	}
	return a.post(ctx, "confirm", "/payment_intents/"+intentID+"/confirm", form)
}

// Retrieve 查询支付意图。
func (a *StripeHTTPAdapter) Retrieve(ctx context.Context, intentID string) (*port.PaymentIntent, error) {
	body, status, err := a.client.Get(ctx, a.baseURL+"/payment_intents/"+intentID, a.authHeader())
	if err != nil {
		return nil, &domain.GatewayError{Op: "retrieve", Err: err}
	}
	return a.decode("retrieve", body, status)
}

// Cancel 取消支付意图。
func (a *StripeHTTPAdapter) Cancel(ctx context.Context, intentID string) (*port.PaymentIntent, error) {
	return a.post(ctx, "cancel", "/payment_intents/"+intentID+"/cancel", url.Values{})
}

func (a *StripeHTTPAdapter) post(ctx context.Context, op, path string, form url.Values) (*port.PaymentIntent, error) {
	body, status, err := a.client.PostForm(ctx, a.baseURL+path, a.authHeader(), form)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}
	return a.decode(op, body, status)
}

func (a *StripeHTTPAdapter) decode(op string, body []byte, status int) (*port.PaymentIntent, error) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		var apiErr stripeError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, &domain.GatewayError{Op: op, Err: fmt.Errorf("%s: %s", apiErr.Error.Type, apiErr.Error.Message)}
		}
		return nil, &domain.GatewayError{Op: op, Err: fmt.Errorf("unexpected status %d", status)}
	}

	var intent stripeIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, &domain.GatewayError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &port.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

func (a *StripeHTTPAdapter) authHeader() http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.apiKey)
	return header
}
