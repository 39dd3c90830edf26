// internal/pkg/httpclient/client.go

package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client 是一个可追踪的、可注入的 HTTP 客户端。
// 不设置全局 Timeout，完全受控于每次请求传入的 context。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
}

// NewClient 创建一个新的客户端实例。
func NewClient(tracer trace.Tracer) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
	}
}

// PostForm 向远端发送一个 form 编码的 POST 请求，返回响应体。
// 非 2xx 状态码不视为 error，由调用方根据 status 解析远端返回的错误结构。
func (c *Client) PostForm(ctx context.Context, rawURL string, header http.Header, form url.Values) ([]byte, int, error) {
	return c.do(ctx, http.MethodPost, rawURL, header, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// Get 发送一个 GET 请求，返回响应体。
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, int, error) {
	return c.do(ctx, http.MethodGet, rawURL, header, nil, "")
}

func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, body io.Reader, contentType string) ([]byte, int, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, err
	}
	spanName := fmt.Sprintf("call-%s", strings.Split(parsedURL.Host, ":")[0])

	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	span.SetAttributes(
		attribute.String("http.url", parsedURL.Scheme+"://"+parsedURL.Host+parsedURL.Path),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, resp.StatusCode, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}
	return respBody, resp.StatusCode, nil
}
