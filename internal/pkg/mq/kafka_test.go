package mq

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
)

func TestKafkaHeaderCarrier(t *testing.T) {
	carrier := KafkaHeaderCarrier{}

	carrier.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))

	// 重复 Set 覆盖而不是追加
	carrier.Set("traceparent", "00-abc-def-02")
	assert.Equal(t, "00-abc-def-02", carrier.Get("traceparent"))
	assert.Len(t, carrier, 1)

	carrier.Set("baggage", "k=v")
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, carrier.Keys())

	assert.Empty(t, carrier.Get("missing"))
}

func TestKafkaHeaderCarrier_FromMessageHeaders(t *testing.T) {
	headers := []kafka.Header{
		{Key: "traceparent", Value: []byte("00-abc-def-01")},
	}
	carrier := KafkaHeaderCarrier(headers)
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
}

func TestTraceContextRoundTrip(t *testing.T) {
	propagator := propagation.TraceContext{}

	// 通过 W3C 头模拟一个上游 span 上下文
	upstream := propagation.MapCarrier{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	ctx := propagator.Extract(context.Background(), upstream)

	carrier := KafkaHeaderCarrier{}
	propagator.Inject(ctx, &carrier)
	require.NotEmpty(t, carrier.Get("traceparent"))

	restored := propagation.MapCarrier{}
	propagator.Inject(propagator.Extract(context.Background(), &carrier), restored)
	assert.Equal(t, upstream["traceparent"], restored["traceparent"])
}
