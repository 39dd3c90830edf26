// internal/service/order/infrastructure/adapter/event_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"orderhub/internal/pkg/mq"
)

// EventKafkaAdapter 是 port.EventPublisher 的 Kafka 实现。
// 每个 topic 持有一个独立的 writer；消息 key 用于分区亲和，
// 保证同一订单的事件进入同一分区。
type EventKafkaAdapter struct {
	writers map[string]*kafka.Writer
}

// NewEventKafkaAdapter 为给定的 topic 集合创建发布适配器。
func NewEventKafkaAdapter(brokers []string, topics ...string) *EventKafkaAdapter {
	writers := make(map[string]*kafka.Writer, len(topics))
	for _, topic := range topics {
		writers[topic] = mq.NewKafkaWriter(brokers, topic)
	}
	return &EventKafkaAdapter{writers: writers}
}

// Publish 序列化 payload 并发布到 topic，自动注入追踪上下文。
func (a *EventKafkaAdapter) Publish(ctx context.Context, topic, key string, payload any) error {
	writer, ok := a.writers[topic]
	if !ok {
		return fmt.Errorf("no writer configured for topic %q", topic)
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event for topic %q: %w", topic, err)
	}
	return mq.ProduceMessage(ctx, writer, []byte(key), value)
}

// Close 关闭所有底层 writer。
func (a *EventKafkaAdapter) Close() error {
	var firstErr error
	for _, writer := range a.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
