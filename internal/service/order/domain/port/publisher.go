// internal/service/order/domain/port/publisher.go
package port

import "context"

// EventPublisher 是生命周期事件的出站端口：带命名 topic 的持久化发布通道。
// 发布是 fire-and-forget 语义，调用方不等待下游消费完成；
// 发布失败由调用方记录日志后吞掉，永远不回滚已完成的持久化。
type EventPublisher interface {
	// Publish 把 payload 序列化后发到 topic。key 用于分区亲和
	//（同一订单的消息带同一个 key）。
	Publish(ctx context.Context, topic, key string, payload any) error
}
