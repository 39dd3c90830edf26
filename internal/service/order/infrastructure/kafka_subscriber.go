// internal/service/order/infrastructure/kafka_subscriber.go
package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/semaphore"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/metrics"
	"orderhub/internal/pkg/mq"
	"orderhub/internal/service/order/application"
)

// KafkaSubscriber 是驱动适配器：按订阅表监听各个 topic，
// 把消息分发给对应的 handler。
//
// 每个 topic 一个 FetchMessage 循环；处理任务投进一个全局受限的
// worker 池，不同订单的消息可以并发处理，同一订单的消息不保证串行。
// Offset 在任务投递后立即提交：处理失败的消息记录、打点后丢弃
//（尽力而为投递，没有重试队列）。
type KafkaSubscriber struct {
	brokers []string
	groupID string
	routes  map[string]application.HandlerFunc

	sem     *semaphore.Weighted
	readers []*kafka.Reader
	wg      sync.WaitGroup
}

// NewKafkaSubscriber 创建消费侧订阅器。poolSize 限制全局并发 worker 数。
func NewKafkaSubscriber(brokers []string, groupID string, poolSize int64, routes map[string]application.HandlerFunc) *KafkaSubscriber {
	return &KafkaSubscriber{
		brokers: brokers,
		groupID: groupID,
		routes:  routes,
		sem:     semaphore.NewWeighted(poolSize),
	}
}

// Start 为订阅表中的每个 topic 启动一个消费循环。
func (s *KafkaSubscriber) Start(ctx context.Context) {
	for topic, handler := range s.routes {
		reader := mq.NewKafkaReader(s.brokers, topic, s.groupID)
		s.readers = append(s.readers, reader)

		s.wg.Add(1)
		go s.consumeLoop(ctx, reader, topic, handler)
	}
	logger.L().Info().Int("topics", len(s.routes)).Msg("kafka subscriber started")
}

// Stop 优雅地停止所有消费循环并等待在途任务完成。
func (s *KafkaSubscriber) Stop(ctx context.Context) {
	for _, reader := range s.readers {
		if err := reader.Close(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to close kafka reader")
		}
	}
	s.wg.Wait()
	logger.L().Info().Msg("kafka subscriber stopped")
}

func (s *KafkaSubscriber) consumeLoop(ctx context.Context, reader *kafka.Reader, topic string, handler application.HandlerFunc) {
	defer s.wg.Done()

	for {
		// 使用 FetchMessage 而不是 ReadMessage，才能控制提交和退出时机
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.L().Info().Str("topic", topic).Msg("consume loop shutting down")
				return
			}
			logger.L().Error().Err(err).Str("topic", topic).Msg("could not fetch message, retrying")
			time.Sleep(1 * time.Second) // 避免快速失败循环
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		s.wg.Add(1)
		go func(msg kafka.Message) {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.dispatch(ctx, topic, handler, msg)
		}(msg)

		// 无论处理结果如何都提交 offset：失败的消息不重投
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.L().Error().Err(err).Str("topic", topic).Msg("failed to commit messages")
		}
	}
}

// dispatch 在独立的 worker 中执行 handler，错误在这一层消化：
// 一个 handler 的失败不能拖垮消费进程，也不能阻塞其它消息。
func (s *KafkaSubscriber) dispatch(parentCtx context.Context, topic string, handler application.HandlerFunc, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerFailures.WithLabelValues(topic).Inc()
			logger.Ctx(ctx).Error().
				Str("topic", topic).
				Str("key", string(msg.Key)).
				Any("panic", r).
				Msg("handler panicked, message dropped")
		}
	}()

	if err := handler(ctx, msg.Value); err != nil {
		metrics.HandlerFailures.WithLabelValues(topic).Inc()
		logger.Ctx(ctx).Error().Err(err).
			Str("topic", topic).
			Str("key", string(msg.Key)).
			Msg("handler failed, message dropped")
	}
}
