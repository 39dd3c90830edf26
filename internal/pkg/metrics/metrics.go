// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 订单链路的核心指标。发布失败和消费失败是重点告警项：
// 当前的投递语义是尽力而为，丢消息只能靠指标发现。
var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderhub_orders_created_total",
		Help: "Number of orders successfully created.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderhub_events_published_total",
		Help: "Number of lifecycle events published, by topic.",
	}, []string{"topic"})

	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderhub_event_publish_failures_total",
		Help: "Number of lifecycle event publish failures, by topic.",
	}, []string{"topic"})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderhub_consumer_handler_failures_total",
		Help: "Number of consumer handler failures, by topic.",
	}, []string{"topic"})
)
