// cmd/order-worker/main.go
package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"orderhub/internal/pkg/bootstrap"
	"orderhub/internal/pkg/config"
	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/redis"
	"orderhub/internal/service/order/application"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/infrastructure"
	"orderhub/internal/service/order/infrastructure/adapter"
)

const (
	serviceName = "order-worker"
	servicePort = 8081
)

// main 组装消费侧进程：订阅订单生命周期事件，驱动履约流程和用户通知。
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init(serviceName)
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infrastructure.NewDB(cfg.Infra.MySQL.DSN)
	if err != nil {
		logger.Init(serviceName)
		logger.L().Fatal().Err(err).Msg("failed to initialize database")
	}
	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr)
	if err != nil {
		logger.Init(serviceName)
		logger.L().Fatal().Err(err).Msg("failed to initialize redis client")
	}

	tracer := otel.Tracer(serviceName)

	orderRepo := infrastructure.NewGormOrderRepository(db)
	stockStore := adapter.NewStockRedisAdapter(redisClient)
	eventPublisher := adapter.NewEventKafkaAdapter(
		cfg.Infra.Kafka.Brokers,
		domain.TopicOrderCreated,
		domain.TopicOrderStatusUpdated,
		domain.TopicOrderCancelled,
		domain.TopicPaymentProcessed,
	)
	notifier := adapter.NewNotificationKafkaAdapter(cfg.Infra.Kafka.Brokers, cfg.App.NotificationTopic)

	orderService := application.NewOrderService(orderRepo, stockStore, eventPublisher, tracer, cfg.App.Currency)
	consumer := application.NewOrderEventConsumer(orderService, notifier, tracer)

	subscriber := infrastructure.NewKafkaSubscriber(
		cfg.Infra.Kafka.Brokers,
		cfg.App.ConsumerGroupID,
		int64(cfg.App.ConsumerPoolSize),
		consumer.Routes(),
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		Cfg:         cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		OnStart: func(ctx context.Context) {
			subscriber.Start(ctx)
		},
		OnShutdown: func(ctx context.Context) {
			subscriber.Stop(ctx)
			if err := notifier.Close(); err != nil {
				logger.L().Error().Err(err).Msg("error closing notifier")
			}
			if err := eventPublisher.Close(); err != nil {
				logger.L().Error().Err(err).Msg("error closing event publisher")
			}
		},
	})
}
