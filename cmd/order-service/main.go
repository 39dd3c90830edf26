// cmd/order-service/main.go
package main

import (
	"context"
	"flag"

	"go.opentelemetry.io/otel"

	"orderhub/internal/pkg/bootstrap"
	"orderhub/internal/pkg/config"
	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/redis"
	"orderhub/internal/service/order/application"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/infrastructure"
	"orderhub/internal/service/order/infrastructure/adapter"
	"orderhub/internal/service/order/interfaces"
)

const (
	serviceName = "order-service"
	servicePort = 8080
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init(serviceName)
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}

	// 1. 初始化基础设施
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
	paymentGateway := adapter.NewStripeHTTPAdapter(
		httpclient.NewClient(tracer),
		cfg.Payment.Stripe.BaseURL,
		cfg.Payment.Stripe.APIKey,
	)

	// 2. 组装业务服务
	orderService := application.NewOrderService(orderRepo, stockStore, eventPublisher, tracer, cfg.App.Currency)
	paymentOrchestrator := application.NewPaymentOrchestrator(paymentGateway, orderRepo, orderService, eventPublisher, tracer)

	handler := interfaces.NewOrderHandler(orderService, paymentOrchestrator)

	// 3. 把通用的启动/关停流程交给 bootstrap
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		Cfg:         cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := eventPublisher.Close(); err != nil {
				logger.L().Error().Err(err).Msg("error closing event publisher")
			}
		},
	})
}
