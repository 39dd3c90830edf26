// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"orderhub/internal/pkg/config"
	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/nacos"
	"orderhub/internal/pkg/tracing"
	"orderhub/internal/pkg/utils"
)

// AppCtx 传递给各服务的路由注册回调。
type AppCtx struct {
	Mux *http.ServeMux
	Cfg *config.Config
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	Cfg              *config.Config
	RegisterHandlers func(appCtx AppCtx)          // 每个服务注册自己的 HTTP 路由
	OnStart          func(ctx context.Context)    // 可选：启动后台任务（如消息消费循环）
	OnShutdown       func(ctx context.Context)    // 可选：关停时的清理回调
}

// StartService 封装了所有服务的通用启动和优雅关停逻辑：
// 日志、Tracer、Nacos 注册、HTTP Server、后台任务、信号处理。
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)

	tp, err := tracing.InitTracerProvider(info.ServiceName, info.Cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// Nacos 注册是可选的，本地开发时通常关闭
	var (
		namingClient *nacos.Client
		outboundIP   string
	)
	if info.Cfg.Infra.Nacos.Enabled {
		namingClient, err = nacos.NewClient(
			info.Cfg.Infra.Nacos.ServerAddrs,
			info.Cfg.Infra.Nacos.Namespace,
			info.Cfg.Infra.Nacos.Group,
		)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		outboundIP, err = utils.GetOutboundIP()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, outboundIP, info.Port); err != nil {
			logger.L().Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Cfg: info.Cfg})
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		logger.L().Info().Msgf("%s listening on :%d", info.ServiceName, info.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatal().Err(err).Msgf("could not listen on %s", server.Addr)
		}
	}()

	// 后台任务与主流程共享一个可取消的上下文
	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	if info.OnStart != nil {
		info.OnStart(backgroundCtx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 阻塞主 goroutine，直到接收到退出信号
	<-quit
	logger.L().Info().Msgf("shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关停顺序：停止接收新消息 -> 服务清理 -> 注销 -> 刷出 trace -> 关闭 HTTP
	cancelBackground()
	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}

	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, outboundIP, info.Port); err != nil {
			logger.L().Error().Err(err).Msg("error deregistering from nacos")
		}
	}

	if err := tp.Shutdown(ctx); err != nil {
		logger.L().Error().Err(err).Msg("error shutting down tracer provider")
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.L().Error().Err(err).Msg("error shutting down http server")
	}

	logger.L().Info().Msgf("service %s gracefully shut down", info.ServiceName)
}
