// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// base 是进程级别的根 Logger，在 Init 中被初始化一次。
var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 初始化全局日志器，附带服务名字段。
// 所有服务在 main 中调用一次即可。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// L 返回不带请求上下文的根 Logger。
func L() *zerolog.Logger {
	return &base
}

// Ctx 返回一个绑定了当前追踪上下文的 Logger。
// 如果 ctx 中存在有效的 Span，日志会自动携带 traceId/spanId，
// 方便在 Jaeger 和日志系统之间互相关联。
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return &base
	}
	l := base.With().
		Str("traceId", spanCtx.TraceID().String()).
		Str("spanId", spanCtx.SpanID().String()).
		Logger()
	return &l
}
