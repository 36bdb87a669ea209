package analysis

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"go.uber.org/zap"
)

type startedAtKey struct{}

// LoggerCallback traces every chain node through zap at debug level.
func LoggerCallback(logger *zap.Logger, provider string) callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			logger.Debug("chain node start", nodeFields(info, provider)...)
			return context.WithValue(ctx, startedAtKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
			fields := nodeFields(info, provider)
			if start, ok := ctx.Value(startedAtKey{}).(time.Time); ok {
				fields = append(fields, zap.Duration("latency", time.Since(start)))
			}
			logger.Debug("chain node end", fields...)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			logger.Warn("chain node error", append(nodeFields(info, provider), zap.Error(err))...)
			return ctx
		}).
		Build()
}

func nodeFields(info *callbacks.RunInfo, provider string) []zap.Field {
	fields := []zap.Field{zap.String("provider", provider)}
	if info == nil {
		return fields
	}
	return append(fields,
		zap.String("node", info.Name),
		zap.String("component", string(info.Component)),
		zap.String("type", info.Type))
}
