package logger

import (
	"context"

	"go.uber.org/zap"

	eventbus "github.com/hanpama/fieldguide/internal/eventbus"
	events "github.com/hanpama/fieldguide/internal/events"
	reqid "github.com/hanpama/fieldguide/internal/reqid"
)

// Subscribe logs request lifecycle events from the global bus: HTTP
// requests at debug, GraphQL operations at info, and failed resolver and
// store calls at warn.
func Subscribe(log *zap.Logger) (unsubscribe func()) {
	withID := func(ctx context.Context) *zap.Logger {
		if id, ok := reqid.FromContext(ctx); ok {
			return log.With(zap.String("request_id", id))
		}
		return log
	}

	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			log.Debug("http request",
				zap.String("request_id", e.RequestID),
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			withID(ctx).Info("graphql operation",
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Int("variables", e.Variables),
				zap.Int("errors", len(e.Errors)),
				zap.Bool("partial", e.Partial),
				zap.Duration("duration", e.Duration))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ResolverFinish) {
			if e.Err == nil {
				return
			}
			withID(ctx).Warn("resolver failed",
				zap.String("field", e.ObjectType+"."+e.Field),
				zap.String("path", e.Path),
				zap.Error(e.Err))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.StoreFinish) {
			if e.Err == nil {
				return
			}
			withID(ctx).Warn("store call failed",
				zap.String("backend", e.Backend),
				zap.String("collection", e.Collection),
				zap.String("op", e.Op),
				zap.Error(e.Err))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
