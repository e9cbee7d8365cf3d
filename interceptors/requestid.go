package interceptors

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/contextx"
	"github.com/Keksclan/goRawrCache/invocation"
)

// RequestID returns an interceptor that ensures a request ID is present in
// the context and attaches a logger carrying it, retrievable further down
// the chain with zerolog.Ctx.
func RequestID(log zerolog.Logger) invocation.Interceptor {
	return func(ctx context.Context, call *invocation.Call, next invocation.Invoker) (any, error) {
		ctx, id := contextx.EnsureRequestID(ctx)
		ctx = log.With().Str("request_id", id).Logger().WithContext(ctx)
		return next(ctx, call)
	}
}
