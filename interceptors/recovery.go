package interceptors

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/invocation"
)

// PanicError is returned by Recovery when the rest of the chain panicked.
type PanicError struct {
	Method invocation.Method
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Method.FullName(), e.Value)
}

// Recovery returns an interceptor that turns a panic further down the chain
// into a *PanicError instead of crashing the caller.
func Recovery(log zerolog.Logger) invocation.Interceptor {
	return func(ctx context.Context, call *invocation.Call, next invocation.Invoker) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				pe := &PanicError{Method: call.Method, Value: r, Stack: debug.Stack()}
				log.Error().
					Interface("panic", r).
					Str("method", call.Method.FullName()).
					Bytes("stack", pe.Stack).
					Msg("recovered from panic")
				resp = nil
				err = pe
			}
		}()
		return next(ctx, call)
	}
}
