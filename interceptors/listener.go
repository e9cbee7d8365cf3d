package interceptors

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/policy"
)

// Stored describes an entry that was just written to the cache.
type Stored struct {
	Key   key.Key
	Model policy.CacheModel
	Value any
	Call  *invocation.Call
}

// Listener is notified synchronously after every successful store. A
// panicking listener is recovered and logged; it never affects the result
// returned to the caller.
type Listener interface {
	OnStored(ctx context.Context, e Stored)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, e Stored)

// OnStored implements Listener.
func (f ListenerFunc) OnStored(ctx context.Context, e Stored) { f(ctx, e) }

// LoggingListener logs every store at debug level.
func LoggingListener(l zerolog.Logger) Listener {
	return ListenerFunc(func(_ context.Context, e Stored) {
		l.Debug().
			Str("cache", e.Model.Cache).
			Stringer("key", e.Key).
			Str("method", e.Call.Method.FullName()).
			Msg("entry stored")
	})
}
