package interceptors

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/metrics"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/tracing"
)

// Flushing invalidates caches around a call according to its flush model.
//
// A before-execution model flushes first and then invokes the target
// whatever the target's outcome. A failed before flush is logged, counted
// and passed to the OnFlushError hook; under ProceedOnFlushError the
// target still runs, under AbortOnFlushError the failure is returned.
//
// An after-execution model invokes the target first and flushes only when
// it returned without error. A failed after flush is returned together
// with the target's result, which has already been committed.
type Flushing struct {
	resolver *policy.Resolver[policy.FlushModel]
	facade   provider.Facade
	log      zerolog.Logger
	metrics  *metrics.Recorder
	policy   FlushErrorPolicy
	onError  FlushErrorHook
}

// NewFlushing creates the flushing interceptor.
func NewFlushing(resolver *policy.Resolver[policy.FlushModel], facade provider.Facade, opts ...Option) *Flushing {
	o := buildOptions(opts)
	return &Flushing{
		resolver: resolver,
		facade:   facade,
		log:      o.log,
		metrics:  o.metrics,
		policy:   o.flushPolicy,
		onError:  o.onFlushError,
	}
}

// Interceptor returns f as an invocation.Interceptor.
func (f *Flushing) Interceptor() invocation.Interceptor { return f.Intercept }

// Intercept implements invocation.Interceptor.
func (f *Flushing) Intercept(ctx context.Context, call *invocation.Call, next invocation.Invoker) (any, error) {
	model, ok := f.resolver.Resolve(call.Method, call.Target)
	if !ok {
		f.metrics.Passthrough("flushing")
		return next(ctx, call)
	}

	if model.FlushBeforeExecution {
		if err := f.flush(ctx, call, model, "before"); err != nil && f.policy == AbortOnFlushError {
			return nil, err
		}
		return next(ctx, call)
	}

	v, err := next(ctx, call)
	if err != nil {
		// Not committed: nothing to invalidate.
		return v, err
	}
	if err := f.flush(ctx, call, model, "after"); err != nil {
		return v, err
	}
	return v, nil
}

func (f *Flushing) flush(ctx context.Context, call *invocation.Call, model policy.FlushModel, phase string) error {
	err := f.facade.Flush(ctx, model)
	f.metrics.Flush(model.Caches, phase, err)

	caches := strings.Join(model.Caches, ",")
	if err != nil {
		tracing.AddEvent(ctx, "cache.flush.error", attribute.String("caches", caches), attribute.String("phase", phase))
		f.log.Warn().Err(err).
			Str("caches", caches).
			Str("phase", phase).
			Str("method", call.Method.FullName()).
			Msg("cache flush failed")
		if f.onError != nil {
			f.onError(ctx, call, model, err)
		}
		return err
	}

	tracing.AddEvent(ctx, "cache.flush", attribute.String("caches", caches), attribute.String("phase", phase))
	f.log.Debug().Str("caches", caches).Str("phase", phase).Str("method", call.Method.FullName()).Msg("caches flushed")
	return nil
}
