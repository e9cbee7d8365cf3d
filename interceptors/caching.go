package interceptors

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/Keksclan/goRawrCache/contextx"
	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/metrics"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/tracing"
)

// Caching serves calls from the cache and stores the results of misses.
//
// Per call: resolve the cache model; without one, or for a void method,
// invoke the target directly. Otherwise compute the key and look it up. A
// hit is returned without invoking the target. On a miss the target runs;
// its error is returned unchanged and nothing is stored. A successful
// result is stored, listeners are notified and the result is returned.
//
// Provider failures during lookup or store are returned to the caller as
// *provider.Error values, never downgraded to a miss. A store the driver
// declined (provider.ErrNotStored) returns the result without notifying
// listeners.
type Caching struct {
	resolver  *policy.Resolver[policy.CacheModel]
	facade    provider.Facade
	keys      key.Generator
	listeners []Listener
	log       zerolog.Logger
	metrics   *metrics.Recorder
	group     *singleflight.Group
}

// NewCaching creates the caching interceptor.
func NewCaching(resolver *policy.Resolver[policy.CacheModel], facade provider.Facade, opts ...Option) *Caching {
	o := buildOptions(opts)
	return &Caching{
		resolver:  resolver,
		facade:    facade,
		keys:      o.keys,
		listeners: o.listeners,
		log:       o.log,
		metrics:   o.metrics,
		group:     newGroup(o.singleFlight),
	}
}

// Interceptor returns c as an invocation.Interceptor.
func (c *Caching) Interceptor() invocation.Interceptor { return c.Intercept }

// Intercept implements invocation.Interceptor.
func (c *Caching) Intercept(ctx context.Context, call *invocation.Call, next invocation.Invoker) (any, error) {
	if call.Method.Void || contextx.Bypass(ctx) {
		c.metrics.Passthrough("caching")
		return next(ctx, call)
	}

	model, ok := c.resolver.Resolve(call.Method, call.Target)
	if !ok {
		c.metrics.Passthrough("caching")
		return next(ctx, call)
	}

	k := c.keys.Generate(call)

	if !contextx.Refresh(ctx) {
		v, hit, err := c.facade.Get(ctx, k, model)
		if err != nil {
			c.metrics.Error(model.Cache, "get")
			tracing.AddEvent(ctx, "cache.error", attribute.String("cache", model.Cache), attribute.String("op", "get"))
			c.log.Warn().Err(err).Str("cache", model.Cache).Str("method", call.Method.FullName()).Msg("cache lookup failed")
			return nil, err
		}
		if hit {
			c.metrics.Hit(model.Cache)
			tracing.AddEvent(ctx, "cache.hit", attribute.String("cache", model.Cache), attribute.String("key", k.String()))
			return v, nil
		}
		c.metrics.Miss(model.Cache)
		tracing.AddEvent(ctx, "cache.miss", attribute.String("cache", model.Cache), attribute.String("key", k.String()))
	}

	if c.group == nil {
		return c.load(ctx, call, k, model, next)
	}
	// The first caller's context drives the shared invocation.
	v, err, _ := c.group.Do(model.Cache+"|"+k.String(), func() (any, error) {
		return c.load(ctx, call, k, model, next)
	})
	return v, err
}

// load invokes the target and stores its result.
func (c *Caching) load(ctx context.Context, call *invocation.Call, k key.Key, model policy.CacheModel, next invocation.Invoker) (any, error) {
	start := time.Now()
	v, err := next(ctx, call)
	if err != nil {
		return v, err
	}
	c.metrics.Load(model.Cache, time.Since(start))

	if err := c.facade.Put(ctx, k, model, v); err != nil {
		if errors.Is(err, provider.ErrNotStored) {
			tracing.AddEvent(ctx, "cache.dropped", attribute.String("cache", model.Cache), attribute.String("key", k.String()))
			c.log.Debug().Str("cache", model.Cache).Str("method", call.Method.FullName()).Msg("cache store dropped")
			return v, nil
		}
		c.metrics.Error(model.Cache, "put")
		tracing.AddEvent(ctx, "cache.error", attribute.String("cache", model.Cache), attribute.String("op", "put"))
		c.log.Warn().Err(err).Str("cache", model.Cache).Str("method", call.Method.FullName()).Msg("cache store failed")
		return nil, err
	}
	c.metrics.Store(model.Cache)

	c.notify(ctx, Stored{Key: k, Model: model, Value: v, Call: call})
	return v, nil
}

func (c *Caching) notify(ctx context.Context, e Stored) {
	for _, l := range c.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error().
						Interface("panic", r).
						Str("cache", e.Model.Cache).
						Str("method", e.Call.Method.FullName()).
						Msg("cache listener panicked")
				}
			}()
			l.OnStored(ctx, e)
		}()
	}
}
