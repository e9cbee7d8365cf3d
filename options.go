package gorawrcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/interceptors"
	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/tracing"
)

// Option configures an Engine.
type Option func(*config)

// WithProvider sets the facade every cache operation goes through.
func WithProvider(f provider.Facade) Option {
	return func(c *config) { c.facade = f }
}

// WithCaching enables the caching interceptor with models from src.
func WithCaching(src policy.Source[policy.CacheModel]) Option {
	return func(c *config) { c.cacheSource = src }
}

// WithFlushing enables the flushing interceptor with models from src.
func WithFlushing(src policy.Source[policy.FlushModel]) Option {
	return func(c *config) { c.flushSource = src }
}

// WithKeyGenerator replaces the default hash-code key generator.
func WithKeyGenerator(g key.Generator) Option {
	return func(c *config) { c.keys = g }
}

// WithListener adds a listener notified after every successful store.
func WithListener(l interceptors.Listener) Option {
	return func(c *config) { c.listeners = append(c.listeners, l) }
}

// WithOverrides sets how the resolvers find the implementation a target
// type provides for a method. The default treats a method of the same name
// and parameters on the target as its override.
func WithOverrides(o invocation.Overrides) Option {
	return func(c *config) { c.overrides = o }
}

// WithLogger sets the logger used by the engine and its interceptors.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithMetrics registers the engine's collectors on reg. When reg is also a
// prometheus.Gatherer, Engine.MetricsHandler serves it.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

// WithTracing wraps every intercepted call in an OpenTelemetry span.
func WithTracing(cfg *tracing.Config) Option {
	return func(c *config) {
		if cfg == nil {
			cfg = &tracing.Config{}
		}
		c.tracing = cfg
	}
}

// WithRecovery turns panics inside the chain or the target into a returned
// *interceptors.PanicError.
func WithRecovery() Option {
	return func(c *config) { c.recovery = true }
}

// WithRequestID ensures every call carries a request ID and a logger bound
// to it, available through zerolog.Ctx.
func WithRequestID() Option {
	return func(c *config) { c.requestID = true }
}

// WithSingleFlight makes concurrent misses for the same key share a single
// target invocation.
func WithSingleFlight() Option {
	return func(c *config) { c.singleFlight = true }
}

// WithFlushErrorPolicy sets how a failed before-execution flush is treated.
// The default is interceptors.ProceedOnFlushError.
func WithFlushErrorPolicy(p interceptors.FlushErrorPolicy) Option {
	return func(c *config) { c.flushPolicy = p }
}

// OnFlushError registers a hook told about every failed flush.
func OnFlushError(h interceptors.FlushErrorHook) Option {
	return func(c *config) { c.onFlushError = h }
}

// WithInterceptor adds a custom interceptor to the chain. Lower orders run
// first; the built-in interceptors use 100 (recovery), 150 (request ID),
// 200 (tracing), 300 (flushing) and 400 (caching).
func WithInterceptor(order int, ic invocation.Interceptor) Option {
	return func(c *config) { c.middlewares.Add(order, ic) }
}
