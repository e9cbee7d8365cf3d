package gorawrcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/interceptors"
	"github.com/Keksclan/goRawrCache/internal/core"
	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/metrics"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/tracing"
)

// config holds the internal configuration assembled via functional options.
type config struct {
	facade      provider.Facade
	cacheSource policy.Source[policy.CacheModel]
	flushSource policy.Source[policy.FlushModel]

	keys         key.Generator
	listeners    []interceptors.Listener
	overrides    invocation.Overrides
	log          zerolog.Logger
	registerer   prometheus.Registerer
	tracing      *tracing.Config
	recovery     bool
	requestID    bool
	singleFlight bool
	flushPolicy  interceptors.FlushErrorPolicy
	onFlushError interceptors.FlushErrorHook

	middlewares core.MiddlewareBuilder
	closers     []func() error
}

func newConfig(opts []Option) *config {
	cfg := &config{log: zerolog.Nop()}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// interceptorOptions translates the engine settings for the interceptors.
func (c *config) interceptorOptions(rec *metrics.Recorder) []interceptors.Option {
	opts := []interceptors.Option{
		interceptors.WithLogger(c.log),
		interceptors.WithMetrics(rec),
		interceptors.WithFlushErrorPolicy(c.flushPolicy),
		interceptors.OnFlushError(c.onFlushError),
	}
	if c.keys != nil {
		opts = append(opts, interceptors.WithKeyGenerator(c.keys))
	}
	for _, l := range c.listeners {
		opts = append(opts, interceptors.WithListener(l))
	}
	if c.singleFlight {
		opts = append(opts, interceptors.WithSingleFlight())
	}
	return opts
}
