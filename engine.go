// Package gorawrcache is a declarative method-level caching engine. Methods
// are matched against caching and flushing rules; matching calls are served
// from a cache or invalidate caches around their execution, all through an
// explicit interceptor chain.
//
//	engine, err := gorawrcache.New(
//		gorawrcache.WithProvider(provider.NewFacade(driver)),
//		gorawrcache.WithCaching(cacheRules),
//		gorawrcache.WithFlushing(flushRules),
//		gorawrcache.WithRecovery(),
//	)
//	find := gorawrcache.Wrap(engine, repo.Find)
package gorawrcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/Keksclan/goRawrCache/interceptors"
	"github.com/Keksclan/goRawrCache/internal/core"
	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/metrics"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/tracing"
)

// ErrNoProvider is returned by New when caching or flushing is enabled
// without a provider.
var ErrNoProvider = errors.New("gorawrcache: no provider configured")

// Engine owns the resolvers, the provider facade and the assembled
// interceptor chain. It is safe for concurrent use.
type Engine struct {
	facade        provider.Facade
	cacheResolver *policy.Resolver[policy.CacheModel]
	flushResolver *policy.Resolver[policy.FlushModel]
	chain         invocation.Interceptor
	tracing       *tracing.Config
	gatherer      prometheus.Gatherer
	log           zerolog.Logger
	closers       []func() error
}

// New assembles an Engine. Every model the configured sources expose is
// validated against the provider first; any invalid model aborts
// construction.
func New(opts ...Option) (*Engine, error) {
	cfg := newConfig(opts)
	return build(cfg)
}

func build(cfg *config) (*Engine, error) {
	if cfg.facade == nil && (cfg.cacheSource != nil || cfg.flushSource != nil) {
		return nil, ErrNoProvider
	}

	e := &Engine{
		facade:  cfg.facade,
		tracing: cfg.tracing,
		log:     cfg.log,
		closers: cfg.closers,
	}

	var rec *metrics.Recorder
	if cfg.registerer != nil {
		rec = metrics.New(cfg.registerer)
		if g, ok := cfg.registerer.(prometheus.Gatherer); ok {
			e.gatherer = g
		}
	}

	if err := e.validate(cfg); err != nil {
		return nil, err
	}

	mw := cfg.middlewares
	if cfg.recovery {
		mw.Add(core.OrderRecovery, interceptors.Recovery(cfg.log))
	}
	if cfg.requestID {
		mw.Add(core.OrderRequestID, interceptors.RequestID(cfg.log))
	}
	if cfg.tracing != nil {
		mw.Add(core.OrderTracing, tracing.Interceptor(cfg.tracing))
	}

	icOpts := cfg.interceptorOptions(rec)
	if cfg.flushSource != nil {
		e.flushResolver = policy.NewResolver(cfg.flushSource, resolverOptions(cfg, rec, "flushing")...)
		mw.Add(core.OrderFlushing, interceptors.NewFlushing(e.flushResolver, cfg.facade, icOpts...).Interceptor())
	}
	if cfg.cacheSource != nil {
		e.cacheResolver = policy.NewResolver(cfg.cacheSource, resolverOptions(cfg, rec, "caching")...)
		mw.Add(core.OrderCaching, interceptors.NewCaching(e.cacheResolver, cfg.facade, icOpts...).Interceptor())
	}
	e.chain = mw.Chain()

	e.log.Debug().
		Int("interceptors", mw.Len()).
		Bool("caching", e.cacheResolver != nil).
		Bool("flushing", e.flushResolver != nil).
		Msg("engine ready")
	return e, nil
}

func resolverOptions(cfg *config, rec *metrics.Recorder, name string) []policy.ResolverOption {
	opts := []policy.ResolverOption{
		policy.OnScan(func(found bool) { rec.Resolution(name, found) }),
	}
	if cfg.overrides != nil {
		opts = append(opts, policy.WithOverrides(cfg.overrides))
	}
	return opts
}

// validate checks every configured model against the facade.
func (e *Engine) validate(cfg *config) error {
	var models []policy.Model
	if cfg.cacheSource != nil {
		for _, m := range cfg.cacheSource.Models() {
			models = append(models, m)
		}
	}
	if cfg.flushSource != nil {
		for _, m := range cfg.flushSource.Models() {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return nil
	}

	var err error
	if v, ok := cfg.facade.(interface{ ValidateAll(...policy.Model) error }); ok {
		err = v.ValidateAll(models...)
	} else {
		var errs []error
		for _, m := range models {
			errs = append(errs, cfg.facade.Validate(m))
		}
		err = errors.Join(errs...)
	}
	if err != nil {
		e.log.Error().Err(err).Int("models", len(models)).Msg("cache configuration invalid")
		return fmt.Errorf("gorawrcache: invalid configuration: %w", err)
	}
	return nil
}

// Invoke runs call through the chain, ending with target.
func (e *Engine) Invoke(ctx context.Context, call *invocation.Call, target invocation.Invoker) (any, error) {
	if e.chain == nil {
		return target(ctx, call)
	}
	return e.chain(ctx, call, target)
}

// Interceptor returns the assembled chain as a single interceptor.
func (e *Engine) Interceptor() invocation.Interceptor {
	return e.Invoke
}

// UnaryServerInterceptor exposes the chain to a gRPC server. When tracing is
// enabled the caller's trace context is continued from incoming metadata.
func (e *Engine) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	adapter := interceptors.UnaryServerInterceptor(e.Interceptor())
	if e.tracing == nil {
		return adapter
	}
	extract := tracing.UnaryServerInterceptor(e.tracing)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return extract(ctx, req, info, func(ctx context.Context, req any) (any, error) {
			return adapter(ctx, req, info, handler)
		})
	}
}

// MetricsHandler serves the metrics registered with WithMetrics. Without a
// gatherer it serves the default registry.
func (e *Engine) MetricsHandler() http.Handler {
	g := e.gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return metrics.Handler(g)
}

// Provider returns the facade, or nil when none is configured.
func (e *Engine) Provider() provider.Facade { return e.facade }

// CacheResolver returns the caching resolver, or nil when caching is off.
func (e *Engine) CacheResolver() *policy.Resolver[policy.CacheModel] { return e.cacheResolver }

// FlushResolver returns the flushing resolver, or nil when flushing is off.
func (e *Engine) FlushResolver() *policy.Resolver[policy.FlushModel] { return e.flushResolver }

// Close releases resources the engine created itself, such as drivers built
// by FromConfig.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
