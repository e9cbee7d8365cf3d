package gorawrcache

import (
	"context"

	rawrconfig "github.com/Keksclan/goRawrCache/config"
	"github.com/Keksclan/goRawrCache/interceptors"
)

// FromConfig builds the provider described by cfg and an Engine using it
// with the configured caching and flushing rules. opts are applied after
// the configuration and take precedence. Engine.Close releases the drivers.
//
// When the backend is tiered with an invalidation channel, a goroutine
// keeps the local tier in sync until ctx is done.
func FromConfig(ctx context.Context, cfg *rawrconfig.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := newConfig(opts).log
	backend, err := cfg.Build(log)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithProvider(backend.Facade),
		WithCaching(cfg.CacheRules()),
		WithFlushing(cfg.FlushRules()),
	}
	if cfg.SingleFlight {
		base = append(base, WithSingleFlight())
	}
	if cfg.FlushErrorPolicy == "abort" {
		base = append(base, WithFlushErrorPolicy(interceptors.AbortOnFlushError))
	}

	c := newConfig(append(base, opts...))
	c.closers = append(c.closers, backend.Close)

	e, err := build(c)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	go func() {
		if err := backend.Invalidations(ctx); err != nil {
			log.Warn().Err(err).Msg("cache invalidation subscription ended")
		}
	}()
	return e, nil
}
