package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/provider/memory"
	"github.com/Keksclan/goRawrCache/provider/redis"
)

func apply[M policy.Model](g *policy.GroupBuilder[M], m Match) *policy.GroupBuilder[M] {
	for _, p := range m.Exact {
		g.Exact(p)
	}
	for _, p := range m.Prefix {
		g.Prefix(p)
	}
	for _, p := range m.Wildcard {
		g.Wildcard(p)
	}
	for _, p := range m.Regex {
		g.Regex(p)
	}
	if len(m.Types) > 0 {
		g.Type(m.Types...)
	}
	return g
}

// CacheRules builds the caching rule source. Groups keep file order, which
// breaks ties between equally specific patterns.
func (c *Config) CacheRules() *policy.Rules[policy.CacheModel] {
	groups := make([]*policy.GroupBuilder[policy.CacheModel], 0, len(c.Caching))
	for _, g := range c.Caching {
		groups = append(groups, apply(policy.Group[policy.CacheModel](g.Name), g.Match).Model(policy.CacheModel{
			Cache:               g.Cache,
			TTL:                 g.TTL,
			RequireSerializable: g.RequireSerializable,
		}))
	}
	return policy.NewRules(groups...)
}

// FlushRules builds the flushing rule source.
func (c *Config) FlushRules() *policy.Rules[policy.FlushModel] {
	groups := make([]*policy.GroupBuilder[policy.FlushModel], 0, len(c.Flushing))
	for _, g := range c.Flushing {
		groups = append(groups, apply(policy.Group[policy.FlushModel](g.Name), g.Match).Model(policy.FlushModel{
			Caches:               g.Caches,
			FlushBeforeExecution: g.BeforeExecution,
		}))
	}
	return policy.NewRules(groups...)
}

// Backend is the provider stack built from a Config.
type Backend struct {
	// Facade is handed to the engine. It is resilient when retries or a
	// breaker are configured.
	Facade provider.Facade
	// Driver is the top-level driver behind Facade.
	Driver provider.Driver

	local   *memory.Driver
	remote  *redis.Driver
	channel string
}

// Build creates the configured drivers and facade. Every cache named by a
// group is declared on the drivers.
func (c *Config) Build(log zerolog.Logger) (*Backend, error) {
	caches := c.CacheNames()
	b := &Backend{channel: c.Provider.Redis.InvalidationChannel}

	newLocal := func() error {
		d, err := memory.New(memory.Config{Caches: caches, MaxCost: c.Provider.Memory.MaxCost})
		if err != nil {
			return fmt.Errorf("config: memory driver: %w", err)
		}
		b.local = d
		return nil
	}
	newRemote := func() {
		r := c.Provider.Redis
		b.remote = redis.New(redis.Config{
			Addr:                r.Addr,
			Password:            r.Password,
			DB:                  r.DB,
			KeyPrefix:           r.KeyPrefix,
			Caches:              caches,
			InvalidationChannel: r.InvalidationChannel,
		})
	}

	switch c.Provider.Driver {
	case DriverMemory:
		if err := newLocal(); err != nil {
			return nil, err
		}
		b.Driver = b.local
	case DriverRedis:
		newRemote()
		b.Driver = b.remote
	case DriverTiered:
		if err := newLocal(); err != nil {
			return nil, err
		}
		newRemote()
		b.Driver = provider.Tiered(b.local, b.remote, c.Provider.PromoteTTL)
	default:
		return nil, fmt.Errorf("config: unknown driver %q", c.Provider.Driver)
	}

	var facade provider.Facade = provider.NewFacade(b.Driver, provider.WithLogger(log))
	if rp, br := c.RetryPolicy(), c.Breaker(); rp.MaxAttempts > 1 || br != nil {
		facade = provider.Resilient(facade, rp, br)
	}
	b.Facade = facade

	log.Info().
		Str("driver", b.Driver.Name()).
		Strs("caches", caches).
		Msg("cache provider ready")
	return b, nil
}

// Invalidations keeps the local tier in sync with flushes issued by other
// processes. It blocks until ctx is done and returns immediately when the
// backend is not tiered or has no invalidation channel.
func (b *Backend) Invalidations(ctx context.Context) error {
	if b.local == nil || b.remote == nil || b.channel == "" {
		return nil
	}
	err := b.remote.Subscribe(ctx, b.local)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the drivers.
func (b *Backend) Close() error {
	if b.local != nil {
		b.local.Close()
	}
	if b.remote != nil {
		return b.remote.Close()
	}
	return nil
}
