package provider

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/codec"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/policy"
)

var errNotValidated = errors.New("facade failed startup validation")

// nullEntry marks a stored nil in drivers that hold live values.
type nullEntry struct{}

// serialized is an encoded value held by a driver that stores live values.
type serialized []byte

// DriverFacade implements Facade over a single Driver. It is safe for
// concurrent use as long as the driver is.
type DriverFacade struct {
	driver Driver
	codec  *codec.Codec
	log    zerolog.Logger
	status atomic.Int32
}

// Option configures a DriverFacade.
type Option func(*DriverFacade)

// WithLogger sets the logger used for debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(f *DriverFacade) { f.log = l }
}

// WithCodec replaces the codec used for byte drivers and serializable models.
func WithCodec(c *codec.Codec) Option {
	return func(f *DriverFacade) {
		if c != nil {
			f.codec = c
		}
	}
}

// NewFacade wraps d.
func NewFacade(d Driver, opts ...Option) *DriverFacade {
	f := &DriverFacade{
		driver: d,
		codec:  codec.Default,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	f.log = f.log.With().Str("driver", d.Name()).Logger()
	return f
}

// Driver returns the wrapped driver.
func (f *DriverFacade) Driver() Driver { return f.driver }

// Status returns the lifecycle state.
func (f *DriverFacade) Status() Status { return Status(f.status.Load()) }

// ValidateAll validates every model and moves the facade to Ready, or to
// Invalid when any model fails. An Invalid facade rejects all operations.
func (f *DriverFacade) ValidateAll(models ...policy.Model) error {
	var errs []error
	for _, m := range models {
		if err := f.Validate(m); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		f.status.Store(int32(Invalid))
		f.log.Error().Err(err).Int("models", len(models)).Msg("cache provider validation failed")
		return err
	}
	f.status.Store(int32(Ready))
	f.log.Debug().Int("models", len(models)).Msg("cache provider ready")
	return nil
}

// Validate implements Facade.
func (f *DriverFacade) Validate(m policy.Model) error {
	switch mm := m.(type) {
	case nil:
		return invalid("validate", "", "nil model")
	case policy.CacheModel:
		if mm.TTL < 0 {
			return invalid("validate", mm.Cache, "negative ttl %s", mm.TTL)
		}
	case policy.FlushModel:
		if len(mm.Caches) == 0 {
			return invalid("validate", "", "flush model names no cache")
		}
	}
	for _, name := range m.CacheNames() {
		if name == "" {
			return invalid("validate", "", "empty cache name")
		}
		if !f.driver.Has(name) {
			return &Error{Op: "validate", Cache: name, Kind: ErrCacheNotFound}
		}
	}
	return nil
}

// Get implements Facade.
func (f *DriverFacade) Get(ctx context.Context, k key.Key, m policy.CacheModel) (any, bool, error) {
	if err := f.check("get", m.Cache); err != nil {
		return nil, false, err
	}
	raw, ok, err := f.driver.Get(ctx, m.Cache, k.String())
	if err != nil {
		return nil, false, classify("get", m.Cache, err)
	}
	if !ok {
		f.log.Debug().Str("cache", m.Cache).Stringer("key", k).Msg("cache miss")
		return nil, false, nil
	}
	v, err := f.unwrap(raw)
	if err != nil {
		// Codec failures are deterministic; retrying or tripping a breaker
		// would not help.
		return nil, false, &Error{Op: "get", Cache: m.Cache, Kind: ErrInvalidModel, Err: err}
	}
	f.log.Debug().Str("cache", m.Cache).Stringer("key", k).Msg("cache hit")
	return v, true, nil
}

// Put implements Facade.
func (f *DriverFacade) Put(ctx context.Context, k key.Key, m policy.CacheModel, v any) error {
	if err := f.check("put", m.Cache); err != nil {
		return err
	}
	stored, err := f.wrap(v, m)
	if err != nil {
		return &Error{Op: "put", Cache: m.Cache, Kind: ErrInvalidModel, Err: err}
	}
	if err := f.driver.Set(ctx, m.Cache, k.String(), stored, m.TTL); err != nil {
		return classify("put", m.Cache, err)
	}
	f.log.Debug().Str("cache", m.Cache).Stringer("key", k).Dur("ttl", m.TTL).Msg("cache store")
	return nil
}

// Remove implements Facade.
func (f *DriverFacade) Remove(ctx context.Context, k key.Key, m policy.CacheModel) error {
	if err := f.check("remove", m.Cache); err != nil {
		return err
	}
	if err := f.driver.Delete(ctx, m.Cache, k.String()); err != nil {
		return classify("remove", m.Cache, err)
	}
	f.log.Debug().Str("cache", m.Cache).Stringer("key", k).Msg("cache remove")
	return nil
}

// Flush implements Facade. Every named cache is attempted; the failures are
// joined.
func (f *DriverFacade) Flush(ctx context.Context, m policy.Model) error {
	var errs []error
	for _, name := range m.CacheNames() {
		if err := f.check("flush", name); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := f.driver.Clear(ctx, name); err != nil {
			errs = append(errs, classify("flush", name, err))
			continue
		}
		f.log.Debug().Str("cache", name).Msg("cache flush")
	}
	return errors.Join(errs...)
}

func (f *DriverFacade) check(op, cache string) error {
	if f.Status() == Invalid {
		return &Error{Op: op, Cache: cache, Kind: ErrInvalidModel, Err: errNotValidated}
	}
	if !f.driver.Has(cache) {
		return &Error{Op: op, Cache: cache, Kind: ErrCacheNotFound}
	}
	return nil
}

func (f *DriverFacade) wrap(v any, m policy.CacheModel) (any, error) {
	if f.driver.StoresBytes() {
		return f.codec.Encode(v)
	}
	if v == nil {
		return nullEntry{}, nil
	}
	if m.RequireSerializable {
		b, err := f.codec.Encode(v)
		if err != nil {
			return nil, err
		}
		return serialized(b), nil
	}
	return v, nil
}

func (f *DriverFacade) unwrap(raw any) (any, error) {
	switch x := raw.(type) {
	case nullEntry:
		return nil, nil
	case serialized:
		return f.codec.Decode(x)
	case []byte:
		if f.driver.StoresBytes() {
			return f.codec.Decode(x)
		}
		return x, nil
	default:
		return raw, nil
	}
}
