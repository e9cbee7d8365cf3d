package provider

import (
	"context"
	"errors"

	"github.com/Keksclan/goRawrCache/breaker"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/retry"
)

// ResilientFacade retries transient access failures of another Facade and
// stops calling it while its circuit breaker is open. Only ErrCacheAccess
// failures count against the breaker; a missing cache or a bad model is a
// configuration problem, not an outage.
type ResilientFacade struct {
	next  Facade
	retry retry.Config
	br    *breaker.Breaker
}

// Resilient wraps next. A nil cfg.Retryable retries ErrCacheAccess. br may
// be nil to disable the breaker.
func Resilient(next Facade, cfg retry.Config, br *breaker.Breaker) *ResilientFacade {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = retry.On(ErrCacheAccess)
	}
	cfg.Retryable = func(err error) bool {
		return !errors.Is(err, breaker.ErrOpen) && retryable(err)
	}
	return &ResilientFacade{next: next, retry: cfg, br: br}
}

// Get implements Facade.
func (r *ResilientFacade) Get(ctx context.Context, k key.Key, m policy.CacheModel) (any, bool, error) {
	type hit struct {
		v  any
		ok bool
	}
	h, err := retry.Do(ctx, r.retry, func(ctx context.Context) (hit, error) {
		var h hit
		err := r.guard("get", m.Cache, func() error {
			var err error
			h.v, h.ok, err = r.next.Get(ctx, k, m)
			return err
		})
		return h, err
	})
	return h.v, h.ok, err
}

// Put implements Facade.
func (r *ResilientFacade) Put(ctx context.Context, k key.Key, m policy.CacheModel, v any) error {
	return retry.Run(ctx, r.retry, func(ctx context.Context) error {
		return r.guard("put", m.Cache, func() error { return r.next.Put(ctx, k, m, v) })
	})
}

// Remove implements Facade.
func (r *ResilientFacade) Remove(ctx context.Context, k key.Key, m policy.CacheModel) error {
	return retry.Run(ctx, r.retry, func(ctx context.Context) error {
		return r.guard("remove", m.Cache, func() error { return r.next.Remove(ctx, k, m) })
	})
}

// Flush implements Facade.
func (r *ResilientFacade) Flush(ctx context.Context, m policy.Model) error {
	return retry.Run(ctx, r.retry, func(ctx context.Context) error {
		return r.guard("flush", "", func() error { return r.next.Flush(ctx, m) })
	})
}

// Validate implements Facade. Validation is never retried.
func (r *ResilientFacade) Validate(m policy.Model) error {
	return r.next.Validate(m)
}

func (r *ResilientFacade) guard(op, cache string, fn func() error) error {
	if r.br == nil {
		return fn()
	}
	err := r.br.Execute(fn, func(err error) bool { return errors.Is(err, ErrCacheAccess) })
	if errors.Is(err, breaker.ErrOpen) {
		return &Error{Op: op, Cache: cache, Kind: ErrCacheAccess, Err: err}
	}
	return err
}
