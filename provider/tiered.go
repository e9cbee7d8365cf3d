package provider

import (
	"context"
	"errors"
	"time"
)

// TieredDriver combines a fast local driver (L1) with a shared one (L2).
// Reads check L1 first, then L2; L2 hits are promoted into L1. Writes,
// deletes and clears go to both layers, L2 first.
type TieredDriver struct {
	l1, l2 Driver

	// promoteTTL bounds how long a promoted entry lives in L1, since the
	// remaining L2 TTL is unknown.
	promoteTTL time.Duration
}

// Tiered creates a two-level driver. promoteTTL caps the lifetime of values
// copied from L2 into L1; zero keeps them until evicted.
func Tiered(l1, l2 Driver, promoteTTL time.Duration) *TieredDriver {
	return &TieredDriver{l1: l1, l2: l2, promoteTTL: promoteTTL}
}

// Name implements Driver.
func (t *TieredDriver) Name() string { return "tiered(" + t.l1.Name() + "+" + t.l2.Name() + ")" }

// Has implements Driver. A cache must exist in both layers.
func (t *TieredDriver) Has(cache string) bool { return t.l1.Has(cache) && t.l2.Has(cache) }

// StoresBytes implements Driver. Values are encoded when either layer needs
// bytes so both layers hold the same representation.
func (t *TieredDriver) StoresBytes() bool { return t.l1.StoresBytes() || t.l2.StoresBytes() }

// Get implements Driver.
func (t *TieredDriver) Get(ctx context.Context, cache, key string) (any, bool, error) {
	// L1
	if v, ok, err := t.l1.Get(ctx, cache, key); err != nil || ok {
		return v, ok, err
	}
	// L2
	v, ok, err := t.l2.Get(ctx, cache, key)
	if err != nil || !ok {
		return nil, false, err
	}
	// Promote to L1. A failed promotion still serves the L2 value.
	_ = t.l1.Set(ctx, cache, key, v, t.promoteTTL)
	return v, true, nil
}

// Set implements Driver.
func (t *TieredDriver) Set(ctx context.Context, cache, key string, value any, ttl time.Duration) error {
	if err := t.l2.Set(ctx, cache, key, value, ttl); err != nil {
		return err
	}
	// L2 holds the value, so an L1 drop is not a lost store.
	if err := t.l1.Set(ctx, cache, key, value, ttl); err != nil && !errors.Is(err, ErrNotStored) {
		return err
	}
	return nil
}

// Delete implements Driver.
func (t *TieredDriver) Delete(ctx context.Context, cache, key string) error {
	return errors.Join(t.l2.Delete(ctx, cache, key), t.l1.Delete(ctx, cache, key))
}

// Clear implements Driver.
func (t *TieredDriver) Clear(ctx context.Context, cache string) error {
	return errors.Join(t.l2.Clear(ctx, cache), t.l1.Clear(ctx, cache))
}
