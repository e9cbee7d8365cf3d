// Package provider hides a backing cache behind a uniform facade with a
// closed error taxonomy.
package provider

import (
	"context"
	"time"

	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/policy"
)

// Facade is the uniform contract between the interceptors and a backing
// cache. Implementations translate every driver failure into an *Error.
type Facade interface {
	// Get returns the value stored under k. The boolean reports a hit; a
	// hit may carry a nil value when nil was stored.
	Get(ctx context.Context, k key.Key, m policy.CacheModel) (any, bool, error)
	// Put stores v under k.
	Put(ctx context.Context, k key.Key, m policy.CacheModel, v any) error
	// Remove deletes the entry under k, if any.
	Remove(ctx context.Context, k key.Key, m policy.CacheModel) error
	// Flush empties every cache the model names.
	Flush(ctx context.Context, m policy.Model) error
	// Validate checks at startup that the model can be served.
	Validate(m policy.Model) error
}

// Driver is implemented once per backing cache technology. Cache names are
// the logical names models refer to; keys are already rendered strings.
type Driver interface {
	// Name identifies the driver in logs and errors.
	Name() string
	// Has reports whether the named cache exists.
	Has(cache string) bool
	Get(ctx context.Context, cache, key string) (any, bool, error)
	Set(ctx context.Context, cache, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, cache, key string) error
	// Clear removes every entry of the named cache.
	Clear(ctx context.Context, cache string) error
	// StoresBytes is true when the driver can only hold []byte values.
	StoresBytes() bool
}

// Status is the lifecycle state of a facade.
type Status int32

const (
	// Uninitialized means ValidateAll has not run yet.
	Uninitialized Status = iota
	// Ready means every configured model validated.
	Ready
	// Invalid means at least one configured model failed validation.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Invalid:
		return "invalid"
	default:
		return "uninitialized"
	}
}
