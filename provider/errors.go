package provider

import (
	"errors"
	"fmt"
)

// The closed set of failures a Facade reports. Use errors.Is to classify an
// error returned by any Facade method.
var (
	// ErrCacheNotFound means the named backing cache does not exist.
	ErrCacheNotFound = errors.New("cache not found")
	// ErrCacheAccess means the backing cache failed during an operation.
	ErrCacheAccess = errors.New("cache access failed")
	// ErrInvalidModel means a model cannot be served by the active driver,
	// or a value cannot be encoded or decoded for it.
	ErrInvalidModel = errors.New("invalid model")
	// ErrNotStored means the driver accepted a write but declined to keep
	// the value, for example through an admission policy. It is not a
	// failure of the backing cache.
	ErrNotStored = errors.New("value not stored")
)

// Error carries the context of a facade failure. Kind is one of the
// sentinels above; Err is the driver cause, if any.
type Error struct {
	Op    string
	Cache string
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	msg := "provider: " + e.Op
	if e.Cache != "" {
		msg += " " + e.Cache
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap returns the driver cause.
func (e *Error) Unwrap() error { return e.Err }

// classify turns a driver error into an *Error. Drivers may already return
// an *Error or wrap ErrCacheNotFound; anything else is an access failure.
func classify(op, cache string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	kind := ErrCacheAccess
	switch {
	case errors.Is(err, ErrCacheNotFound):
		kind = ErrCacheNotFound
	case errors.Is(err, ErrInvalidModel):
		kind = ErrInvalidModel
	case errors.Is(err, ErrNotStored):
		kind = ErrNotStored
	}
	return &Error{Op: op, Cache: cache, Kind: kind, Err: err}
}

func invalid(op, cache, format string, args ...any) error {
	return &Error{Op: op, Cache: cache, Kind: ErrInvalidModel, Err: fmt.Errorf(format, args...)}
}
