// Package interceptors provides the caching and flushing interceptors and
// their adapters.
package interceptors

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/metrics"
	"github.com/Keksclan/goRawrCache/policy"
)

// FlushErrorPolicy decides what a failed before-execution flush means for
// the call.
type FlushErrorPolicy int

const (
	// ProceedOnFlushError reports the failure and still invokes the target.
	ProceedOnFlushError FlushErrorPolicy = iota
	// AbortOnFlushError returns the failure without invoking the target.
	AbortOnFlushError
)

// FlushErrorHook is told about every failed flush.
type FlushErrorHook func(ctx context.Context, call *invocation.Call, m policy.FlushModel, err error)

type options struct {
	keys         key.Generator
	listeners    []Listener
	log          zerolog.Logger
	metrics      *metrics.Recorder
	singleFlight bool
	flushPolicy  FlushErrorPolicy
	onFlushError FlushErrorHook
}

// Option configures Caching and Flushing. Options that do not apply to an
// interceptor are ignored by it.
type Option func(*options)

func buildOptions(opts []Option) options {
	o := options{
		keys: key.NewHashCodeGenerator(),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithKeyGenerator replaces the default HashCodeGenerator.
func WithKeyGenerator(g key.Generator) Option {
	return func(o *options) {
		if g != nil {
			o.keys = g
		}
	}
}

// WithListener adds a listener notified after every successful store.
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

// WithSingleFlight makes concurrent misses for the same key share a single
// target invocation.
func WithSingleFlight() Option {
	return func(o *options) { o.singleFlight = true }
}

// WithFlushErrorPolicy sets how a failed before-execution flush is treated.
func WithFlushErrorPolicy(p FlushErrorPolicy) Option {
	return func(o *options) { o.flushPolicy = p }
}

// OnFlushError registers a hook called for every failed flush.
func OnFlushError(h FlushErrorHook) Option {
	return func(o *options) { o.onFlushError = h }
}

func newGroup(enabled bool) *singleflight.Group {
	if !enabled {
		return nil
	}
	return &singleflight.Group{}
}
