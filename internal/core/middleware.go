// Package core assembles the engine's interceptor chain.
package core

import (
	"cmp"
	"slices"

	"github.com/Keksclan/goRawrCache/invocation"
)

// Built-in chain positions. Lower values run first, i.e. further out.
const (
	OrderRecovery  = 100
	OrderRequestID = 150
	OrderTracing   = 200
	OrderFlushing  = 300
	OrderCaching   = 400
)

// middleware is a single interceptor with a deterministic execution order.
type middleware struct {
	Interceptor invocation.Interceptor
	Order       int
}

// MiddlewareBuilder collects interceptors and produces them sorted, ready
// for chaining.
type MiddlewareBuilder struct {
	entries []middleware
}

// Add registers ic at the given order. A nil interceptor is ignored.
func (b *MiddlewareBuilder) Add(order int, ic invocation.Interceptor) {
	if ic == nil {
		return
	}
	b.entries = append(b.entries, middleware{Interceptor: ic, Order: order})
}

// Len reports the number of registered interceptors.
func (b *MiddlewareBuilder) Len() int { return len(b.entries) }

// Build sorts the collected interceptors by Order (stable, so equal orders
// keep registration order) and returns them.
func (b *MiddlewareBuilder) Build() []invocation.Interceptor {
	sorted := slices.Clone(b.entries)
	slices.SortStableFunc(sorted, func(a, c middleware) int {
		return cmp.Compare(a.Order, c.Order)
	})

	out := make([]invocation.Interceptor, 0, len(sorted))
	for _, m := range sorted {
		out = append(out, m.Interceptor)
	}
	return out
}

// Chain builds and composes the interceptors into one. It returns nil when
// nothing was registered.
func (b *MiddlewareBuilder) Chain() invocation.Interceptor {
	return invocation.Chain(b.Build())
}
