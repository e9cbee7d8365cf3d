package policy

import (
	"sync"
	"sync/atomic"

	"github.com/Keksclan/goRawrCache/invocation"
)

// State is the outcome of a resolution.
type State uint8

const (
	// Unresolved means the pair has not been looked up yet.
	Unresolved State = iota
	// Found means a model applies.
	Found
	// NotFound means no model applies. It is memoized like Found.
	NotFound
)

func (s State) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	default:
		return "unresolved"
	}
}

// Resolution is the memoized result for one (target, method) pair.
type Resolution[M Model] struct {
	State State
	Model M
}

// ResolverOption configures a Resolver.
type ResolverOption func(*resolverOptions)

type resolverOptions struct {
	overrides invocation.Overrides
	onScan    func(found bool)
}

// WithOverrides sets how interface methods are mapped to the concrete
// method on a target type. Defaults to invocation.SameName.
func WithOverrides(o invocation.Overrides) ResolverOption {
	return func(opts *resolverOptions) {
		if o != nil {
			opts.overrides = o
		}
	}
}

// OnScan registers a hook called after every underlying source scan.
func OnScan(fn func(found bool)) ResolverOption {
	return func(opts *resolverOptions) { opts.onScan = fn }
}

type resolutionKey struct {
	target    string
	signature string
}

// Resolver maps (method, target type) pairs to models and remembers the
// answer, including the absence of one. Resolution is a pure function of the
// source, so two goroutines racing on the same pair may both scan; either
// write is equivalent.
type Resolver[M Model] struct {
	source    Source[M]
	overrides invocation.Overrides
	onScan    func(found bool)

	resolved sync.Map // resolutionKey -> Resolution[M]
	scans    atomic.Int64
}

// NewResolver creates a Resolver over source.
func NewResolver[M Model](source Source[M], opts ...ResolverOption) *Resolver[M] {
	o := resolverOptions{overrides: invocation.SameName{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver[M]{
		source:    source,
		overrides: o.overrides,
		onScan:    o.onScan,
	}
}

// Source returns the underlying source.
func (r *Resolver[M]) Source() Source[M] { return r.source }

// Resolve returns the model for m invoked on target.
func (r *Resolver[M]) Resolve(m invocation.Method, target string) (M, bool) {
	res := r.Lookup(m, target)
	return res.Model, res.State == Found
}

// Lookup returns the memoized resolution, computing it on first use.
//
// Resolution order, first hit wins:
//  1. the most specific override of m on target;
//  2. the declaring type of that override;
//  3. m itself, when step 1 picked a different method;
//  4. the declaring type of m.
func (r *Resolver[M]) Lookup(m invocation.Method, target string) Resolution[M] {
	k := resolutionKey{target: target, signature: m.Signature()}
	if v, ok := r.resolved.Load(k); ok {
		return v.(Resolution[M])
	}

	res := r.scan(m, target)
	r.resolved.Store(k, res)
	return res
}

// Peek returns the memoized resolution without computing it.
func (r *Resolver[M]) Peek(m invocation.Method, target string) Resolution[M] {
	v, ok := r.resolved.Load(resolutionKey{target: target, signature: m.Signature()})
	if !ok {
		return Resolution[M]{State: Unresolved}
	}
	return v.(Resolution[M])
}

// Scans returns how many times the source has been scanned.
func (r *Resolver[M]) Scans() int64 { return r.scans.Load() }

func (r *Resolver[M]) scan(m invocation.Method, target string) Resolution[M] {
	r.scans.Add(1)
	res := r.find(m, target)
	if r.onScan != nil {
		r.onScan(res.State == Found)
	}
	return res
}

func (r *Resolver[M]) find(m invocation.Method, target string) Resolution[M] {
	specific := m
	if o, ok := r.overrides.Override(m, target); ok {
		specific = o
	}

	if model, ok := r.source.MethodModel(specific); ok {
		return Resolution[M]{State: Found, Model: model}
	}
	if model, ok := r.source.TypeModel(specific.DeclaringType); ok {
		return Resolution[M]{State: Found, Model: model}
	}
	if !specific.Equal(m) {
		if model, ok := r.source.MethodModel(m); ok {
			return Resolution[M]{State: Found, Model: model}
		}
		if model, ok := r.source.TypeModel(m.DeclaringType); ok {
			return Resolution[M]{State: Found, Model: model}
		}
	}
	return Resolution[M]{State: NotFound}
}
