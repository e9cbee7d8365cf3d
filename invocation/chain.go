package invocation

import "context"

// Call is the per-invocation descriptor handed to interceptors. It is
// created fresh for every call and owned by the chain for the duration of
// that call.
type Call struct {
	// Method is the identity of the invoked method.
	Method Method

	// Target is the runtime type name of the receiver. It may differ from
	// Method.DeclaringType when the method is invoked through an interface.
	Target string

	// Args holds the call arguments in order.
	Args []any
}

// NewCall builds a Call for m on target with the given arguments. When target
// is empty the declaring type of m is used.
func NewCall(m Method, target string, args ...any) *Call {
	if target == "" {
		target = m.DeclaringType
	}
	return &Call{Method: m, Target: target, Args: args}
}

// Invoker runs the rest of the chain, ending with the target method.
type Invoker func(ctx context.Context, call *Call) (any, error)

// Interceptor wraps an Invoker with pre/post behaviour. Implementations call
// next to proceed and must return the target's error unchanged unless they
// are explicitly in the business of translating it.
type Interceptor func(ctx context.Context, call *Call, next Invoker) (any, error)

// Chain composes interceptors into a single one. Interceptors execute in the
// order they appear in the slice, i.e. Chain([A, B])(…, h) => A(B(h)).
func Chain(interceptors []Interceptor) Interceptor {
	switch len(interceptors) {
	case 0:
		return nil
	case 1:
		return interceptors[0]
	}

	return func(ctx context.Context, call *Call, target Invoker) (any, error) {
		curr := target
		for i := len(interceptors) - 1; i > 0; i-- {
			next := curr
			ic := interceptors[i]
			curr = func(ctx context.Context, call *Call) (any, error) {
				return ic(ctx, call, next)
			}
		}
		return interceptors[0](ctx, call, curr)
	}
}

// Wrap applies the interceptor chain to target and returns the wrapped
// Invoker.
func Wrap(target Invoker, interceptors ...Interceptor) Invoker {
	ic := Chain(interceptors)
	if ic == nil {
		return target
	}
	return func(ctx context.Context, call *Call) (any, error) {
		return ic(ctx, call, target)
	}
}
