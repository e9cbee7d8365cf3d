package gorawrcache

import (
	"context"
	"fmt"

	"github.com/Keksclan/goRawrCache/invocation"
)

// Wrap turns fn into a function whose calls go through the engine's chain.
// The method identity is derived from fn, so fn should be a method value
// such as repo.Find or a named function.
func Wrap[A, R any](e *Engine, fn func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	return WrapMethod(e, invocation.MethodFor(fn), fn)
}

// WrapMethod is Wrap with an explicit method identity, for closures and
// functions whose runtime name is not meaningful.
func WrapMethod[A, R any](e *Engine, m invocation.Method, fn func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	target := func(ctx context.Context, call *invocation.Call) (any, error) {
		// A nil argument of interface type fails the assertion.
		arg, _ := call.Args[0].(A)
		return fn(ctx, arg)
	}
	return func(ctx context.Context, arg A) (R, error) {
		v, err := e.Invoke(ctx, invocation.NewCall(m, "", arg), target)
		r, ok := v.(R)
		if err != nil {
			return r, err
		}
		if v == nil {
			var zero R
			return zero, nil
		}
		if !ok {
			return r, fmt.Errorf("gorawrcache: %s returned %T, want %T", m.FullName(), v, r)
		}
		return r, nil
	}
}
