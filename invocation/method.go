// Package invocation describes intercepted method calls: the stable identity
// of the invoked method, the per-call descriptor handed to interceptors, and
// the explicit interceptor chain that replaces runtime proxying.
package invocation

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Method is the stable identity of an invoked method. Two Methods denote the
// same method iff their signatures are equal, so overloads (same name,
// different parameter types) and equally named methods on unrelated types are
// always distinct.
type Method struct {
	// DeclaringType is the name of the type (or interface) declaring the
	// method, e.g. "users.Repository".
	DeclaringType string

	// Name is the bare method name, e.g. "FindByID".
	Name string

	// Params lists the parameter type names in declaration order.
	Params []string

	// Void marks methods without a result value. Such methods are never
	// cached.
	Void bool
}

// NewMethod returns the identity of method name declared on declaringType.
func NewMethod(declaringType, name string, params ...string) Method {
	return Method{DeclaringType: declaringType, Name: name, Params: params}
}

// FullName returns "DeclaringType.Name", or just Name for free functions.
func (m Method) FullName() string {
	if m.DeclaringType == "" {
		return m.Name
	}
	return m.DeclaringType + "." + m.Name
}

// Signature renders "DeclaringType.Name(p1,p2)".
func (m Method) Signature() string {
	var b strings.Builder
	b.WriteString(m.FullName())
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p)
	}
	b.WriteByte(')')
	return b.String()
}

// String implements fmt.Stringer.
func (m Method) String() string { return m.Signature() }

// Equal reports whether m and o denote the same method.
func (m Method) Equal(o Method) bool {
	if m.DeclaringType != o.DeclaringType || m.Name != o.Name || len(m.Params) != len(o.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// On returns a copy of m declared on typeName instead.
func (m Method) On(typeName string) Method {
	m.DeclaringType = typeName
	return m
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// MethodFor derives a Method from a Go func value or method value using the
// runtime symbol name and the reflected parameter types. A leading
// context.Context parameter is not part of the identity, and a trailing error
// result does not count as a value result.
//
// MethodFor panics if fn is not a func.
func MethodFor(fn any) Method {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic("invocation: MethodFor requires a func, got " + v.Kind().String())
	}
	t := v.Type()

	declaring, name := splitSymbol(runtime.FuncForPC(v.Pointer()).Name())

	var params []string
	for i := range t.NumIn() {
		in := t.In(i)
		if i == 0 && in == contextType {
			continue
		}
		params = append(params, in.String())
	}

	values := 0
	for i := range t.NumOut() {
		if t.Out(i) != errorType {
			values++
		}
	}

	return Method{DeclaringType: declaring, Name: name, Params: params, Void: values == 0}
}

// splitSymbol turns a runtime symbol such as
// "github.com/acme/users.(*Repo).Find-fm" into ("users.Repo", "Find").
func splitSymbol(sym string) (declaring, name string) {
	sym = strings.TrimSuffix(sym, "-fm")

	// Strip the import path up to the last slash.
	if i := strings.LastIndexByte(sym, '/'); i >= 0 {
		sym = sym[i+1:]
	}

	i := strings.LastIndexByte(sym, '.')
	if i < 0 {
		return "", sym
	}
	declaring, name = sym[:i], sym[i+1:]
	declaring = strings.NewReplacer("(*", "", "(", "", ")", "").Replace(declaring)
	return declaring, name
}
