package invocation

import (
	"reflect"
	"sync"
)

// Overrides finds the most specific implementation of a method on a runtime
// target type, e.g. the concrete method a type provides for an interface
// method it satisfies.
type Overrides interface {
	// Override returns the method that target actually dispatches m to. The
	// boolean is false when target declares no such method.
	Override(m Method, target string) (Method, bool)
}

// Registry is an Overrides backed by explicitly declared method sets. It is
// safe for concurrent use; declarations are expected at startup.
type Registry struct {
	mu    sync.RWMutex
	types map[string]map[string]Method // type name -> overload key -> method
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]map[string]Method)}
}

// overloadKey identifies a method within one type: name plus parameters.
func overloadKey(m Method) string {
	return m.On("").Signature()
}

// Declare records that typeName declares the given methods. The
// DeclaringType of each method is replaced by typeName.
func (r *Registry) Declare(typeName string, methods ...Method) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.types[typeName]
	if !ok {
		set = make(map[string]Method)
		r.types[typeName] = set
	}
	for _, m := range methods {
		m = m.On(typeName)
		set[overloadKey(m)] = m
	}
}

// Register declares every exported method of t under t.String(). For a
// non-pointer named type the method set of *t is used as well, so methods
// with pointer receivers are included.
func (r *Registry) Register(t reflect.Type) {
	name := t.String()
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		t = reflect.PointerTo(t)
	}

	methods := make([]Method, 0, t.NumMethod())
	for i := range t.NumMethod() {
		rm := t.Method(i)
		ft := rm.Type
		start := 1 // skip the receiver
		if t.Kind() == reflect.Interface {
			start = 0
		}

		var params []string
		for j := start; j < ft.NumIn(); j++ {
			in := ft.In(j)
			if j == start && in == contextType {
				continue
			}
			params = append(params, in.String())
		}

		values := 0
		for j := range ft.NumOut() {
			if ft.Out(j) != errorType {
				values++
			}
		}
		methods = append(methods, Method{Name: rm.Name, Params: params, Void: values == 0})
	}
	r.Declare(name, methods...)
}

// Override implements Overrides.
func (r *Registry) Override(m Method, target string) (Method, bool) {
	if target == "" || target == m.DeclaringType {
		return m, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.types[target]
	if !ok {
		return m, false
	}
	o, ok := set[overloadKey(m)]
	if !ok {
		return m, false
	}
	o.Void = m.Void
	return o, true
}

// SameName is an Overrides that assumes every target type overrides every
// method it is called with. It suits targets whose method sets are not
// registered but whose per-type metadata should still win.
type SameName struct{}

// Override implements Overrides.
func (SameName) Override(m Method, target string) (Method, bool) {
	if target == "" || target == m.DeclaringType {
		return m, false
	}
	return m.On(target), true
}
