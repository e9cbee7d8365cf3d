package policy

import (
	"sync"

	"github.com/Keksclan/goRawrCache/invocation"
)

// Source supplies models for methods and types. It is the only contract the
// Resolver has with configuration, whatever format the configuration was
// authored in.
type Source[M Model] interface {
	// MethodModel returns the model attached to m itself.
	MethodModel(m invocation.Method) (M, bool)
	// TypeModel returns the model attached to every method of the named type.
	TypeModel(typeName string) (M, bool)
	// Models lists every model the source can return, for startup validation.
	Models() []M
}

// Rules is a Source backed by method groups.
//
// Priority rules:
//   - Exact matches beat prefix matches, which beat wildcard matches, which
//     beat regex matches.
//   - Among matches of the same kind the longer match wins.
//   - When two matches have equal kind and length the group that was
//     registered first (stable order) wins.
//
// An exact, prefix or wildcard pattern containing a '.' is matched against
// "Type.Method", any other against the bare method name. A regex matches
// when it matches either.
type Rules[M Model] struct {
	groups []*GroupBuilder[M]
}

// NewRules creates Rules from the supplied group builders. Groups without a
// model are ignored.
func NewRules[M Model](groups ...*GroupBuilder[M]) *Rules[M] {
	r := &Rules[M]{}
	for _, g := range groups {
		if g != nil && g.model != nil {
			r.groups = append(r.groups, g)
		}
	}
	return r
}

// Match finds the best-matching group for m.
func (r *Rules[M]) Match(m invocation.Method) (groupName string, model M, ok bool) {
	bestKind := matchKind(-1)
	bestLen := -1
	full := m.FullName()

	for _, g := range r.groups {
		for _, ru := range g.rules {
			matched, mLen := ru.matchMethod(m.Name, full)
			if !matched {
				continue
			}
			// A lower kind value means higher priority.
			better := bestKind < 0 ||
				ru.kind < bestKind ||
				(ru.kind == bestKind && mLen > bestLen)
			if better {
				bestKind = ru.kind
				bestLen = mLen
				groupName = g.name
				model = *g.model
				ok = true
			}
		}
	}
	return groupName, model, ok
}

// MatchType finds the first group listing typeName.
func (r *Rules[M]) MatchType(typeName string) (groupName string, model M, ok bool) {
	for _, g := range r.groups {
		for _, t := range g.types {
			if t == typeName {
				return g.name, *g.model, true
			}
		}
	}
	return "", model, false
}

// MethodModel implements Source.
func (r *Rules[M]) MethodModel(m invocation.Method) (M, bool) {
	_, model, ok := r.Match(m)
	return model, ok
}

// TypeModel implements Source.
func (r *Rules[M]) TypeModel(typeName string) (M, bool) {
	_, model, ok := r.MatchType(typeName)
	return model, ok
}

// Models implements Source.
func (r *Rules[M]) Models() []M {
	out := make([]M, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, *g.model)
	}
	return out
}

// Annotations is a Source of models attached directly to method identities
// and type names, the way attribute metadata is attached in code.
type Annotations[M Model] struct {
	mu      sync.RWMutex
	methods map[string]M
	types   map[string]M
	order   []M
}

// NewAnnotations returns an empty annotation set.
func NewAnnotations[M Model]() *Annotations[M] {
	return &Annotations[M]{
		methods: make(map[string]M),
		types:   make(map[string]M),
	}
}

// AnnotateMethod attaches model to the exact method identity.
func (a *Annotations[M]) AnnotateMethod(m invocation.Method, model M) *Annotations[M] {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.methods[m.Signature()] = model
	a.order = append(a.order, model)
	return a
}

// AnnotateType attaches model to every method of typeName.
func (a *Annotations[M]) AnnotateType(typeName string, model M) *Annotations[M] {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.types[typeName] = model
	a.order = append(a.order, model)
	return a
}

// MethodModel implements Source.
func (a *Annotations[M]) MethodModel(m invocation.Method) (M, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	model, ok := a.methods[m.Signature()]
	return model, ok
}

// TypeModel implements Source.
func (a *Annotations[M]) TypeModel(typeName string) (M, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	model, ok := a.types[typeName]
	return model, ok
}

// Models implements Source.
func (a *Annotations[M]) Models() []M {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]M, len(a.order))
	copy(out, a.order)
	return out
}

// Merge combines sources. For every lookup the first source that answers
// wins.
func Merge[M Model](sources ...Source[M]) Source[M] {
	return merged[M](sources)
}

type merged[M Model] []Source[M]

func (s merged[M]) MethodModel(m invocation.Method) (M, bool) {
	for _, src := range s {
		if model, ok := src.MethodModel(m); ok {
			return model, true
		}
	}
	var zero M
	return zero, false
}

func (s merged[M]) TypeModel(typeName string) (M, bool) {
	for _, src := range s {
		if model, ok := src.TypeModel(typeName); ok {
			return model, true
		}
	}
	var zero M
	return zero, false
}

func (s merged[M]) Models() []M {
	var out []M
	for _, src := range s {
		out = append(out, src.Models()...)
	}
	return out
}
