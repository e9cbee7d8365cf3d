package policy

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Keksclan/goRawrCache/invocation"
)

// countingSource counts how often the resolver scans it.
type countingSource struct {
	Source[CacheModel]
	methodCalls atomic.Int64
}

func (c *countingSource) MethodModel(m invocation.Method) (CacheModel, bool) {
	c.methodCalls.Add(1)
	return c.Source.MethodModel(m)
}

var (
	ifaceFind = invocation.NewMethod("users.Finder", "Find", "int")
	implType  = "users.Repo"
)

func TestResolver_MemoizesFound(t *testing.T) {
	src := &countingSource{Source: NewAnnotations[CacheModel]().
		AnnotateMethod(ifaceFind, CacheModel{Cache: "users"})}
	r := NewResolver[CacheModel](src)

	for range 10 {
		m, ok := r.Resolve(ifaceFind, "users.Finder")
		if !ok || m.Cache != "users" {
			t.Fatalf("got %v %v", m, ok)
		}
	}
	if got := r.Scans(); got != 1 {
		t.Fatalf("scanned %d times, want 1", got)
	}
	if got := src.methodCalls.Load(); got != 1 {
		t.Fatalf("source consulted %d times, want 1", got)
	}
}

func TestResolver_MemoizesNotFound(t *testing.T) {
	src := &countingSource{Source: NewAnnotations[CacheModel]()}
	r := NewResolver[CacheModel](src)

	for range 5 {
		if _, ok := r.Resolve(ifaceFind, implType); ok {
			t.Fatal("expected no model")
		}
	}
	if got := r.Scans(); got != 1 {
		t.Fatalf("scanned %d times, want 1", got)
	}
	if res := r.Peek(ifaceFind, implType); res.State != NotFound {
		t.Fatalf("got state %v, want %v", res.State, NotFound)
	}
}

func TestResolver_PeekUnresolved(t *testing.T) {
	r := NewResolver[CacheModel](NewAnnotations[CacheModel]())
	if res := r.Peek(ifaceFind, implType); res.State != Unresolved {
		t.Fatalf("got state %v, want %v", res.State, Unresolved)
	}
	if r.Scans() != 0 {
		t.Fatal("Peek must not scan")
	}
}

func TestResolver_TargetIsPartOfTheKey(t *testing.T) {
	r := NewResolver[CacheModel](NewAnnotations[CacheModel]())
	r.Resolve(ifaceFind, "a.Impl")
	r.Resolve(ifaceFind, "b.Impl")
	if got := r.Scans(); got != 2 {
		t.Fatalf("scanned %d times, want 2", got)
	}
}

func TestResolver_Order(t *testing.T) {
	override := ifaceFind.On(implType)

	cases := []struct {
		name string
		src  *Annotations[CacheModel]
		want string
	}{
		{
			name: "override method",
			src: NewAnnotations[CacheModel]().
				AnnotateMethod(override, CacheModel{Cache: "1"}).
				AnnotateType(implType, CacheModel{Cache: "2"}).
				AnnotateMethod(ifaceFind, CacheModel{Cache: "3"}).
				AnnotateType("users.Finder", CacheModel{Cache: "4"}),
			want: "1",
		},
		{
			name: "override type",
			src: NewAnnotations[CacheModel]().
				AnnotateType(implType, CacheModel{Cache: "2"}).
				AnnotateMethod(ifaceFind, CacheModel{Cache: "3"}).
				AnnotateType("users.Finder", CacheModel{Cache: "4"}),
			want: "2",
		},
		{
			name: "original method",
			src: NewAnnotations[CacheModel]().
				AnnotateMethod(ifaceFind, CacheModel{Cache: "3"}).
				AnnotateType("users.Finder", CacheModel{Cache: "4"}),
			want: "3",
		},
		{
			name: "original type",
			src: NewAnnotations[CacheModel]().
				AnnotateType("users.Finder", CacheModel{Cache: "4"}),
			want: "4",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewResolver[CacheModel](c.src)
			m, ok := r.Resolve(ifaceFind, implType)
			if !ok {
				t.Fatal("expected a model")
			}
			if m.Cache != c.want {
				t.Fatalf("got %q, want %q", m.Cache, c.want)
			}
		})
	}
}

func TestResolver_RegistryOverrides(t *testing.T) {
	reg := invocation.NewRegistry()
	reg.Declare(implType, invocation.NewMethod("", "Find", "int"))

	src := NewAnnotations[CacheModel]().AnnotateType(implType, CacheModel{Cache: "impl"})
	r := NewResolver[CacheModel](src, WithOverrides(reg))

	if m, ok := r.Resolve(ifaceFind, implType); !ok || m.Cache != "impl" {
		t.Fatalf("got %v %v", m, ok)
	}

	// The registry knows no such overload on the target, so the type-level
	// model of the target does not apply.
	other := invocation.NewMethod("users.Finder", "Find", "string")
	if _, ok := r.Resolve(other, implType); ok {
		t.Fatal("undeclared overload must not pick up the target type model")
	}
}

func TestResolver_OnScan(t *testing.T) {
	var found, missed int
	r := NewResolver[FlushModel](
		NewAnnotations[FlushModel]().AnnotateMethod(ifaceFind, FlushModel{Caches: []string{"c"}}),
		OnScan(func(ok bool) {
			if ok {
				found++
			} else {
				missed++
			}
		}),
	)

	r.Resolve(ifaceFind, "")
	r.Resolve(ifaceFind, "")
	r.Resolve(invocation.NewMethod("x.Y", "Z"), "")

	if found != 1 || missed != 1 {
		t.Fatalf("found=%d missed=%d", found, missed)
	}
}

func TestResolver_ConcurrentLookups(t *testing.T) {
	r := NewResolver[CacheModel](NewAnnotations[CacheModel]().
		AnnotateMethod(ifaceFind, CacheModel{Cache: "users"}))

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if m, ok := r.Resolve(ifaceFind, ""); !ok || m.Cache != "users" {
					t.Errorf("got %v %v", m, ok)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Racing first lookups may scan more than once, never more than once
	// per goroutine.
	if got := r.Scans(); got < 1 || got > 32 {
		t.Fatalf("unexpected scan count %d", got)
	}
}
