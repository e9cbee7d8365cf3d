package key

import (
	"math"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/proto"

	"github.com/Keksclan/goRawrCache/invocation"
)

const (
	initialHash = 17
	multiplier  = 37

	// elementMultiplier folds slice and struct elements, mirroring the
	// classic list hash.
	elementMultiplier = 31

	trueHash  = 1231
	falseHash = 1237
)

// HashCodeGenerator folds the method identity and the hash of every argument
// into a (hash, checksum) pair.
//
// With Deep set, composite arguments (pointers, slices, maps, structs) are
// hashed by content, so two distinct maps holding the same entries produce
// the same key. Without it they hash by identity, which is cheaper but only
// correct when callers pass the very same instances.
type HashCodeGenerator struct {
	Deep bool
}

// NewHashCodeGenerator returns a generator hashing arguments by content.
func NewHashCodeGenerator() *HashCodeGenerator {
	return &HashCodeGenerator{Deep: true}
}

// Generate implements Generator.
func (g *HashCodeGenerator) Generate(call *invocation.Call) Key {
	hash := int32(initialHash)
	var checksum int64

	add := func(h int32) {
		hash = hash*multiplier + h
		checksum += int64(h)
	}

	add(fold(xxhash.Sum64String(call.Method.Signature())))
	for _, arg := range call.Args {
		add(g.hashValue(arg))
	}

	return Key{Hash: hash, Checksum: checksum}
}

// hashValue returns the hash of a single argument. The argument's dynamic
// type is folded in, so int(5) and uint(5), or "a" and []byte("a"), differ.
// Nil arguments hash as zero whatever their type.
func (g *HashCodeGenerator) hashValue(v any) int32 {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		if rv.IsNil() {
			return 0
		}
	}
	h := &hasher{deep: g.Deep}
	return h.value(rv)*multiplier + fold(xxhash.Sum64String(rv.Type().String()))
}

// fold reduces a 64-bit value to 32 bits keeping entropy from both halves.
func fold(v uint64) int32 {
	return int32(v ^ (v >> 32))
}

// hasher carries the per-argument traversal state.
type hasher struct {
	deep    bool
	visited map[uintptr]struct{}
}

func (h *hasher) value(v reflect.Value) int32 {
	if !v.IsValid() {
		return 0
	}

	if v.CanInterface() {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return 0
		}
		switch x := v.Interface().(type) {
		case Hasher:
			return x.HashCode()
		case proto.Message:
			b, err := proto.MarshalOptions{Deterministic: true}.Marshal(x)
			if err == nil {
				return fold(xxhash.Sum64(b)) ^ fold(xxhash.Sum64String(string(x.ProtoReflect().Descriptor().FullName())))
			}
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return trueHash
		}
		return falseHash
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fold(uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fold(v.Uint())
	case reflect.Float32, reflect.Float64:
		return fold(math.Float64bits(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		return fold(math.Float64bits(real(c)))*elementMultiplier + fold(math.Float64bits(imag(c)))
	case reflect.String:
		return fold(xxhash.Sum64String(v.String()))
	case reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return h.value(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			return 0
		}
		if !h.deep {
			return fold(uint64(v.Pointer()))
		}
		if !h.enter(v.Pointer()) {
			return 0
		}
		defer h.leave(v.Pointer())
		return h.value(v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			return 0
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return fold(xxhash.Sum64(v.Bytes()))
		}
		if !h.deep {
			return fold(uint64(v.Pointer()))*elementMultiplier + int32(v.Len())
		}
		if !h.enter(v.Pointer()) {
			return 0
		}
		defer h.leave(v.Pointer())
		return h.sequence(v)
	case reflect.Array:
		return h.sequence(v)
	case reflect.Map:
		if v.IsNil() {
			return 0
		}
		if !h.deep {
			return fold(uint64(v.Pointer()))
		}
		if !h.enter(v.Pointer()) {
			return 0
		}
		defer h.leave(v.Pointer())
		// Order-independent: the sum of per-entry hashes.
		var sum int32
		iter := v.MapRange()
		for iter.Next() {
			sum += h.value(iter.Key()) ^ h.value(iter.Value())
		}
		return sum
	case reflect.Struct:
		result := int32(1)
		for i := range v.NumField() {
			result = result*elementMultiplier + h.value(v.Field(i))
		}
		return result
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fold(uint64(v.Pointer()))
	default:
		return 0
	}
}

func (h *hasher) sequence(v reflect.Value) int32 {
	result := int32(1)
	for i := range v.Len() {
		result = result*elementMultiplier + h.value(v.Index(i))
	}
	return result
}

// enter marks p as being on the current traversal path and reports whether
// it was not already there. A reference back into the path hashes as zero,
// which breaks cycles.
func (h *hasher) enter(p uintptr) bool {
	if h.visited == nil {
		h.visited = make(map[uintptr]struct{})
	}
	if _, seen := h.visited[p]; seen {
		return false
	}
	h.visited[p] = struct{}{}
	return true
}

func (h *hasher) leave(p uintptr) {
	delete(h.visited, p)
}
