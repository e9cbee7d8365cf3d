// Package key derives compact, comparable cache keys from intercepted calls.
package key

import (
	"strconv"

	"github.com/Keksclan/goRawrCache/invocation"
)

// Key identifies one (method, arguments) invocation. Equality covers both
// fields, which makes accidental collisions far less likely than with the
// hash alone. Key is comparable and can be used as a Go map key.
type Key struct {
	Hash     int32
	Checksum int64
}

// String returns the canonical driver key "<hash>:<checksum>".
func (k Key) String() string {
	buf := make([]byte, 0, 32)
	buf = strconv.AppendInt(buf, int64(k.Hash), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, k.Checksum, 10)
	return string(buf)
}

// Generator computes the Key of a call. Implementations must be
// deterministic within a process and sensitive to argument order.
type Generator interface {
	Generate(call *invocation.Call) Key
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(call *invocation.Call) Key

// Generate implements Generator.
func (f GeneratorFunc) Generate(call *invocation.Call) Key { return f(call) }

// Hasher may be implemented by argument types that know how to hash
// themselves. It takes precedence over the built-in hashing rules.
type Hasher interface {
	HashCode() int32
}
