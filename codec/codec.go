// Package codec turns cached values into bytes and back, for drivers that
// store bytes and for models that refuse to share live objects.
//
// Every payload starts with a one byte tag:
//
//	0  nil (the null entry)
//	1  gob-encoded Go value
//	2  protobuf message wrapped in google.protobuf.Any
package codec

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

const (
	tagNull  byte = 0
	tagGob   byte = 1
	tagProto byte = 2
)

// ErrMalformed is returned when a payload cannot be decoded.
var ErrMalformed = errors.New("codec: malformed payload")

// envelope lets gob carry the dynamic type of the value.
type envelope struct {
	V any
}

// Codec encodes values with gob, or with protobuf for proto.Message values.
// The zero value is ready to use.
type Codec struct{}

// Default is the shared codec.
var Default = &Codec{}

// Register records the concrete type of value so gob can encode it behind
// an interface. Protobuf messages need no registration.
func Register(value any) {
	gob.Register(value)
}

// Encode serializes v.
func (c *Codec) Encode(v any) ([]byte, error) {
	if v == nil {
		return []byte{tagNull}, nil
	}

	if m, ok := v.(proto.Message); ok {
		a, err := anypb.New(m)
		if err != nil {
			return nil, fmt.Errorf("codec: wrap %T: %w", v, err)
		}
		b, err := proto.MarshalOptions{Deterministic: true}.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("codec: marshal %T: %w", v, err)
		}
		return append([]byte{tagProto}, b...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(tagGob)
	if err := gob.NewEncoder(&buf).Encode(envelope{V: v}); err != nil {
		return nil, fmt.Errorf("codec: encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Decode restores a value produced by Encode.
func (c *Codec) Decode(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, ErrMalformed
	}

	switch b[0] {
	case tagNull:
		return nil, nil
	case tagProto:
		var a anypb.Any
		if err := proto.Unmarshal(b[1:], &a); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		m, err := a.UnmarshalNew()
		if err != nil {
			return nil, fmt.Errorf("codec: unknown message %s: %w", a.GetTypeUrl(), err)
		}
		return m, nil
	case tagGob:
		var e envelope
		if err := gob.NewDecoder(bytes.NewReader(b[1:])).Decode(&e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return e.V, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformed, b[0])
	}
}

// Copy round-trips v through the codec, returning an independent instance.
func (c *Codec) Copy(v any) (any, error) {
	b, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	return c.Decode(b)
}
