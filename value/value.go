package value

import (
	"github.com/tetratelabs/wazero/api"
)

// Ref is an opaque reference to an entity owned by the managed runtime.
// The zero Ref is the null sentinel.
type Ref uint64

// Null is the runtime's null reference.
const Null Ref = 0

// IsNull reports whether r is the null sentinel.
func (r Ref) IsNull() bool { return r == Null }

// Value is an untagged union of the runtime's scalar kinds and references.
// Only one variant is meaningful; which one is agreed out of band.
type Value struct {
	bits uint64
}

// FromBits wraps raw union bits, e.g. a wazero stack slot.
func FromBits(bits uint64) Value { return Value{bits: bits} }

// Bits returns the raw union bits.
func (v Value) Bits() uint64 { return v.bits }

// IsZero reports whether every bit of v is clear.
func (v Value) IsZero() bool { return v.bits == 0 }

func BoolValue(b bool) Value {
	if b {
		return Value{bits: 1}
	}
	return Value{}
}

func ByteValue(b int8) Value { return Value{bits: api.EncodeI32(int32(b))} }

func CharValue(c uint16) Value { return Value{bits: uint64(c)} }

func ShortValue(s int16) Value { return Value{bits: api.EncodeI32(int32(s))} }

func IntValue(i int32) Value { return Value{bits: api.EncodeI32(i)} }

func LongValue(l int64) Value { return Value{bits: api.EncodeI64(l)} }

func FloatValue(f float32) Value { return Value{bits: api.EncodeF32(f)} }

func DoubleValue(d float64) Value { return Value{bits: api.EncodeF64(d)} }

func ObjValue(r Ref) Value { return Value{bits: uint64(r)} }

// Bool reads the boolean variant. Any non-zero low byte is true.
func (v Value) Bool() bool { return uint8(v.bits) != 0 }

func (v Value) Byte() int8 { return int8(api.DecodeI32(v.bits)) }

func (v Value) Char() uint16 { return uint16(v.bits) }

func (v Value) Short() int16 { return int16(api.DecodeI32(v.bits)) }

func (v Value) Int() int32 { return api.DecodeI32(v.bits) }

func (v Value) Long() int64 { return int64(v.bits) }

func (v Value) Float() float32 { return api.DecodeF32(v.bits) }

func (v Value) Double() float64 { return api.DecodeF64(v.bits) }

func (v Value) Object() Ref { return Ref(v.bits) }

// BitsOf copies the raw bits of vals, in order.
func BitsOf(vals []Value) []uint64 {
	out := make([]uint64, len(vals))
	for i, v := range vals {
		out[i] = v.bits
	}
	return out
}
