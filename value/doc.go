// Package value implements the marshaling primitives shared by every layer of
// the bridge.
//
// # Value Union
//
// Value is an untagged 64-bit union holding exactly one of the managed
// runtime's scalar kinds or an object reference:
//
//	v := value.IntValue(42)
//	n := v.Int() // 42
//
// The active variant is implied by the call site. Reading a Value through the
// wrong accessor reinterprets its bits without any check, exactly like the
// runtime's own argument block. The bit layout is the one wazero uses for its
// uint64 call stack, so a Value can be moved onto a WebAssembly stack with
// Bits and back with FromBits.
//
// # Tagged values
//
// Where the call site does not already know the type, use Typed, which pairs a
// Value with its Type and checks every accessor:
//
//	t := value.OfLong(7)
//	n, err := t.AsInt() // type_mismatch error
//
// Box converts ordinary Go values into Typed values:
//
//	int32 -> I   int64 -> J   float32 -> F   float64 -> D
//	bool  -> Z   int8  -> B   uint16  -> C   int16   -> S
//	Ref   -> Ljava/lang/Object;
//
// # Signatures
//
// Method and field descriptors use the runtime's notation:
//
//	sig, err := value.ParseMethodSignature("(ILjava/lang/String;[J)Z")
//	sig.Params[1].Class // "java/lang/String"
//	sig.Return.Kind     // value.Boolean
//
// # Variadic blocks
//
// VaList walks a native variadic argument block in order. Handlers read it
// with the same static knowledge of the signature that a C va_list requires.
package value
