package wasmvm

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/vmbridge/value"
)

// defaultType maps a wasm value type to its descriptor type.
func defaultType(vt api.ValueType) (value.Type, error) {
	switch vt {
	case api.ValueTypeI32:
		return value.TypeInt, nil
	case api.ValueTypeI64:
		return value.TypeLong, nil
	case api.ValueTypeF32:
		return value.TypeFloat, nil
	case api.ValueTypeF64:
		return value.TypeDouble, nil
	}
	return value.Type{}, fmt.Errorf("wasm type %s has no descriptor", api.ValueTypeName(vt))
}

// wasmType is the wasm value type that carries t. Refs travel as i64.
func wasmType(t value.Type) api.ValueType {
	switch t.ValueKind() {
	case value.Boolean, value.Byte, value.Char, value.Short, value.Int:
		return api.ValueTypeI32
	case value.Float:
		return api.ValueTypeF32
	case value.Double:
		return api.ValueTypeF64
	}
	return api.ValueTypeI64
}

// defaultSignature derives a descriptor from wasm parameter and result types.
func defaultSignature(params, results []api.ValueType) (value.MethodSignature, error) {
	var ms value.MethodSignature
	for _, p := range params {
		t, err := defaultType(p)
		if err != nil {
			return ms, err
		}
		ms.Params = append(ms.Params, t)
	}
	switch len(results) {
	case 0:
		ms.Return = value.TypeVoid
	case 1:
		t, err := defaultType(results[0])
		if err != nil {
			return ms, err
		}
		ms.Return = t
	default:
		return ms, fmt.Errorf("%d results", len(results))
	}
	return ms, nil
}

// resolveSignature parses desc, or derives one when desc is empty, and
// checks it against the wasm function type.
func resolveSignature(desc string, params, results []api.ValueType) (value.MethodSignature, error) {
	if desc == "" {
		return defaultSignature(params, results)
	}
	ms, err := value.ParseMethodSignature(desc)
	if err != nil {
		return ms, err
	}
	if len(ms.Params) != len(params) {
		return ms, fmt.Errorf("descriptor %s takes %d parameters, wasm function takes %d", desc, len(ms.Params), len(params))
	}
	for i, p := range ms.Params {
		if wasmType(p) != params[i] {
			return ms, fmt.Errorf("parameter %d: %s cannot travel as %s", i, p, api.ValueTypeName(params[i]))
		}
	}
	if ms.Return.Kind == value.Void {
		if len(results) != 0 {
			return ms, fmt.Errorf("descriptor %s returns void, wasm function returns %d values", desc, len(results))
		}
		return ms, nil
	}
	if len(results) != 1 || wasmType(ms.Return) != results[0] {
		return ms, fmt.Errorf("return %s does not match wasm results", ms.Return)
	}
	return ms, nil
}

// resolveFieldType parses desc, or derives one when desc is empty, and
// checks it against the global's wasm type.
func resolveFieldType(desc string, vt api.ValueType) (value.Type, error) {
	if desc == "" {
		return defaultType(vt)
	}
	t, err := value.ParseFieldType(desc)
	if err != nil {
		return t, err
	}
	if wasmType(t) != vt {
		return t, fmt.Errorf("field type %s cannot travel as %s", t, api.ValueTypeName(vt))
	}
	return t, nil
}

// toValue decodes a wasm stack value of type t.
func toValue(t value.Type, raw uint64) value.Value {
	switch t.ValueKind() {
	case value.Boolean:
		return value.BoolValue(uint32(raw) != 0)
	case value.Byte:
		return value.ByteValue(int8(raw))
	case value.Char:
		return value.CharValue(uint16(raw))
	case value.Short:
		return value.ShortValue(int16(raw))
	case value.Int:
		return value.IntValue(api.DecodeI32(raw))
	}
	return value.FromBits(raw)
}

// toStack encodes v as a wasm stack value of type t.
func toStack(t value.Type, v value.Value) uint64 {
	if wasmType(t) == api.ValueTypeI32 {
		return uint64(uint32(v.Bits()))
	}
	return v.Bits()
}

func encodeParams(ms value.MethodSignature, args []value.Value) []uint64 {
	out := make([]uint64, len(ms.Params))
	for i, p := range ms.Params {
		if i < len(args) {
			out[i] = toStack(p, args[i])
		}
	}
	return out
}
