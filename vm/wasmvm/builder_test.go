package wasmvm

import (
	"encoding/binary"
	"math"
)

// Value types and opcodes used by the test modules.
const (
	i32 byte = 0x7f
	i64 byte = 0x7e
	f32 byte = 0x7d
	f64 byte = 0x7c

	opUnreachable byte = 0x00
	opCall        byte = 0x10
	opLocalGet    byte = 0x20
	opGlobalGet   byte = 0x23
	opGlobalSet   byte = 0x24
	opI32Const    byte = 0x41
	opI64Const    byte = 0x42
	opF64Const    byte = 0x44
	opI32GtS      byte = 0x4a
	opI32Add      byte = 0x6a
	opI32DivS     byte = 0x6d
	opI64Add      byte = 0x7c
	opF64Mul      byte = 0xa2
	opEnd         byte = 0x0b
)

type testFunc struct {
	export  string
	params  []byte
	results []byte
	body    []byte
}

type testImport struct {
	module, name    string
	params, results []byte
}

type testGlobal struct {
	export  string
	typ     byte
	mutable bool
	init    []byte // const expression without end
}

// testModule assembles a minimal wasm binary.
type testModule struct {
	imports []testImport
	funcs   []testFunc
	globals []testGlobal
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func vec(items [][]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(payload)))...)
	return append(out, payload...)
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint64(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb(uint64(len(results)))...)
	return append(out, results...)
}

func i32Const(v int32) []byte { return append([]byte{opI32Const}, sleb(int64(v))...) }
func i64Const(v int64) []byte { return append([]byte{opI64Const}, sleb(v)...) }

func f64Const(v float64) []byte {
	out := []byte{opF64Const}
	return binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
}

func (m testModule) encode() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// one type per import and function, in index order
	var types [][]byte
	for _, im := range m.imports {
		types = append(types, funcType(im.params, im.results))
	}
	for _, f := range m.funcs {
		types = append(types, funcType(f.params, f.results))
	}
	out = append(out, section(1, vec(types))...)

	if len(m.imports) > 0 {
		var imps [][]byte
		for i, im := range m.imports {
			e := append(name(im.module), name(im.name)...)
			e = append(e, 0x00)
			e = append(e, uleb(uint64(i))...)
			imps = append(imps, e)
		}
		out = append(out, section(2, vec(imps))...)
	}

	var funcs [][]byte
	for i := range m.funcs {
		funcs = append(funcs, uleb(uint64(len(m.imports)+i)))
	}
	out = append(out, section(3, vec(funcs))...)

	if len(m.globals) > 0 {
		var globals [][]byte
		for _, g := range m.globals {
			mut := byte(0)
			if g.mutable {
				mut = 1
			}
			e := append([]byte{g.typ, mut}, g.init...)
			globals = append(globals, append(e, opEnd))
		}
		out = append(out, section(6, vec(globals))...)
	}

	var exports [][]byte
	for i, f := range m.funcs {
		if f.export == "" {
			continue
		}
		e := append(name(f.export), 0x00)
		exports = append(exports, append(e, uleb(uint64(len(m.imports)+i))...))
	}
	for i, g := range m.globals {
		if g.export == "" {
			continue
		}
		e := append(name(g.export), 0x03)
		exports = append(exports, append(e, uleb(uint64(i))...))
	}
	out = append(out, section(7, vec(exports))...)

	var bodies [][]byte
	for _, f := range m.funcs {
		body := append([]byte{0x00}, f.body...) // no locals
		body = append(body, opEnd)
		bodies = append(bodies, append(uleb(uint64(len(body))), body...))
	}
	return append(out, section(10, vec(bodies))...)
}
