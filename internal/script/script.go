// Package script implements native method handlers in Starlark.
//
// A script is a Starlark module defining a function named after the native
// method. Arguments arrive converted by the method descriptor: booleans as
// bool, integral kinds as int, float and double as float, strings as str
// (null as None) and any other reference as an opaque ref. The return value
// is converted back the same way. Scripts may call throw(class, message) to
// raise a specific managed exception.
package script

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.uber.org/zap"

	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/trampoline"
	"github.com/wippyai/vmbridge/value"
)

// DefaultMaxSteps bounds a single call.
const DefaultMaxSteps = 1 << 20

const throwKey = "vmbridge.throw"

// Script is a compiled Starlark native. It satisfies trampoline.Handler.
type Script struct {
	fn       *starlark.Function
	name     string
	sig      value.MethodSignature
	maxSteps uint64
}

// Option configures Compile.
type Option func(*Script)

// WithMaxSteps sets the execution step limit per call. Zero removes it.
func WithMaxSteps(n uint64) Option {
	return func(s *Script) { s.maxSteps = n }
}

// Compile executes src and returns the function called name. The function
// must take exactly as many parameters as sig declares.
func Compile(filename, name, src string, sig value.MethodSignature, opts ...Option) (*Script, error) {
	thread := &starlark.Thread{Name: filename}
	globals, err := starlark.ExecFile(thread, filename, src, predeclared)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "compile "+filename)
	}
	v, ok := globals[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "script function", name)
	}
	fn, ok := v.(*starlark.Function)
	if !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
			Member(name).
			Detail("%s is a %s, not a function", name, v.Type()).
			Build()
	}
	if fn.NumParams() != len(sig.Params) || fn.HasVarargs() || fn.HasKwargs() {
		return nil, errors.New(errors.PhaseLoad, errors.KindSignature).
			Member(name).
			Signature(sig.String()).
			Detail("function takes %d parameters, descriptor declares %d", fn.NumParams(), len(sig.Params)).
			Build()
	}
	s := &Script{fn: fn, name: name, sig: sig, maxSteps: DefaultMaxSteps}
	for _, o := range opts {
		o(s)
	}
	Logger().Debug("script compiled", zap.String("file", filename), zap.String("function", name), zap.Stringer("signature", sig))
	return s, nil
}

// Signature returns the descriptor the script was compiled against.
func (s *Script) Signature() value.MethodSignature { return s.sig }

// Handle runs the script for one native call.
func (s *Script) Handle(rec *trampoline.Record) (value.Value, error) {
	typed, err := s.sig.Decode(rec.Args)
	if err != nil {
		return value.Value{}, err
	}
	args := make(starlark.Tuple, len(typed))
	for i, t := range typed {
		args[i] = toStarlark(rec, t)
	}

	thread := &starlark.Thread{Name: rec.Name}
	if s.maxSteps > 0 {
		thread.SetMaxExecutionSteps(s.maxSteps)
	}
	res, err := starlark.Call(thread, s.fn, args, nil)
	if err != nil {
		if te, ok := thread.Local(throwKey).(*trampoline.ThrowError); ok {
			return value.Value{}, te
		}
		return value.Value{}, err
	}
	return fromStarlark(rec, s.sig.Return, res)
}

var predeclared = starlark.StringDict{
	"throw": starlark.NewBuiltin("throw", throw),
}

func throw(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var class, msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "class", &class, "message?", &msg); err != nil {
		return nil, err
	}
	te := &trampoline.ThrowError{Class: class, Message: msg}
	thread.SetLocal(throwKey, te)
	return nil, te
}

// Ref is an opaque managed reference visible to scripts.
type Ref value.Ref

var _ starlark.Value = Ref(0)

func (r Ref) String() string        { return fmt.Sprintf("ref(%#x)", uint64(r)) }
func (r Ref) Type() string          { return "ref" }
func (r Ref) Freeze()               {}
func (r Ref) Truth() starlark.Bool  { return starlark.Bool(!value.Ref(r).IsNull()) }
func (r Ref) Hash() (uint32, error) { return uint32(r) ^ uint32(r>>32), nil }

func isString(t value.Type) bool {
	return t.Kind == value.Object && !t.IsArray() && t.Class == value.TypeString.Class
}

func toStarlark(rec *trampoline.Record, t value.Typed) starlark.Value {
	switch t.Kind() {
	case value.Boolean:
		return starlark.Bool(t.Value.Bool())
	case value.Byte:
		return starlark.MakeInt(int(t.Value.Byte()))
	case value.Char:
		return starlark.MakeInt(int(t.Value.Char()))
	case value.Short:
		return starlark.MakeInt(int(t.Value.Short()))
	case value.Int:
		return starlark.MakeInt(int(t.Value.Int()))
	case value.Long:
		return starlark.MakeInt64(t.Value.Long())
	case value.Float:
		return starlark.Float(t.Value.Float())
	case value.Double:
		return starlark.Float(t.Value.Double())
	}
	r := t.Value.Object()
	if r.IsNull() {
		return starlark.None
	}
	if isString(t.Type) {
		return starlark.String(rec.Env.GetStringUTFChars(r))
	}
	return Ref(r)
}

func fromStarlark(rec *trampoline.Record, t value.Type, v starlark.Value) (value.Value, error) {
	mismatch := func() error {
		return errors.New(errors.PhaseCallback, errors.KindTypeMismatch).
			Member(rec.Name).
			Signature(t.Descriptor()).
			Detail("script returned %s", v.Type()).
			Build()
	}
	switch t.ValueKind() {
	case value.Void:
		return value.Value{}, nil
	case value.Boolean:
		return value.BoolValue(bool(v.Truth())), nil
	case value.Byte, value.Char, value.Short, value.Int, value.Long:
		n, ok := toInt64(v)
		if !ok {
			return value.Value{}, mismatch()
		}
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		switch t.ValueKind() {
		case value.Byte:
			lo, hi = math.MinInt8, math.MaxInt8
		case value.Char:
			lo, hi = 0, math.MaxUint16
		case value.Short:
			lo, hi = math.MinInt16, math.MaxInt16
		case value.Int:
			lo, hi = math.MinInt32, math.MaxInt32
		}
		if n < lo || n > hi {
			return value.Value{}, errors.New(errors.PhaseCallback, errors.KindTypeMismatch).
				Member(rec.Name).
				Signature(t.Descriptor()).
				Detail("script returned %s out of range for %s", v.String(), t.Descriptor()).
				Build()
		}
		switch t.ValueKind() {
		case value.Byte:
			return value.ByteValue(int8(n)), nil
		case value.Char:
			return value.CharValue(uint16(n)), nil
		case value.Short:
			return value.ShortValue(int16(n)), nil
		case value.Int:
			return value.IntValue(int32(n)), nil
		}
		return value.LongValue(n), nil
	case value.Float, value.Double:
		f, ok := starlark.AsFloat(v)
		if !ok {
			return value.Value{}, mismatch()
		}
		if t.ValueKind() == value.Float {
			return value.FloatValue(float32(f)), nil
		}
		return value.DoubleValue(f), nil
	}

	switch v := v.(type) {
	case starlark.NoneType:
		return value.ObjValue(value.Null), nil
	case Ref:
		return value.ObjValue(value.Ref(v)), nil
	case starlark.String:
		if t.IsArray() || (t.Class != value.TypeString.Class && t.Class != value.TypeObject.Class) {
			return value.Value{}, mismatch()
		}
		return value.ObjValue(rec.Env.NewStringUTF(string(v))), nil
	}
	return value.Value{}, mismatch()
}

func toInt64(v starlark.Value) (int64, bool) {
	switch v := v.(type) {
	case starlark.Int:
		n, ok := v.Int64()
		if ok {
			return n, true
		}
		if u, ok := v.Uint64(); ok {
			return int64(u), true
		}
	case starlark.Bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
