package host

import (
	stderrors "errors"
	"strconv"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/wippyai/vmbridge/arglist"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/jvm"
	"github.com/wippyai/vmbridge/value"
)

// call runs on the host thread. Managed exceptions are released here, so the
// *env.Exception handed back keeps only its class and message.
func (h *Host) call(m Method, args []string) (string, error) {
	out, err := h.invoke(m, args)
	var exc *env.Exception
	if stderrors.As(err, &exc) {
		if rerr := exc.Release(); rerr != nil {
			h.log.Warn("exception release failed", zap.Error(rerr))
		}
	}
	return out, err
}

func (h *Host) invoke(m Method, args []string) (string, error) {
	if len(args) != len(m.Signature.Params) {
		return "", errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Member(m.Class + "." + m.Name).
			Signature(m.Descriptor()).
			Detail("got %d arguments, want %d", len(args), len(m.Signature.Params)).
			Build()
	}
	e := h.env
	cls, err := e.FindClass(m.Class)
	if err != nil {
		return "", err
	}
	id, err := e.GetStaticMethodID(cls, m.Name, m.Descriptor())
	if err != nil {
		return "", err
	}

	var (
		out     string
		callErr error
	)
	_, err = e.WithLocalFrame(len(args)+4, func() value.Ref {
		vals := make([]value.Value, len(args))
		for i, a := range args {
			v, err := h.parseArg(m.Signature.Params[i], a, i)
			if err != nil {
				callErr = err
				return value.Null
			}
			vals[i] = v
		}
		list, err := arglist.Of(vals...)
		if err != nil {
			callErr = err
			return value.Null
		}
		defer list.Release()

		res := e.CallStaticMethodA(cls, id, list)
		if err := e.TakeException(); err != nil {
			callErr = err
			return value.Null
		}
		out, callErr = h.render(m.Signature.Return, res)
		return value.Null
	})
	if err != nil {
		return "", err
	}
	return out, callErr
}

func (h *Host) parseArg(t value.Type, s string, i int) (value.Value, error) {
	bad := func(err error) error {
		return errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path("args", strconv.Itoa(i)).
			Signature(t.Descriptor()).
			Value(s).
			Cause(err).
			Build()
	}
	switch t.ValueKind() {
	case value.Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return value.Value{}, bad(err)
		}
		return value.BoolValue(b), nil
	case value.Byte, value.Short, value.Int, value.Long:
		bits := map[value.Kind]int{value.Byte: 8, value.Short: 16, value.Int: 32, value.Long: 64}[t.ValueKind()]
		n, err := strconv.ParseInt(s, 0, bits)
		if err != nil {
			return value.Value{}, bad(err)
		}
		switch t.ValueKind() {
		case value.Byte:
			return value.ByteValue(int8(n)), nil
		case value.Short:
			return value.ShortValue(int16(n)), nil
		case value.Int:
			return value.IntValue(int32(n)), nil
		}
		return value.LongValue(n), nil
	case value.Char:
		units := utf16.Encode([]rune(s))
		if len(units) != 1 {
			return value.Value{}, bad(errors.InvalidInput(errors.PhaseMarshal, "char needs exactly one UTF-16 unit"))
		}
		return value.CharValue(units[0]), nil
	case value.Float:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return value.Value{}, bad(err)
		}
		return value.FloatValue(float32(f)), nil
	case value.Double:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.Value{}, bad(err)
		}
		return value.DoubleValue(f), nil
	}
	if s == "null" {
		return value.ObjValue(value.Null), nil
	}
	if t.IsArray() || (t.Class != value.TypeString.Class && t.Class != value.TypeObject.Class) {
		return value.Value{}, bad(errors.Unsupported(errors.PhaseMarshal, "text argument for "+t.Descriptor()))
	}
	return value.ObjValue(h.env.NewStringUTF(s)), nil
}

func (h *Host) render(t value.Type, v value.Value) (string, error) {
	switch t.ValueKind() {
	case value.Void:
		return "", nil
	case value.Boolean:
		return strconv.FormatBool(v.Bool()), nil
	case value.Byte:
		return strconv.Itoa(int(v.Byte())), nil
	case value.Char:
		return string(rune(v.Char())), nil
	case value.Short:
		return strconv.Itoa(int(v.Short())), nil
	case value.Int:
		return strconv.Itoa(int(v.Int())), nil
	case value.Long:
		return strconv.FormatInt(v.Long(), 10), nil
	case value.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32), nil
	case value.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64), nil
	}
	r := v.Object()
	if r.IsNull() {
		return "null", nil
	}
	switch {
	case t.IsArray() && t.Dims == 1 && t.Kind == value.Int:
		vals, err := jvm.Ints(h.env, r)
		return formatSlice(vals), err
	case t.IsArray() && t.Dims == 1 && t.Kind == value.Long:
		vals, err := jvm.Longs(h.env, r)
		return formatSlice(vals), err
	}
	return jvm.ToString(h.env, r)
}

func formatSlice[T int32 | int64](vals []T) string {
	b := []byte{'['}
	for i, v := range vals {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = strconv.AppendInt(b, int64(v), 10)
	}
	return string(append(b, ']'))
}
