package value

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/vmbridge/errors"
)

// Typed is a Value tagged with its Type.
type Typed struct {
	Type  Type
	Value Value
}

func OfBool(b bool) Typed          { return Typed{Type: TypeBoolean, Value: BoolValue(b)} }
func OfByte(b int8) Typed          { return Typed{Type: TypeByte, Value: ByteValue(b)} }
func OfChar(c uint16) Typed        { return Typed{Type: TypeChar, Value: CharValue(c)} }
func OfShort(s int16) Typed        { return Typed{Type: TypeShort, Value: ShortValue(s)} }
func OfInt(i int32) Typed          { return Typed{Type: TypeInt, Value: IntValue(i)} }
func OfLong(l int64) Typed         { return Typed{Type: TypeLong, Value: LongValue(l)} }
func OfFloat(f float32) Typed      { return Typed{Type: TypeFloat, Value: FloatValue(f)} }
func OfDouble(d float64) Typed     { return Typed{Type: TypeDouble, Value: DoubleValue(d)} }
func OfObject(r Ref, t Type) Typed { return Typed{Type: t, Value: ObjValue(r)} }

// Kind returns the union variant carrying t.
func (t Typed) Kind() Kind { return t.Type.ValueKind() }

// Raw drops the tag.
func (t Typed) Raw() Value { return t.Value }

func (t Typed) check(want Kind, goType string) error {
	if t.Kind() != want {
		return errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			GoType(goType).
			Signature(t.Type.Descriptor()).
			Detail("value holds %s, not %s", t.Kind(), want).
			Build()
	}
	return nil
}

func (t Typed) AsBool() (bool, error) {
	if err := t.check(Boolean, "bool"); err != nil {
		return false, err
	}
	return t.Value.Bool(), nil
}

func (t Typed) AsByte() (int8, error) {
	if err := t.check(Byte, "int8"); err != nil {
		return 0, err
	}
	return t.Value.Byte(), nil
}

func (t Typed) AsChar() (uint16, error) {
	if err := t.check(Char, "uint16"); err != nil {
		return 0, err
	}
	return t.Value.Char(), nil
}

func (t Typed) AsShort() (int16, error) {
	if err := t.check(Short, "int16"); err != nil {
		return 0, err
	}
	return t.Value.Short(), nil
}

func (t Typed) AsInt() (int32, error) {
	if err := t.check(Int, "int32"); err != nil {
		return 0, err
	}
	return t.Value.Int(), nil
}

func (t Typed) AsLong() (int64, error) {
	if err := t.check(Long, "int64"); err != nil {
		return 0, err
	}
	return t.Value.Long(), nil
}

func (t Typed) AsFloat() (float32, error) {
	if err := t.check(Float, "float32"); err != nil {
		return 0, err
	}
	return t.Value.Float(), nil
}

func (t Typed) AsDouble() (float64, error) {
	if err := t.check(Double, "float64"); err != nil {
		return 0, err
	}
	return t.Value.Double(), nil
}

func (t Typed) AsObject() (Ref, error) {
	if err := t.check(Object, "value.Ref"); err != nil {
		return Null, err
	}
	return t.Value.Object(), nil
}

// Interface unboxes t into the matching Go type.
func (t Typed) Interface() any {
	switch t.Kind() {
	case Boolean:
		return t.Value.Bool()
	case Byte:
		return t.Value.Byte()
	case Char:
		return t.Value.Char()
	case Short:
		return t.Value.Short()
	case Int:
		return t.Value.Int()
	case Long:
		return t.Value.Long()
	case Float:
		return t.Value.Float()
	case Double:
		return t.Value.Double()
	case Object:
		return t.Value.Object()
	}
	return nil
}

func (t Typed) String() string {
	switch t.Kind() {
	case Void:
		return "void"
	case Char:
		return strconv.QuoteRune(rune(t.Value.Char()))
	case Object:
		return fmt.Sprintf("%s@%#x", t.Type.Descriptor(), uint64(t.Value.Object()))
	}
	return fmt.Sprint(t.Interface())
}

// Box converts a Go value into a Typed value. A Typed passes through unchanged
// and nil becomes a null java/lang/Object.
func Box(v any) (Typed, error) {
	switch x := v.(type) {
	case nil:
		return OfObject(Null, TypeObject), nil
	case Typed:
		return x, nil
	case bool:
		return OfBool(x), nil
	case int8:
		return OfByte(x), nil
	case uint16:
		return OfChar(x), nil
	case int16:
		return OfShort(x), nil
	case int32:
		return OfInt(x), nil
	case int:
		if x < math.MinInt32 || x > math.MaxInt32 {
			return Typed{}, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
				GoType("int").
				Signature("I").
				Value(x).
				Detail("value %d overflows int", x).
				Build()
		}
		return OfInt(int32(x)), nil
	case int64:
		return OfLong(x), nil
	case float32:
		return OfFloat(x), nil
	case float64:
		return OfDouble(x), nil
	case Ref:
		return OfObject(x, TypeObject), nil
	}
	return Typed{}, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
		GoType(reflect.TypeOf(v).String()).
		Detail("no managed representation").
		Build()
}

// BoxAll boxes every argument, reporting the index of the first failure.
func BoxAll(args ...any) ([]Typed, error) {
	out := make([]Typed, len(args))
	for i, a := range args {
		t, err := Box(a)
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				e.Path = []string{"args", strconv.Itoa(i)}
			}
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
