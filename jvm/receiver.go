package jvm

import (
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// receiver is the target of name-based calls: an object for instance
// members or a class for static ones.
type receiver struct {
	obj    value.Ref
	cls    value.Ref
	static bool
}

func (r receiver) target() value.Ref {
	if r.static {
		return r.cls
	}
	return r.obj
}

func (r receiver) checkTarget(member string) error {
	if r.target().IsNull() {
		return errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Member(member).
			Detail("call on null reference").
			Build()
	}
	return nil
}

// invoke resolves name by the signature inferred from args and ret, calls it
// and converts a pending exception into the returned error.
func (r receiver) invoke(e *env.Env, name string, ret value.Type, args []any) (value.Value, error) {
	if err := r.checkTarget(name); err != nil {
		return value.Value{}, err
	}
	m, err := marshal(e, args)
	if err != nil {
		return value.Value{}, err
	}
	defer m.free(e)
	sig := value.SignatureFor(ret, m.typed...).String()

	var v value.Value
	if r.static {
		id, err := e.GetStaticMethodID(r.cls, name, sig)
		if err != nil {
			return value.Value{}, err
		}
		v = e.CallStaticMethodA(r.cls, id, m.list)
	} else {
		cls := e.GetObjectClass(r.obj)
		id, err := e.GetMethodID(cls, name, sig)
		e.DeleteLocalRef(cls)
		if err != nil {
			return value.Value{}, err
		}
		v = e.CallMethodA(r.obj, id, m.list)
	}
	if err := e.TakeException(); err != nil {
		return value.Value{}, err
	}
	return v, nil
}

func (r receiver) CallVoid(e *env.Env, name string, args ...any) error {
	_, err := r.invoke(e, name, value.TypeVoid, args)
	return err
}

func (r receiver) CallBoolean(e *env.Env, name string, args ...any) (bool, error) {
	v, err := r.invoke(e, name, value.TypeBoolean, args)
	return v.Bool(), err
}

func (r receiver) CallByte(e *env.Env, name string, args ...any) (int8, error) {
	v, err := r.invoke(e, name, value.TypeByte, args)
	return v.Byte(), err
}

func (r receiver) CallChar(e *env.Env, name string, args ...any) (uint16, error) {
	v, err := r.invoke(e, name, value.TypeChar, args)
	return v.Char(), err
}

func (r receiver) CallShort(e *env.Env, name string, args ...any) (int16, error) {
	v, err := r.invoke(e, name, value.TypeShort, args)
	return v.Short(), err
}

func (r receiver) CallInt(e *env.Env, name string, args ...any) (int32, error) {
	v, err := r.invoke(e, name, value.TypeInt, args)
	return v.Int(), err
}

func (r receiver) CallLong(e *env.Env, name string, args ...any) (int64, error) {
	v, err := r.invoke(e, name, value.TypeLong, args)
	return v.Long(), err
}

func (r receiver) CallFloat(e *env.Env, name string, args ...any) (float32, error) {
	v, err := r.invoke(e, name, value.TypeFloat, args)
	return v.Float(), err
}

func (r receiver) CallDouble(e *env.Env, name string, args ...any) (float64, error) {
	v, err := r.invoke(e, name, value.TypeDouble, args)
	return v.Double(), err
}

// CallObj calls a method returning ret. The result is a local ref.
func (r receiver) CallObj(e *env.Env, name string, ret value.Type, args ...any) (*Object, error) {
	v, err := r.invoke(e, name, ret, args)
	if err != nil {
		return nil, err
	}
	return NewObject(v.Object(), ret), nil
}

// CallString calls a method returning java.lang.String and copies the result
// out. isNull is set when the method returned null.
func (r receiver) CallString(e *env.Env, name string, args ...any) (s string, isNull bool, err error) {
	v, err := r.invoke(e, name, value.TypeString, args)
	if err != nil {
		return "", false, err
	}
	ref := v.Object()
	if ref.IsNull() {
		return "", true, nil
	}
	defer e.DeleteLocalRef(ref)
	return e.GetStringUTF(ref), false, nil
}

// CallIntArray calls a method returning int[] and copies the elements out.
func (r receiver) CallIntArray(e *env.Env, name string, args ...any) ([]int32, error) {
	v, err := r.invoke(e, name, value.ArrayOf(value.TypeInt), args)
	if err != nil {
		return nil, err
	}
	arr := v.Object()
	defer e.DeleteLocalRef(arr)
	return Ints(e, arr)
}

// CallLongArray calls a method returning long[] and copies the elements out.
func (r receiver) CallLongArray(e *env.Env, name string, args ...any) ([]int64, error) {
	v, err := r.invoke(e, name, value.ArrayOf(value.TypeLong), args)
	if err != nil {
		return nil, err
	}
	arr := v.Object()
	defer e.DeleteLocalRef(arr)
	return Longs(e, arr)
}
