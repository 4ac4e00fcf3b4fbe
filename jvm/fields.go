package jvm

import (
	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/value"
)

// fieldID resolves name with type t against the receiver's class.
func (r receiver) fieldID(e *env.Env, name string, t value.Type) (vmbridge.FieldID, error) {
	if err := r.checkTarget(name); err != nil {
		return 0, err
	}
	if r.static {
		return e.GetStaticFieldID(r.cls, name, t.Descriptor())
	}
	cls := e.GetObjectClass(r.obj)
	defer e.DeleteLocalRef(cls)
	return e.GetFieldID(cls, name, t.Descriptor())
}

func (r receiver) getField(e *env.Env, name string, t value.Type) (value.Value, error) {
	id, err := r.fieldID(e, name, t)
	if err != nil {
		return value.Value{}, err
	}
	var v value.Value
	if r.static {
		v = e.GetStaticField(r.cls, id)
	} else {
		v = e.GetField(r.obj, id)
	}
	if err := e.TakeException(); err != nil {
		return value.Value{}, err
	}
	return v, nil
}

func (r receiver) setField(e *env.Env, name string, t value.Type, v value.Value) error {
	id, err := r.fieldID(e, name, t)
	if err != nil {
		return err
	}
	if r.static {
		e.SetStaticField(r.cls, id, v)
	} else {
		e.SetField(r.obj, id, v)
	}
	return e.TakeException()
}

func (r receiver) GetBooleanField(e *env.Env, name string) (bool, error) {
	v, err := r.getField(e, name, value.TypeBoolean)
	return v.Bool(), err
}

func (r receiver) GetShortField(e *env.Env, name string) (int16, error) {
	v, err := r.getField(e, name, value.TypeShort)
	return v.Short(), err
}

func (r receiver) GetIntField(e *env.Env, name string) (int32, error) {
	v, err := r.getField(e, name, value.TypeInt)
	return v.Int(), err
}

func (r receiver) GetLongField(e *env.Env, name string) (int64, error) {
	v, err := r.getField(e, name, value.TypeLong)
	return v.Long(), err
}

func (r receiver) GetFloatField(e *env.Env, name string) (float32, error) {
	v, err := r.getField(e, name, value.TypeFloat)
	return v.Float(), err
}

func (r receiver) GetDoubleField(e *env.Env, name string) (float64, error) {
	v, err := r.getField(e, name, value.TypeDouble)
	return v.Double(), err
}

// GetObjField reads a reference field of type t. The result is a local ref.
func (r receiver) GetObjField(e *env.Env, name string, t value.Type) (*Object, error) {
	v, err := r.getField(e, name, t)
	if err != nil {
		return nil, err
	}
	return NewObject(v.Object(), t), nil
}

func (r receiver) SetBooleanField(e *env.Env, name string, v bool) error {
	return r.setField(e, name, value.TypeBoolean, value.BoolValue(v))
}

func (r receiver) SetShortField(e *env.Env, name string, v int16) error {
	return r.setField(e, name, value.TypeShort, value.ShortValue(v))
}

func (r receiver) SetIntField(e *env.Env, name string, v int32) error {
	return r.setField(e, name, value.TypeInt, value.IntValue(v))
}

func (r receiver) SetLongField(e *env.Env, name string, v int64) error {
	return r.setField(e, name, value.TypeLong, value.LongValue(v))
}

func (r receiver) SetFloatField(e *env.Env, name string, v float32) error {
	return r.setField(e, name, value.TypeFloat, value.FloatValue(v))
}

func (r receiver) SetDoubleField(e *env.Env, name string, v float64) error {
	return r.setField(e, name, value.TypeDouble, value.DoubleValue(v))
}

// SetObjField writes obj, which may be nil, into a reference field of type t.
func (r receiver) SetObjField(e *env.Env, name string, t value.Type, obj *Object) error {
	ref := value.Null
	if obj != nil {
		ref = obj.Ref()
	}
	return r.setField(e, name, t, value.ObjValue(ref))
}
