package env

import (
	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// Field access is a direct read or write through a resolved FieldID. Like
// dispatch, failures surface only on the exception channel.

func (e *Env) checkField(op string, target value.Ref, f vmbridge.FieldID, want value.Kind, static bool) {
	e.guard(op, false)
	e.checkRef(op, target)
	info, ok := e.fields[f]
	if !ok {
		return
	}
	if got := info.typ.ValueKind(); got != want || info.static != static {
		e.violation(op, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
			Member(info.name).
			Signature(info.typ.Descriptor()).
			Detail("field accessed as %s (static=%v)", want, static).
			Build())
	}
}

func (e *Env) getField(op string, obj value.Ref, f vmbridge.FieldID, want value.Kind) value.Value {
	e.checkField(op, obj, f, want, false)
	return e.native.GetField(obj, f)
}

func (e *Env) setField(op string, obj value.Ref, f vmbridge.FieldID, want value.Kind, v value.Value) {
	e.checkField(op, obj, f, want, false)
	e.native.SetField(obj, f, v)
}

func (e *Env) getStaticField(op string, cls value.Ref, f vmbridge.FieldID, want value.Kind) value.Value {
	e.checkField(op, cls, f, want, true)
	return e.native.GetStaticField(cls, f)
}

func (e *Env) setStaticField(op string, cls value.Ref, f vmbridge.FieldID, want value.Kind, v value.Value) {
	e.checkField(op, cls, f, want, true)
	e.native.SetStaticField(cls, f, v)
}

// GetField reads an instance field as a raw union.
func (e *Env) GetField(obj value.Ref, f vmbridge.FieldID) value.Value {
	return e.getField("GetField", obj, f, e.fields[f].typ.ValueKind())
}

// SetField writes an instance field from a raw union.
func (e *Env) SetField(obj value.Ref, f vmbridge.FieldID, v value.Value) {
	e.setField("SetField", obj, f, e.fields[f].typ.ValueKind(), v)
}

// GetStaticField reads a static field as a raw union.
func (e *Env) GetStaticField(cls value.Ref, f vmbridge.FieldID) value.Value {
	return e.getStaticField("GetStaticField", cls, f, e.fields[f].typ.ValueKind())
}

// SetStaticField writes a static field from a raw union.
func (e *Env) SetStaticField(cls value.Ref, f vmbridge.FieldID, v value.Value) {
	e.setStaticField("SetStaticField", cls, f, e.fields[f].typ.ValueKind(), v)
}

func (e *Env) GetBooleanField(obj value.Ref, f vmbridge.FieldID) bool {
	return e.getField("GetBooleanField", obj, f, value.Boolean).Bool()
}

func (e *Env) SetBooleanField(obj value.Ref, f vmbridge.FieldID, v bool) {
	e.setField("SetBooleanField", obj, f, value.Boolean, value.BoolValue(v))
}

func (e *Env) GetByteField(obj value.Ref, f vmbridge.FieldID) int8 {
	return e.getField("GetByteField", obj, f, value.Byte).Byte()
}

func (e *Env) SetByteField(obj value.Ref, f vmbridge.FieldID, v int8) {
	e.setField("SetByteField", obj, f, value.Byte, value.ByteValue(v))
}

func (e *Env) GetCharField(obj value.Ref, f vmbridge.FieldID) uint16 {
	return e.getField("GetCharField", obj, f, value.Char).Char()
}

func (e *Env) SetCharField(obj value.Ref, f vmbridge.FieldID, v uint16) {
	e.setField("SetCharField", obj, f, value.Char, value.CharValue(v))
}

func (e *Env) GetShortField(obj value.Ref, f vmbridge.FieldID) int16 {
	return e.getField("GetShortField", obj, f, value.Short).Short()
}

func (e *Env) SetShortField(obj value.Ref, f vmbridge.FieldID, v int16) {
	e.setField("SetShortField", obj, f, value.Short, value.ShortValue(v))
}

func (e *Env) GetIntField(obj value.Ref, f vmbridge.FieldID) int32 {
	return e.getField("GetIntField", obj, f, value.Int).Int()
}

func (e *Env) SetIntField(obj value.Ref, f vmbridge.FieldID, v int32) {
	e.setField("SetIntField", obj, f, value.Int, value.IntValue(v))
}

func (e *Env) GetLongField(obj value.Ref, f vmbridge.FieldID) int64 {
	return e.getField("GetLongField", obj, f, value.Long).Long()
}

func (e *Env) SetLongField(obj value.Ref, f vmbridge.FieldID, v int64) {
	e.setField("SetLongField", obj, f, value.Long, value.LongValue(v))
}

func (e *Env) GetFloatField(obj value.Ref, f vmbridge.FieldID) float32 {
	return e.getField("GetFloatField", obj, f, value.Float).Float()
}

func (e *Env) SetFloatField(obj value.Ref, f vmbridge.FieldID, v float32) {
	e.setField("SetFloatField", obj, f, value.Float, value.FloatValue(v))
}

func (e *Env) GetDoubleField(obj value.Ref, f vmbridge.FieldID) float64 {
	return e.getField("GetDoubleField", obj, f, value.Double).Double()
}

func (e *Env) SetDoubleField(obj value.Ref, f vmbridge.FieldID, v float64) {
	e.setField("SetDoubleField", obj, f, value.Double, value.DoubleValue(v))
}

func (e *Env) GetObjectField(obj value.Ref, f vmbridge.FieldID) value.Ref {
	return e.getField("GetObjectField", obj, f, value.Object).Object()
}

func (e *Env) SetObjectField(obj value.Ref, f vmbridge.FieldID, v value.Ref) {
	e.setField("SetObjectField", obj, f, value.Object, value.ObjValue(v))
}

func (e *Env) GetStaticBooleanField(cls value.Ref, f vmbridge.FieldID) bool {
	return e.getStaticField("GetStaticBooleanField", cls, f, value.Boolean).Bool()
}

func (e *Env) SetStaticBooleanField(cls value.Ref, f vmbridge.FieldID, v bool) {
	e.setStaticField("SetStaticBooleanField", cls, f, value.Boolean, value.BoolValue(v))
}

func (e *Env) GetStaticByteField(cls value.Ref, f vmbridge.FieldID) int8 {
	return e.getStaticField("GetStaticByteField", cls, f, value.Byte).Byte()
}

func (e *Env) SetStaticByteField(cls value.Ref, f vmbridge.FieldID, v int8) {
	e.setStaticField("SetStaticByteField", cls, f, value.Byte, value.ByteValue(v))
}

func (e *Env) GetStaticCharField(cls value.Ref, f vmbridge.FieldID) uint16 {
	return e.getStaticField("GetStaticCharField", cls, f, value.Char).Char()
}

func (e *Env) SetStaticCharField(cls value.Ref, f vmbridge.FieldID, v uint16) {
	e.setStaticField("SetStaticCharField", cls, f, value.Char, value.CharValue(v))
}

func (e *Env) GetStaticShortField(cls value.Ref, f vmbridge.FieldID) int16 {
	return e.getStaticField("GetStaticShortField", cls, f, value.Short).Short()
}

func (e *Env) SetStaticShortField(cls value.Ref, f vmbridge.FieldID, v int16) {
	e.setStaticField("SetStaticShortField", cls, f, value.Short, value.ShortValue(v))
}

func (e *Env) GetStaticIntField(cls value.Ref, f vmbridge.FieldID) int32 {
	return e.getStaticField("GetStaticIntField", cls, f, value.Int).Int()
}

func (e *Env) SetStaticIntField(cls value.Ref, f vmbridge.FieldID, v int32) {
	e.setStaticField("SetStaticIntField", cls, f, value.Int, value.IntValue(v))
}

func (e *Env) GetStaticLongField(cls value.Ref, f vmbridge.FieldID) int64 {
	return e.getStaticField("GetStaticLongField", cls, f, value.Long).Long()
}

func (e *Env) SetStaticLongField(cls value.Ref, f vmbridge.FieldID, v int64) {
	e.setStaticField("SetStaticLongField", cls, f, value.Long, value.LongValue(v))
}

func (e *Env) GetStaticFloatField(cls value.Ref, f vmbridge.FieldID) float32 {
	return e.getStaticField("GetStaticFloatField", cls, f, value.Float).Float()
}

func (e *Env) SetStaticFloatField(cls value.Ref, f vmbridge.FieldID, v float32) {
	e.setStaticField("SetStaticFloatField", cls, f, value.Float, value.FloatValue(v))
}

func (e *Env) GetStaticDoubleField(cls value.Ref, f vmbridge.FieldID) float64 {
	return e.getStaticField("GetStaticDoubleField", cls, f, value.Double).Double()
}

func (e *Env) SetStaticDoubleField(cls value.Ref, f vmbridge.FieldID, v float64) {
	e.setStaticField("SetStaticDoubleField", cls, f, value.Double, value.DoubleValue(v))
}

func (e *Env) GetStaticObjectField(cls value.Ref, f vmbridge.FieldID) value.Ref {
	return e.getStaticField("GetStaticObjectField", cls, f, value.Object).Object()
}

func (e *Env) SetStaticObjectField(cls value.Ref, f vmbridge.FieldID, v value.Ref) {
	e.setStaticField("SetStaticObjectField", cls, f, value.Object, value.ObjValue(v))
}
