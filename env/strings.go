package env

import "github.com/wippyai/vmbridge/value"

// String and array helpers forward to the runtime without interpreting
// content.

func (e *Env) NewStringUTF(s string) value.Ref {
	e.guard("NewStringUTF", false)
	return e.native.NewStringUTF(s)
}

func (e *Env) GetStringUTF(str value.Ref) string {
	e.guard("GetStringUTF", false)
	e.checkRef("GetStringUTF", str)
	return e.native.GetStringUTFChars(str)
}

func (e *Env) GetStringLength(str value.Ref) int {
	e.guard("GetStringLength", false)
	return int(e.native.GetStringLength(str))
}

func (e *Env) GetArrayLength(arr value.Ref) int {
	e.guard("GetArrayLength", false)
	e.checkRef("GetArrayLength", arr)
	return int(e.native.GetArrayLength(arr))
}

func (e *Env) newArray(op string, kind value.Kind, n int) value.Ref {
	e.guard(op, false)
	return e.native.NewPrimitiveArray(kind, int32(n))
}

func (e *Env) NewBooleanArray(n int) value.Ref {
	return e.newArray("NewBooleanArray", value.Boolean, n)
}

func (e *Env) NewByteArray(n int) value.Ref {
	return e.newArray("NewByteArray", value.Byte, n)
}

func (e *Env) NewCharArray(n int) value.Ref {
	return e.newArray("NewCharArray", value.Char, n)
}

func (e *Env) NewShortArray(n int) value.Ref {
	return e.newArray("NewShortArray", value.Short, n)
}

func (e *Env) NewIntArray(n int) value.Ref {
	return e.newArray("NewIntArray", value.Int, n)
}

func (e *Env) NewLongArray(n int) value.Ref {
	return e.newArray("NewLongArray", value.Long, n)
}

func (e *Env) NewFloatArray(n int) value.Ref {
	return e.newArray("NewFloatArray", value.Float, n)
}

func (e *Env) NewDoubleArray(n int) value.Ref {
	return e.newArray("NewDoubleArray", value.Double, n)
}

// getRegion copies a primitive array region into buf through a union buffer.
func getRegion[T any](e *Env, op string, arr value.Ref, start int, buf []T, conv func(value.Value) T) {
	e.guard(op, false)
	e.checkRef(op, arr)
	tmp := make([]value.Value, len(buf))
	e.native.GetArrayRegion(arr, int32(start), tmp)
	if e.native.ExceptionCheck() {
		return
	}
	for i, v := range tmp {
		buf[i] = conv(v)
	}
}

func setRegion[T any](e *Env, op string, arr value.Ref, start int, buf []T, conv func(T) value.Value) {
	e.guard(op, false)
	e.checkRef(op, arr)
	tmp := make([]value.Value, len(buf))
	for i, v := range buf {
		tmp[i] = conv(v)
	}
	e.native.SetArrayRegion(arr, int32(start), tmp)
}

func (e *Env) GetByteArrayRegion(arr value.Ref, start int, buf []int8) {
	getRegion(e, "GetByteArrayRegion", arr, start, buf, value.Value.Byte)
}

func (e *Env) SetByteArrayRegion(arr value.Ref, start int, buf []int8) {
	setRegion(e, "SetByteArrayRegion", arr, start, buf, value.ByteValue)
}

func (e *Env) GetIntArrayRegion(arr value.Ref, start int, buf []int32) {
	getRegion(e, "GetIntArrayRegion", arr, start, buf, value.Value.Int)
}

func (e *Env) SetIntArrayRegion(arr value.Ref, start int, buf []int32) {
	setRegion(e, "SetIntArrayRegion", arr, start, buf, value.IntValue)
}

func (e *Env) GetLongArrayRegion(arr value.Ref, start int, buf []int64) {
	getRegion(e, "GetLongArrayRegion", arr, start, buf, value.Value.Long)
}

func (e *Env) SetLongArrayRegion(arr value.Ref, start int, buf []int64) {
	setRegion(e, "SetLongArrayRegion", arr, start, buf, value.LongValue)
}

func (e *Env) GetDoubleArrayRegion(arr value.Ref, start int, buf []float64) {
	getRegion(e, "GetDoubleArrayRegion", arr, start, buf, value.Value.Double)
}

func (e *Env) SetDoubleArrayRegion(arr value.Ref, start int, buf []float64) {
	setRegion(e, "SetDoubleArrayRegion", arr, start, buf, value.DoubleValue)
}

// GetArrayRegion and SetArrayRegion copy raw unions for any primitive array.
func (e *Env) GetArrayRegion(arr value.Ref, start int, buf []value.Value) {
	e.guard("GetArrayRegion", false)
	e.native.GetArrayRegion(arr, int32(start), buf)
}

func (e *Env) SetArrayRegion(arr value.Ref, start int, buf []value.Value) {
	e.guard("SetArrayRegion", false)
	e.native.SetArrayRegion(arr, int32(start), buf)
}

func (e *Env) NewObjectArray(n int, elemCls, init value.Ref) value.Ref {
	e.guard("NewObjectArray", false)
	return e.native.NewObjectArray(int32(n), elemCls, init)
}

func (e *Env) GetObjectArrayElement(arr value.Ref, i int) value.Ref {
	e.guard("GetObjectArrayElement", false)
	e.checkRef("GetObjectArrayElement", arr)
	return e.native.GetObjectArrayElement(arr, int32(i))
}

func (e *Env) SetObjectArrayElement(arr value.Ref, i int, v value.Ref) {
	e.guard("SetObjectArrayElement", false)
	e.checkRef("SetObjectArrayElement", arr)
	e.native.SetObjectArrayElement(arr, int32(i), v)
}

// FatalError reports an unrecoverable condition to the runtime.
func (e *Env) FatalError(msg string) {
	e.native.FatalError(msg)
}
