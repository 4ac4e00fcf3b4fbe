package jvm

import (
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/value"
)

// NewString creates a java.lang.String. The result is a local ref.
func NewString(e *env.Env, s string) *Object {
	return NewObject(e.NewStringUTF(s), value.TypeString)
}

// ToString returns obj.toString().
func ToString(e *env.Env, obj value.Ref) (string, error) {
	s, _, err := receiver{obj: obj}.CallString(e, "toString")
	return s, err
}

// ClassName returns the dotted name of obj's runtime class.
func ClassName(e *env.Env, obj value.Ref) (string, error) {
	if err := (receiver{obj: obj}).checkTarget("getClass"); err != nil {
		return "", err
	}
	cls := e.GetObjectClass(obj)
	defer e.DeleteLocalRef(cls)
	s, _, err := receiver{obj: cls}.CallString(e, "getName")
	return s, err
}

// IntArray creates an int[] holding vals. The result is a local ref.
func IntArray(e *env.Env, vals []int32) (*Object, error) {
	arr := e.NewIntArray(len(vals))
	if err := e.TakeException(); err != nil {
		return nil, err
	}
	e.SetIntArrayRegion(arr, 0, vals)
	if err := e.TakeException(); err != nil {
		e.DeleteLocalRef(arr)
		return nil, err
	}
	return NewObject(arr, value.ArrayOf(value.TypeInt)), nil
}

// LongArray creates a long[] holding vals. The result is a local ref.
func LongArray(e *env.Env, vals []int64) (*Object, error) {
	arr := e.NewLongArray(len(vals))
	if err := e.TakeException(); err != nil {
		return nil, err
	}
	e.SetLongArrayRegion(arr, 0, vals)
	if err := e.TakeException(); err != nil {
		e.DeleteLocalRef(arr)
		return nil, err
	}
	return NewObject(arr, value.ArrayOf(value.TypeLong)), nil
}

// ObjectArray creates an array of className holding elems. Nil elements are
// stored as null. The result is a local ref.
func ObjectArray(e *env.Env, className string, elems []*Object) (*Object, error) {
	c, err := FindClass(e, className)
	if err != nil {
		return nil, err
	}
	arr := e.NewObjectArray(len(elems), c.Ref(), value.Null)
	if err := e.TakeException(); err != nil {
		return nil, err
	}
	for i, el := range elems {
		if el.IsNull() {
			continue
		}
		e.SetObjectArrayElement(arr, i, el.Ref())
		if err := e.TakeException(); err != nil {
			e.DeleteLocalRef(arr)
			return nil, err
		}
	}
	return NewObject(arr, value.ArrayOf(c.Type())), nil
}

// Ints copies the elements of the int[] arr. A null array yields nil.
func Ints(e *env.Env, arr value.Ref) ([]int32, error) {
	if arr.IsNull() {
		return nil, nil
	}
	out := make([]int32, e.GetArrayLength(arr))
	e.GetIntArrayRegion(arr, 0, out)
	if err := e.TakeException(); err != nil {
		return nil, err
	}
	return out, nil
}

// Longs copies the elements of the long[] arr. A null array yields nil.
func Longs(e *env.Env, arr value.Ref) ([]int64, error) {
	if arr.IsNull() {
		return nil, nil
	}
	out := make([]int64, e.GetArrayLength(arr))
	e.GetLongArrayRegion(arr, 0, out)
	if err := e.TakeException(); err != nil {
		return nil, err
	}
	return out, nil
}
