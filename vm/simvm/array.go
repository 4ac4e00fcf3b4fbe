package simvm

import (
	"fmt"

	"github.com/wippyai/vmbridge/value"
)

func (t *Thread) NewStringUTF(s string) value.Ref {
	return t.Local(t.vm.newString(s))
}

func (t *Thread) str(r value.Ref, op string) *Object {
	o := t.deref(r, op)
	if o == nil {
		return nil
	}
	if o.class.Name != "java/lang/String" {
		t.throwNew("java/lang/IllegalArgumentException", op+": not a string")
		return nil
	}
	return o
}

func (t *Thread) GetStringUTFChars(r value.Ref) string {
	if o := t.str(r, "GetStringUTFChars"); o != nil {
		return o.str
	}
	return ""
}

func (t *Thread) GetStringLength(r value.Ref) int32 {
	if o := t.str(r, "GetStringLength"); o != nil {
		return int32(utf16Len(o.str))
	}
	return 0
}

func (t *Thread) GetStringUTFLength(r value.Ref) int32 {
	if o := t.str(r, "GetStringUTFLength"); o != nil {
		return int32(len(o.str))
	}
	return 0
}

func (t *Thread) array(r value.Ref, op string) *Object {
	o := t.deref(r, op)
	if o == nil {
		return nil
	}
	if !o.class.IsArray() {
		t.throwNew("java/lang/IllegalArgumentException", op+": not an array")
		return nil
	}
	return o
}

func (t *Thread) GetArrayLength(r value.Ref) int32 {
	if o := t.array(r, "GetArrayLength"); o != nil {
		return int32(o.Len())
	}
	return 0
}

func (t *Thread) NewPrimitiveArray(elem value.Kind, length int32) value.Ref {
	if !elem.IsPrimitive() {
		t.throwNew("java/lang/IllegalArgumentException", "NewPrimitiveArray: "+elem.String()+" is not primitive")
		return value.Null
	}
	if length < 0 {
		t.throwNew("java/lang/NegativeArraySizeException", fmt.Sprint(length))
		return value.Null
	}
	c := t.vm.arrayClass(value.Type{Kind: elem})
	o := t.vm.newObject(c)
	o.prims = make([]value.Value, length)
	return t.Local(o)
}

func (t *Thread) NewObjectArray(length int32, elemCls, init value.Ref) value.Ref {
	ec := t.derefClass(elemCls, "NewObjectArray")
	if ec == nil {
		return value.Null
	}
	if length < 0 {
		t.throwNew("java/lang/NegativeArraySizeException", fmt.Sprint(length))
		return value.Null
	}
	elem := value.ClassType(ec.Name)
	if ec.elem != nil {
		elem = value.ArrayOf(*ec.elem)
	}
	o := t.vm.newObject(t.vm.arrayClass(elem))
	o.objs = make([]*Object, length)
	if fill := t.Resolve(init); fill != nil {
		for i := range o.objs {
			o.objs[i] = fill
		}
	}
	return t.Local(o)
}

func (t *Thread) checkIndex(o *Object, start, n int32) bool {
	if start < 0 || n < 0 || int(start)+int(n) > o.Len() {
		t.throwNew("java/lang/ArrayIndexOutOfBoundsException",
			fmt.Sprintf("Index %d out of bounds for length %d", start, o.Len()))
		return false
	}
	return true
}

func (t *Thread) objectArray(r value.Ref, op string) *Object {
	o := t.array(r, op)
	if o != nil && o.class.elem.ValueKind() != value.Object {
		t.throwNew("java/lang/IllegalArgumentException", op+": not an object array")
		return nil
	}
	return o
}

func (t *Thread) GetObjectArrayElement(r value.Ref, index int32) value.Ref {
	o := t.objectArray(r, "GetObjectArrayElement")
	if o == nil || !t.checkIndex(o, index, 1) {
		return value.Null
	}
	o.mu.Lock()
	e := o.objs[index]
	o.mu.Unlock()
	return t.Local(e)
}

func (t *Thread) SetObjectArrayElement(r value.Ref, index int32, v value.Ref) {
	o := t.objectArray(r, "SetObjectArrayElement")
	if o == nil || !t.checkIndex(o, index, 1) {
		return
	}
	e := t.Resolve(v)
	if e != nil && !t.assignable(e.class, *o.class.elem) {
		t.throwNew("java/lang/ArrayStoreException", e.class.DottedName())
		return
	}
	o.mu.Lock()
	o.objs[index] = e
	o.mu.Unlock()
}

func (t *Thread) assignable(c *Class, to value.Type) bool {
	name := to.Class
	if to.Dims > 0 {
		name = to.Descriptor()
	}
	target := t.vm.lookupClass(name)
	return target == nil || c.IsSubclassOf(target)
}

func (t *Thread) primArray(r value.Ref, op string) *Object {
	o := t.array(r, op)
	if o != nil && o.class.elem.ValueKind() == value.Object {
		t.throwNew("java/lang/IllegalArgumentException", op+": not a primitive array")
		return nil
	}
	return o
}

func (t *Thread) GetArrayRegion(r value.Ref, start int32, buf []value.Value) {
	o := t.primArray(r, "GetArrayRegion")
	if o == nil || !t.checkIndex(o, start, int32(len(buf))) {
		return
	}
	o.mu.Lock()
	copy(buf, o.prims[start:])
	o.mu.Unlock()
}

func (t *Thread) SetArrayRegion(r value.Ref, start int32, buf []value.Value) {
	o := t.primArray(r, "SetArrayRegion")
	if o == nil || !t.checkIndex(o, start, int32(len(buf))) {
		return
	}
	o.mu.Lock()
	copy(o.prims[start:], buf)
	o.mu.Unlock()
}
