package simvm

import (
	"sync"
	"unicode/utf16"

	"github.com/wippyai/vmbridge/value"
)

// Object is a runtime entity: an instance, a class mirror, a string or an
// array.
type Object struct {
	class  *Class
	mirror *Class // set on java/lang/Class instances
	fields []cell
	prims  []value.Value
	objs   []*Object
	str    string
	id     uint64
	mu     sync.Mutex
}

// Class returns the runtime class of o.
func (o *Object) Class() *Class { return o.class }

// Mirror returns the class o stands for when o is a java/lang/Class.
func (o *Object) Mirror() *Class { return o.mirror }

// ID is the identity hash of o.
func (o *Object) ID() uint64 { return o.id }

// String returns the contents of a java/lang/String object.
func (o *Object) String() string { return o.str }

// Len returns the array length, or -1 for non-arrays.
func (o *Object) Len() int {
	if o.class.elem == nil {
		return -1
	}
	if o.class.elem.ValueKind() == value.Object {
		return len(o.objs)
	}
	return len(o.prims)
}

func (o *Object) getField(f *Field) cell {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fields[f.slot]
}

func (o *Object) setField(f *Field, c cell) {
	o.mu.Lock()
	o.fields[f.slot] = c
	o.mu.Unlock()
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
