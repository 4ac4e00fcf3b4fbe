package simvm

import (
	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/handle"
	"github.com/wippyai/vmbridge/value"
)

// Thread is the env of one attached thread. It implements
// vmbridge.NativeEnv and must only be used on that thread.
type Thread struct {
	vm      *VM
	locals  *handle.Frames[*Object]
	pending *Object
	name    string
	tid     int
	depth   int
}

var _ vmbridge.NativeEnv = (*Thread)(nil)

// Name returns the thread name used in exception descriptions.
func (t *Thread) Name() string { return t.name }

// TID returns the OS thread id the thread was attached from.
func (t *Thread) TID() int { return t.tid }

// VM returns the owning VM.
func (t *Thread) VM() *VM { return t.vm }

// CheckJNI reports whether the VM runs with -Xcheck:jni.
func (t *Thread) CheckJNI() bool { return t.vm.checkJNI }

// LocalRefs returns the number of live local refs.
func (t *Thread) LocalRefs() int { return t.locals.Len() }

// LocalFrames exposes the local frame stack.
func (t *Thread) LocalFrames() *handle.Frames[*Object] { return t.locals }

func (t *Thread) detach() {
	t.locals.Reset()
	t.pending = nil
}

func (t *Thread) GetVersion() int32 { return t.vm.version }

func (t *Thread) GetMachine() (vmbridge.Machine, vmbridge.Status) {
	return t.vm, vmbridge.OK
}

// Resolve maps a local or global ref to its entity. Null and dead refs
// yield nil.
func (t *Thread) Resolve(r value.Ref) *Object {
	switch handle.ScopeOf(r) {
	case handle.ScopeLocal:
		o, _ := t.locals.Get(r)
		return o
	case handle.ScopeGlobal:
		o, _ := t.vm.globals.Get(r)
		return o
	}
	return nil
}

// Local returns a new local ref to o, or Null for nil.
func (t *Thread) Local(o *Object) value.Ref {
	if o == nil {
		return value.Null
	}
	return t.locals.Add(o)
}

// deref resolves a ref that must not be null, throwing on failure.
func (t *Thread) deref(r value.Ref, what string) *Object {
	if r.IsNull() {
		t.throwNew("java/lang/NullPointerException", what)
		return nil
	}
	o := t.Resolve(r)
	if o == nil {
		Logger().Warn("use of dead reference", zap.String("thread", t.name), zap.Uint64("ref", uint64(r)))
		t.throwNew("java/lang/IllegalArgumentException", "invalid reference in "+what)
	}
	return o
}

func (t *Thread) derefClass(r value.Ref, what string) *Class {
	o := t.deref(r, what)
	if o == nil {
		return nil
	}
	if o.mirror == nil {
		t.throwNew("java/lang/IllegalArgumentException", what+": not a class")
		return nil
	}
	return o.mirror
}

func (t *Thread) NewLocalRef(r value.Ref) value.Ref {
	return t.Local(t.Resolve(r))
}

func (t *Thread) DeleteLocalRef(r value.Ref) {
	if r.IsNull() || handle.ScopeOf(r) != handle.ScopeLocal {
		return
	}
	if err := t.locals.Delete(r); err != nil {
		Logger().Debug("DeleteLocalRef", zap.Error(err))
	}
}

func (t *Thread) NewGlobalRef(r value.Ref) value.Ref {
	o := t.Resolve(r)
	if o == nil {
		return value.Null
	}
	return t.vm.globals.Add(o)
}

func (t *Thread) DeleteGlobalRef(r value.Ref) {
	if err := t.ReleaseGlobalRef(r); err != nil {
		Logger().Debug("DeleteGlobalRef", zap.Error(err))
	}
}

// ReleaseGlobalRef is DeleteGlobalRef reporting invalid or repeated releases.
func (t *Thread) ReleaseGlobalRef(r value.Ref) error {
	_, err := t.vm.globals.Release(r)
	return err
}

func (t *Thread) IsSameObject(a, b value.Ref) bool {
	oa, ob := t.Resolve(a), t.Resolve(b)
	if oa == nil || ob == nil {
		// A dead ref is only the same as itself, never null.
		return oa == ob && a == b
	}
	return oa == ob
}

func (t *Thread) GetObjectRefType(r value.Ref) vmbridge.RefType {
	switch handle.ScopeOf(r) {
	case handle.ScopeLocal:
		if _, ok := t.locals.Get(r); ok {
			return vmbridge.LocalRefType
		}
	case handle.ScopeGlobal:
		if t.vm.globals.Contains(r) {
			return vmbridge.GlobalRefType
		}
	}
	return vmbridge.InvalidRefType
}

func (t *Thread) EnsureLocalCapacity(capacity int32) vmbridge.Status {
	if capacity < 0 {
		return vmbridge.ErrInvalid
	}
	return vmbridge.OK
}

func (t *Thread) PushLocalFrame(capacity int32) vmbridge.Status {
	if err := t.locals.Push(int(capacity)); err != nil {
		return vmbridge.ErrInvalid
	}
	return vmbridge.OK
}

func (t *Thread) PopLocalFrame(result value.Ref) value.Ref {
	var (
		r   value.Ref
		err error
	)
	if o := t.Resolve(result); o != nil {
		r, err = t.locals.PopWith(o)
	} else {
		r, err = t.locals.Pop(value.Null)
	}
	if err != nil {
		Logger().Warn("PopLocalFrame without a pushed frame", zap.String("thread", t.name))
		return value.Null
	}
	return r
}

func (t *Thread) FindClass(name string) value.Ref {
	c := t.vm.lookupClass(name)
	if c == nil {
		t.throwNew("java/lang/NoClassDefFoundError", name)
		return value.Null
	}
	return t.Local(c.mirror)
}

func (t *Thread) GetSuperclass(cls value.Ref) value.Ref {
	c := t.derefClass(cls, "GetSuperclass")
	if c == nil || c.Super == nil {
		return value.Null
	}
	return t.Local(c.Super.mirror)
}

func (t *Thread) IsAssignableFrom(sub, sup value.Ref) bool {
	a := t.derefClass(sub, "IsAssignableFrom")
	b := t.derefClass(sup, "IsAssignableFrom")
	return a != nil && b != nil && a.IsSubclassOf(b)
}

func (t *Thread) GetObjectClass(obj value.Ref) value.Ref {
	o := t.deref(obj, "GetObjectClass")
	if o == nil {
		return value.Null
	}
	return t.Local(o.class.mirror)
}

func (t *Thread) IsInstanceOf(obj, cls value.Ref) bool {
	c := t.derefClass(cls, "IsInstanceOf")
	if c == nil {
		return false
	}
	o := t.Resolve(obj)
	return o == nil || o.class.IsSubclassOf(c)
}

func (t *Thread) GetMethodID(cls value.Ref, name, sig string) vmbridge.MethodID {
	return t.methodID(cls, name, sig, false)
}

func (t *Thread) GetStaticMethodID(cls value.Ref, name, sig string) vmbridge.MethodID {
	return t.methodID(cls, name, sig, true)
}

func (t *Thread) methodID(cls value.Ref, name, sig string, static bool) vmbridge.MethodID {
	c := t.derefClass(cls, "GetMethodID")
	if c == nil {
		return 0
	}
	m := c.findMethod(name, sig, static)
	if m == nil {
		t.throwNew("java/lang/NoSuchMethodError", name)
		return 0
	}
	return m.ID
}

func (t *Thread) GetFieldID(cls value.Ref, name, sig string) vmbridge.FieldID {
	return t.fieldID(cls, name, sig, false)
}

func (t *Thread) GetStaticFieldID(cls value.Ref, name, sig string) vmbridge.FieldID {
	return t.fieldID(cls, name, sig, true)
}

func (t *Thread) fieldID(cls value.Ref, name, sig string, static bool) vmbridge.FieldID {
	c := t.derefClass(cls, "GetFieldID")
	if c == nil {
		return 0
	}
	f := c.findField(name, sig, static)
	if f == nil {
		t.throwNew("java/lang/NoSuchFieldError", name)
		return 0
	}
	return f.ID
}
