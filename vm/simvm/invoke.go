package simvm

import (
	"fmt"

	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// maxDepth bounds nested invocations on one thread.
const maxDepth = 512

// Invoke runs m with a receiver and one union per declared parameter,
// without virtual dispatch. Missing trailing arguments read as zero. An
// object result is returned as a local ref in the caller's frame.
func (t *Thread) Invoke(m *Method, this value.Ref, args []value.Value) value.Value {
	if t.depth >= maxDepth {
		t.throwNew("java/lang/StackOverflowError", m.String())
		return value.Value{}
	}
	if n := len(m.Sig.Params); len(args) < n {
		padded := make([]value.Value, n)
		copy(padded, args)
		args = padded
	} else {
		args = args[:n]
	}

	self := t.Resolve(this)
	if err := t.locals.Push(len(args) + 2); err != nil {
		return value.Value{}
	}
	t.depth++
	result := t.invokeInFrame(m, t.Local(self), args)
	t.depth--

	if m.Sig.Return.ValueKind() != value.Object {
		_, _ = t.locals.Pop(value.Null)
		return result
	}
	kept := t.Resolve(result.Object())
	var r value.Ref
	if kept != nil {
		r, _ = t.locals.PopWith(kept)
	} else {
		_, _ = t.locals.Pop(value.Null)
	}
	return value.ObjValue(r)
}

func (t *Thread) invokeInFrame(m *Method, this value.Ref, args []value.Value) (result value.Value) {
	defer func() {
		if r := recover(); r != nil {
			// bridge errors are contract violations and stay fatal
			if _, violation := r.(*errors.Error); violation {
				panic(r)
			}
			Logger().Error("method panicked",
				zap.String("thread", t.name),
				zap.String("method", m.String()),
				zap.Any("panic", r))
			t.throwNew("java/lang/RuntimeException", fmt.Sprintf("panic in %s: %v", m, r))
			result = value.Value{}
		}
	}()

	if !m.Native {
		return m.Impl(t, this, args)
	}
	fn := m.Bound()
	if fn == nil {
		t.throwNew("java/lang/UnsatisfiedLinkError", m.String())
		return value.Value{}
	}
	return fn(t, this, value.NewVaList(args))
}

func (t *Thread) resolveMethod(id vmbridge.MethodID, op string) *Method {
	m := t.vm.method(id)
	if m == nil {
		t.throwNew("java/lang/NoSuchMethodError", fmt.Sprintf("%s: unknown method id %d", op, id))
	}
	return m
}

func (t *Thread) AllocObject(cls value.Ref) value.Ref {
	c := t.derefClass(cls, "AllocObject")
	if c == nil {
		return value.Null
	}
	if c.IsArray() {
		t.throwNew("java/lang/InstantiationException", c.DottedName())
		return value.Null
	}
	return t.Local(t.vm.newObject(c))
}

func (t *Thread) NewObjectA(cls value.Ref, ctor vmbridge.MethodID, args []value.Value) value.Ref {
	c := t.derefClass(cls, "NewObjectA")
	m := t.resolveMethod(ctor, "NewObjectA")
	if c == nil || m == nil {
		return value.Null
	}
	if m.Name != "<init>" || !c.IsSubclassOf(m.Class) {
		t.throwNew("java/lang/IllegalArgumentException", m.String()+" is not a constructor of "+c.DottedName())
		return value.Null
	}
	obj := t.Local(t.vm.newObject(c))
	t.Invoke(m, obj, args)
	if t.pending != nil {
		t.DeleteLocalRef(obj)
		return value.Null
	}
	return obj
}

func (t *Thread) CallMethodA(obj value.Ref, id vmbridge.MethodID, args []value.Value) value.Value {
	o := t.deref(obj, "CallMethodA")
	m := t.resolveMethod(id, "CallMethodA")
	if o == nil || m == nil {
		return value.Value{}
	}
	if m.Static {
		t.throwNew("java/lang/IncompatibleClassChangeError", m.String()+" is static")
		return value.Value{}
	}
	if target := o.class.findMethod(m.Name, m.Signature, false); target != nil {
		m = target
	}
	return t.Invoke(m, obj, args)
}

func (t *Thread) CallNonvirtualMethodA(obj, cls value.Ref, id vmbridge.MethodID, args []value.Value) value.Value {
	o := t.deref(obj, "CallNonvirtualMethodA")
	c := t.derefClass(cls, "CallNonvirtualMethodA")
	m := t.resolveMethod(id, "CallNonvirtualMethodA")
	if o == nil || c == nil || m == nil {
		return value.Value{}
	}
	if target := c.findMethod(m.Name, m.Signature, false); target != nil {
		m = target
	}
	return t.Invoke(m, obj, args)
}

func (t *Thread) CallStaticMethodA(cls value.Ref, id vmbridge.MethodID, args []value.Value) value.Value {
	c := t.derefClass(cls, "CallStaticMethodA")
	m := t.resolveMethod(id, "CallStaticMethodA")
	if c == nil || m == nil {
		return value.Value{}
	}
	if !m.Static {
		t.throwNew("java/lang/IncompatibleClassChangeError", m.String()+" is not static")
		return value.Value{}
	}
	return t.Invoke(m, cls, args)
}

func (t *Thread) resolveField(id vmbridge.FieldID, static bool) *Field {
	f := t.vm.field(id)
	if f == nil || f.Static != static {
		t.throwNew("java/lang/NoSuchFieldError", fmt.Sprintf("unknown field id %d", id))
		return nil
	}
	return f
}

func (t *Thread) cellValue(f *Field, c cell) value.Value {
	if f.Type.ValueKind() == value.Object {
		return value.ObjValue(t.Local(c.obj))
	}
	return c.v
}

func (t *Thread) toCell(f *Field, v value.Value) cell {
	if f.Type.ValueKind() == value.Object {
		return cell{obj: t.Resolve(v.Object())}
	}
	return cell{v: v}
}

func (t *Thread) GetField(obj value.Ref, id vmbridge.FieldID) value.Value {
	o := t.deref(obj, "GetField")
	f := t.resolveField(id, false)
	if o == nil || f == nil {
		return value.Value{}
	}
	if !o.class.IsSubclassOf(f.Class) {
		t.throwNew("java/lang/IllegalArgumentException", f.Name+" is not a field of "+o.class.DottedName())
		return value.Value{}
	}
	return t.cellValue(f, o.getField(f))
}

func (t *Thread) SetField(obj value.Ref, id vmbridge.FieldID, v value.Value) {
	o := t.deref(obj, "SetField")
	f := t.resolveField(id, false)
	if o == nil || f == nil {
		return
	}
	if !o.class.IsSubclassOf(f.Class) {
		t.throwNew("java/lang/IllegalArgumentException", f.Name+" is not a field of "+o.class.DottedName())
		return
	}
	o.setField(f, t.toCell(f, v))
}

func (t *Thread) GetStaticField(cls value.Ref, id vmbridge.FieldID) value.Value {
	if t.derefClass(cls, "GetStaticField") == nil {
		return value.Value{}
	}
	f := t.resolveField(id, true)
	if f == nil {
		return value.Value{}
	}
	if f.get != nil {
		return f.get()
	}
	t.vm.mu.RLock()
	c := f.static
	t.vm.mu.RUnlock()
	return t.cellValue(f, c)
}

func (t *Thread) SetStaticField(cls value.Ref, id vmbridge.FieldID, v value.Value) {
	if t.derefClass(cls, "SetStaticField") == nil {
		return
	}
	f := t.resolveField(id, true)
	if f == nil {
		return
	}
	if f.set != nil {
		f.set(v)
		return
	}
	c := t.toCell(f, v)
	t.vm.mu.Lock()
	f.static = c
	t.vm.mu.Unlock()
}

func (t *Thread) RegisterNatives(cls value.Ref, methods []vmbridge.NativeMethod) vmbridge.Status {
	c := t.derefClass(cls, "RegisterNatives")
	if c == nil {
		return vmbridge.ErrInvalid
	}
	resolved := make([]*Method, len(methods))
	for i, nm := range methods {
		m := c.Method(nm.Name, nm.Signature)
		if m == nil || !m.Native {
			t.throwNew("java/lang/NoSuchMethodError", c.DottedName()+"."+nm.Name+nm.Signature)
			return vmbridge.ErrGeneric
		}
		if nm.Fn == nil {
			return vmbridge.ErrInvalid
		}
		resolved[i] = m
	}
	for i, m := range resolved {
		m.bind(methods[i].Fn)
		if t.vm.verbose {
			Logger().Info("[Registering JNI native method]", zap.String("method", m.String()))
		}
	}
	return vmbridge.OK
}

func (t *Thread) UnregisterNatives(cls value.Ref) vmbridge.Status {
	c := t.derefClass(cls, "UnregisterNatives")
	if c == nil {
		return vmbridge.ErrInvalid
	}
	for _, m := range c.methods {
		if m.Native {
			m.bind(nil)
		}
	}
	if t.vm.verbose {
		Logger().Info("[Unregistering JNI native methods]", zap.String("class", c.DottedName()))
	}
	return vmbridge.OK
}
