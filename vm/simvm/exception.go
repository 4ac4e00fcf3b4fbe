package simvm

import (
	"fmt"

	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/value"
)

// throwNew raises a new throwable of the named class with msg, falling back
// to java/lang/RuntimeException for unknown classes. An empty msg leaves the
// message null.
func (t *Thread) throwNew(className, msg string) {
	c, ok := t.vm.Class(className)
	if !ok || !t.vm.isThrowable(c) {
		c = t.vm.mustClass("java/lang/RuntimeException")
	}
	t.pending = t.vm.newThrowable(c, msg)
}

func (vm *VM) isThrowable(c *Class) bool {
	thr, ok := vm.Class("java/lang/Throwable")
	return ok && c.IsSubclassOf(thr)
}

func (vm *VM) newThrowable(c *Class, msg string) *Object {
	o := vm.newObject(c)
	if msg != "" {
		f := c.findField("message", "Ljava/lang/String;", false)
		o.fields[f.slot] = cell{obj: vm.newString(msg)}
	}
	return o
}

// Pending returns the pending throwable entity, if any.
func (t *Thread) Pending() *Object { return t.pending }

func (t *Thread) Throw(obj value.Ref) vmbridge.Status {
	o := t.Resolve(obj)
	if o == nil || !t.vm.isThrowable(o.class) {
		return vmbridge.ErrInvalid
	}
	t.pending = o
	return vmbridge.OK
}

func (t *Thread) ThrowNew(cls value.Ref, msg string) vmbridge.Status {
	o := t.Resolve(cls)
	if o == nil || o.mirror == nil || !t.vm.isThrowable(o.mirror) {
		return vmbridge.ErrInvalid
	}
	t.pending = t.vm.newThrowable(o.mirror, msg)
	return vmbridge.OK
}

func (t *Thread) ExceptionOccurred() value.Ref {
	return t.Local(t.pending)
}

func (t *Thread) ExceptionCheck() bool { return t.pending != nil }

func (t *Thread) ExceptionClear() { t.pending = nil }

// ExceptionDescribe writes the pending throwable's toString to the
// diagnostics stream. The exception stays pending.
func (t *Thread) ExceptionDescribe() {
	exc := t.pending
	if exc == nil {
		return
	}
	line := fmt.Sprintf("Exception in thread %q %s\n", t.name, t.describe(exc))
	t.vm.diagMu.Lock()
	_, err := t.vm.diag.Write([]byte(line))
	t.vm.diagMu.Unlock()
	if err != nil {
		Logger().Warn("writing exception description", zap.Error(err))
	}
}

// describe calls toString on exc with the pending state set aside.
func (t *Thread) describe(exc *Object) string {
	saved := t.pending
	t.pending = nil
	defer func() { t.pending = saved }()

	m := exc.class.findMethod("toString", "()Ljava/lang/String;", false)
	if m == nil {
		return exc.class.DottedName()
	}
	if t.locals.Push(2) != nil {
		return exc.class.DottedName()
	}
	defer t.locals.Pop(value.Null)

	res := t.Invoke(m, t.Local(exc), nil)
	if t.pending != nil {
		return exc.class.DottedName()
	}
	if s := t.Resolve(res.Object()); s != nil {
		return s.str
	}
	return "null"
}

func (t *Thread) FatalError(msg string) {
	Logger().Error("fatal error", zap.String("thread", t.name), zap.String("msg", msg))
	t.vm.fatal(msg)
}
