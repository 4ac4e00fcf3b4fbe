package env

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/handle"
	"github.com/wippyai/vmbridge/value"
)

// Exception is a managed throwable taken off the pending channel. It holds
// a global ref to the throwable until Release.
type Exception struct {
	ref     *handle.Owned
	Class   string // dotted class name
	Message string // result of toString
}

func (x *Exception) Error() string { return x.Message }

// Is matches the exception/thrown bridge error category.
func (x *Exception) Is(target error) bool {
	t, ok := target.(*errors.Error)
	return ok && t.Phase == errors.PhaseException && t.Kind == errors.KindThrown
}

// Ref returns the global ref to the throwable, or Null once released.
func (x *Exception) Ref() value.Ref { return x.ref.Ref() }

// Release frees the global ref. It must run on the thread that took the
// exception.
func (x *Exception) Release() error { return x.ref.Release() }

// ExceptionCheck reports whether an exception is pending. Safe at any time.
func (e *Env) ExceptionCheck() bool {
	e.guard("ExceptionCheck", true)
	return e.native.ExceptionCheck()
}

// ExceptionOccurred returns a local ref to the pending throwable, or Null.
func (e *Env) ExceptionOccurred() value.Ref {
	e.guard("ExceptionOccurred", true)
	return e.native.ExceptionOccurred()
}

// ExceptionDescribe writes the pending exception to the runtime's
// diagnostics stream without clearing it.
func (e *Env) ExceptionDescribe() {
	e.guard("ExceptionDescribe", true)
	e.native.ExceptionDescribe()
}

// ExceptionClear drops the pending exception.
func (e *Env) ExceptionClear() {
	e.guard("ExceptionClear", true)
	e.native.ExceptionClear()
}

// Throw makes obj the pending exception.
func (e *Env) Throw(obj value.Ref) error {
	e.guard("Throw", true)
	return e.native.Throw(obj).Err(errors.PhaseException, "Throw")
}

// ThrowNew raises a new instance of cls with msg.
func (e *Env) ThrowNew(cls value.Ref, msg string) error {
	e.guard("ThrowNew", true)
	return e.native.ThrowNew(cls, msg).Err(errors.PhaseException, "ThrowNew")
}

// ThrowNewClass is ThrowNew by class name.
func (e *Env) ThrowNewClass(className, msg string) error {
	saved := e.native.ExceptionOccurred()
	if !saved.IsNull() {
		e.native.ExceptionClear()
	}
	cls, err := e.FindClass(className)
	if !saved.IsNull() {
		e.native.Throw(saved)
		e.native.DeleteLocalRef(saved)
	}
	if err != nil {
		return err
	}
	return e.ThrowNew(cls, msg)
}

// TakeException converts the pending exception, if any, into an *Exception
// and clears it. Unless muted, the exception is first described.
func (e *Env) TakeException() error {
	e.guard("TakeException", true)
	if x := e.takeException(!e.mute); x != nil {
		return x
	}
	return nil
}

func (e *Env) takeException(describe bool) *Exception {
	if !e.native.ExceptionCheck() {
		return nil
	}
	if describe {
		e.native.ExceptionDescribe()
	}
	local := e.native.ExceptionOccurred()
	e.native.ExceptionClear()

	global := e.native.NewGlobalRef(local)
	e.native.DeleteLocalRef(local)

	x := &Exception{ref: handle.NewOwned(global, e.DeleteGlobalRef)}
	x.Class = e.className(global)
	x.Message = e.toString(global)
	if x.Message == "" {
		x.Message = x.Class
	}
	e.log.Debug("took exception", zap.String("class", x.Class), zap.String("message", x.Message))
	return x
}

// toString calls obj.toString() with failures swallowed.
func (e *Env) toString(obj value.Ref) string {
	objCls := e.native.FindClass("java/lang/Object")
	defer e.native.DeleteLocalRef(objCls)
	m := e.native.GetMethodID(objCls, "toString", "()Ljava/lang/String;")
	if m == 0 {
		e.native.ExceptionClear()
		return ""
	}
	res := e.native.CallMethodA(obj, m, nil).Object()
	if e.native.ExceptionCheck() {
		e.native.ExceptionClear()
		return ""
	}
	defer e.native.DeleteLocalRef(res)
	return e.native.GetStringUTFChars(res)
}

// className returns the dotted runtime class name of obj.
func (e *Env) className(obj value.Ref) string {
	cls := e.native.GetObjectClass(obj)
	defer e.native.DeleteLocalRef(cls)
	return e.classRefName(cls)
}

// classRefName returns the dotted name of the class cls.
func (e *Env) classRefName(cls value.Ref) string {
	clsCls := e.native.FindClass("java/lang/Class")
	defer e.native.DeleteLocalRef(clsCls)
	m := e.native.GetMethodID(clsCls, "getName", "()Ljava/lang/String;")
	if m == 0 {
		e.native.ExceptionClear()
		return ""
	}
	res := e.native.CallMethodA(cls, m, nil).Object()
	if e.native.ExceptionCheck() {
		e.native.ExceptionClear()
		return ""
	}
	defer e.native.DeleteLocalRef(res)
	return strings.ReplaceAll(e.native.GetStringUTFChars(res), "/", ".")
}
