package env

import (
	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/arglist"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// Dispatch never reports failure directly. After every call check the
// exception channel (ExceptionCheck or TakeException) before issuing another;
// the returned value is meaningless when an exception is pending.

// checkCall validates a dispatch against what is known about m.
func (e *Env) checkCall(op string, target value.Ref, m vmbridge.MethodID, args *arglist.List, want value.Kind, static bool) []value.Value {
	e.guard(op, false)
	e.checkRef(op, target)
	if args.Released() {
		e.violation(op, errors.DoubleRelease(errors.PhaseInvoke, "argument list"))
		return nil
	}
	vals := args.Values()

	info, ok := e.methods[m]
	if !ok {
		return vals
	}
	if n := len(info.sig.Params); args.Len() < n {
		e.violation(op, errors.New(errors.PhaseInvoke, errors.KindOutOfBounds).
			Member(info.name).
			Signature(info.sig.String()).
			Detail("argument list holds %d values, method takes %d", args.Len(), n).
			Build())
	}
	if got := info.sig.Return.ValueKind(); got != want {
		e.violation(op, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
			Member(info.name).
			Signature(info.sig.String()).
			Detail("method returns %s, called as %s", got, want).
			Build())
	}
	if info.static != static {
		e.violation(op, errors.New(errors.PhaseInvoke, errors.KindSignature).
			Member(info.name).
			Signature(info.sig.String()).
			Detail("static method called as instance method or vice versa").
			Build())
	}
	return vals
}

func (e *Env) call(op string, obj value.Ref, m vmbridge.MethodID, args *arglist.List, want value.Kind) value.Value {
	vals := e.checkCall(op, obj, m, args, want, false)
	v := e.native.CallMethodA(obj, m, vals)
	e.traceCall(op, m)
	return v
}

func (e *Env) callStatic(op string, cls value.Ref, m vmbridge.MethodID, args *arglist.List, want value.Kind) value.Value {
	vals := e.checkCall(op, cls, m, args, want, true)
	v := e.native.CallStaticMethodA(cls, m, vals)
	e.traceCall(op, m)
	return v
}

func (e *Env) traceCall(op string, m vmbridge.MethodID) {
	if ce := e.log.Check(zap.DebugLevel, "dispatch"); ce != nil {
		info := e.methods[m]
		ce.Write(zap.String("op", op),
			zap.String("member", info.name),
			zap.Stringer("signature", info.sig),
			zap.Bool("pending", e.native.ExceptionCheck()))
	}
}

// CallMethodA invokes m on obj and returns the raw union result.
func (e *Env) CallMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) value.Value {
	vals := e.checkCall("CallMethodA", obj, m, args, e.methods[m].sig.Return.ValueKind(), false)
	return e.native.CallMethodA(obj, m, vals)
}

// CallStaticMethodA invokes static m on cls and returns the raw union result.
func (e *Env) CallStaticMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) value.Value {
	vals := e.checkCall("CallStaticMethodA", cls, m, args, e.methods[m].sig.Return.ValueKind(), true)
	return e.native.CallStaticMethodA(cls, m, vals)
}

// CallNonvirtualMethodA invokes the implementation of m declared by cls.
func (e *Env) CallNonvirtualMethodA(obj, cls value.Ref, m vmbridge.MethodID, args *arglist.List) value.Value {
	vals := e.checkCall("CallNonvirtualMethodA", obj, m, args, e.methods[m].sig.Return.ValueKind(), false)
	return e.native.CallNonvirtualMethodA(obj, cls, m, vals)
}

// NewObjectA allocates an instance of cls and runs constructor ctor. The
// arguments are read directly from the contiguous block args.
func (e *Env) NewObjectA(cls value.Ref, ctor vmbridge.MethodID, args []value.Value) value.Ref {
	e.guard("NewObjectA", false)
	e.checkRef("NewObjectA", cls)
	if info, ok := e.methods[ctor]; ok && len(args) < len(info.sig.Params) {
		e.violation("NewObjectA", errors.OutOfBounds(errors.PhaseInvoke, len(info.sig.Params)-1, len(args)))
	}
	return e.native.NewObjectA(cls, ctor, args)
}

// AllocObject allocates an instance of cls without running a constructor.
func (e *Env) AllocObject(cls value.Ref) value.Ref {
	e.guard("AllocObject", false)
	return e.native.AllocObject(cls)
}

func (e *Env) CallVoidMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) {
	e.call("CallVoidMethodA", obj, m, args, value.Void)
}

func (e *Env) CallBooleanMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) bool {
	return e.call("CallBooleanMethodA", obj, m, args, value.Boolean).Bool()
}

func (e *Env) CallByteMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) int8 {
	return e.call("CallByteMethodA", obj, m, args, value.Byte).Byte()
}

func (e *Env) CallCharMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) uint16 {
	return e.call("CallCharMethodA", obj, m, args, value.Char).Char()
}

func (e *Env) CallShortMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) int16 {
	return e.call("CallShortMethodA", obj, m, args, value.Short).Short()
}

func (e *Env) CallIntMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) int32 {
	return e.call("CallIntMethodA", obj, m, args, value.Int).Int()
}

func (e *Env) CallLongMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) int64 {
	return e.call("CallLongMethodA", obj, m, args, value.Long).Long()
}

func (e *Env) CallFloatMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) float32 {
	return e.call("CallFloatMethodA", obj, m, args, value.Float).Float()
}

func (e *Env) CallDoubleMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) float64 {
	return e.call("CallDoubleMethodA", obj, m, args, value.Double).Double()
}

func (e *Env) CallObjectMethodA(obj value.Ref, m vmbridge.MethodID, args *arglist.List) value.Ref {
	return e.call("CallObjectMethodA", obj, m, args, value.Object).Object()
}

func (e *Env) CallStaticVoidMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) {
	e.callStatic("CallStaticVoidMethodA", cls, m, args, value.Void)
}

func (e *Env) CallStaticBooleanMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) bool {
	return e.callStatic("CallStaticBooleanMethodA", cls, m, args, value.Boolean).Bool()
}

func (e *Env) CallStaticByteMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) int8 {
	return e.callStatic("CallStaticByteMethodA", cls, m, args, value.Byte).Byte()
}

func (e *Env) CallStaticCharMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) uint16 {
	return e.callStatic("CallStaticCharMethodA", cls, m, args, value.Char).Char()
}

func (e *Env) CallStaticShortMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) int16 {
	return e.callStatic("CallStaticShortMethodA", cls, m, args, value.Short).Short()
}

func (e *Env) CallStaticIntMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) int32 {
	return e.callStatic("CallStaticIntMethodA", cls, m, args, value.Int).Int()
}

func (e *Env) CallStaticLongMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) int64 {
	return e.callStatic("CallStaticLongMethodA", cls, m, args, value.Long).Long()
}

func (e *Env) CallStaticFloatMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) float32 {
	return e.callStatic("CallStaticFloatMethodA", cls, m, args, value.Float).Float()
}

func (e *Env) CallStaticDoubleMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) float64 {
	return e.callStatic("CallStaticDoubleMethodA", cls, m, args, value.Double).Double()
}

func (e *Env) CallStaticObjectMethodA(cls value.Ref, m vmbridge.MethodID, args *arglist.List) value.Ref {
	return e.callStatic("CallStaticObjectMethodA", cls, m, args, value.Object).Object()
}
