package env

import (
	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// RegisterNative binds fn to the native method name with descriptor sig on
// cls. A rejected binding is reported as a registration error and leaves no
// exception pending.
func (e *Env) RegisterNative(cls value.Ref, name, sig string, fn vmbridge.NativeFunc) error {
	return e.RegisterNatives(cls, []vmbridge.NativeMethod{{Name: name, Signature: sig, Fn: fn}})
}

// RegisterNatives binds several natives on cls at once. Either all bindings
// take effect or none do.
func (e *Env) RegisterNatives(cls value.Ref, methods []vmbridge.NativeMethod) error {
	for _, m := range methods {
		if _, err := value.ParseMethodSignature(m.Signature); err != nil {
			return errors.Registration(e.classRefName(cls), m.Name, m.Signature, err)
		}
		if m.Fn == nil {
			return errors.Registration(e.classRefName(cls), m.Name, m.Signature,
				errors.InvalidInput(errors.PhaseRegister, "nil native function"))
		}
	}
	e.guard("RegisterNatives", false)
	e.checkRef("RegisterNatives", cls)

	st := e.native.RegisterNatives(cls, methods)
	if st == vmbridge.OK {
		return nil
	}
	var cause error = errors.Status(errors.PhaseRegister, "RegisterNatives", int32(st))
	if exc := e.takeException(false); exc != nil {
		cause = errors.Wrap(errors.PhaseRegister, errors.KindStatus, exc, cause.Error())
	}
	name, sig := "*", ""
	if len(methods) > 0 {
		name, sig = methods[0].Name, methods[0].Signature
		if len(methods) > 1 {
			name += ",..."
		}
	}
	err := errors.Registration(e.classRefName(cls), name, sig, cause)
	e.log.Warn("native registration rejected",
		zap.String("member", err.Member),
		zap.String("signature", err.Signature),
		zap.Int32("status", int32(st)),
		zap.Error(cause))
	return err
}

// UnregisterNatives removes every native binding on cls.
func (e *Env) UnregisterNatives(cls value.Ref) error {
	e.guard("UnregisterNatives", false)
	if st := e.native.UnregisterNatives(cls); st != vmbridge.OK {
		e.takeException(false)
		return errors.Registration(e.classRefName(cls), "*", "", errors.Status(errors.PhaseRegister, "UnregisterNatives", int32(st)))
	}
	return nil
}
