package env

import (
	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// FindClass returns a global ref to the named class, caching it for the
// lifetime of the Env. The ref is owned by the Env and released by Close.
func (e *Env) FindClass(name string) (value.Ref, error) {
	if ref, ok := e.classes[name]; ok {
		return ref, nil
	}
	e.guard("FindClass", false)
	local := e.native.FindClass(name)
	if local.IsNull() {
		return value.Null, e.lookupError(errors.NotFound(errors.PhaseResolve, "class", name))
	}
	global := e.native.NewGlobalRef(local)
	e.native.DeleteLocalRef(local)
	e.classes[name] = global
	return global, nil
}

// lookupError attaches the pending exception, if any, as the cause of err
// and clears it.
func (e *Env) lookupError(err *errors.Error) error {
	if exc := e.takeException(false); exc != nil {
		err.Cause = exc
	}
	return err
}

// cacheable reports whether member lookups on cls may be memoized.
func (e *Env) cacheable(cls value.Ref) bool {
	return e.native.GetObjectRefType(cls) == vmbridge.GlobalRefType
}

// GetMethodID resolves an instance method or constructor on cls.
func (e *Env) GetMethodID(cls value.Ref, name, sig string) (vmbridge.MethodID, error) {
	return e.methodID(cls, name, sig, false)
}

// GetStaticMethodID resolves a static method on cls.
func (e *Env) GetStaticMethodID(cls value.Ref, name, sig string) (vmbridge.MethodID, error) {
	return e.methodID(cls, name, sig, true)
}

func (e *Env) methodID(cls value.Ref, name, sig string, static bool) (vmbridge.MethodID, error) {
	key := memberKey{cls: cls, name: name, sig: sig}
	if static {
		key.name = "static " + name
	}
	if id, ok := e.methodCache[key]; ok {
		return id, nil
	}
	ms, err := value.ParseMethodSignature(sig)
	if err != nil {
		return 0, err
	}
	e.guard("GetMethodID", false)
	e.checkRef("GetMethodID", cls)

	var id vmbridge.MethodID
	if static {
		id = e.native.GetStaticMethodID(cls, name, sig)
	} else {
		id = e.native.GetMethodID(cls, name, sig)
	}
	if id == 0 {
		nf := errors.NotFound(errors.PhaseResolve, "method", name)
		nf.Member = name
		nf.Signature = sig
		return 0, e.lookupError(nf)
	}
	e.methods[id] = methodInfo{name: name, sig: ms, static: static}
	if e.cacheable(cls) {
		e.methodCache[key] = id
	}
	return id, nil
}

// GetFieldID resolves an instance field on cls.
func (e *Env) GetFieldID(cls value.Ref, name, sig string) (vmbridge.FieldID, error) {
	return e.fieldIDOf(cls, name, sig, false)
}

// GetStaticFieldID resolves a static field on cls.
func (e *Env) GetStaticFieldID(cls value.Ref, name, sig string) (vmbridge.FieldID, error) {
	return e.fieldIDOf(cls, name, sig, true)
}

func (e *Env) fieldIDOf(cls value.Ref, name, sig string, static bool) (vmbridge.FieldID, error) {
	key := memberKey{cls: cls, name: name, sig: sig}
	if static {
		key.name = "static " + name
	}
	if id, ok := e.fieldCache[key]; ok {
		return id, nil
	}
	typ, err := value.ParseFieldType(sig)
	if err != nil {
		return 0, err
	}
	e.guard("GetFieldID", false)
	e.checkRef("GetFieldID", cls)

	var id vmbridge.FieldID
	if static {
		id = e.native.GetStaticFieldID(cls, name, sig)
	} else {
		id = e.native.GetFieldID(cls, name, sig)
	}
	if id == 0 {
		nf := errors.NotFound(errors.PhaseResolve, "field", name)
		nf.Member = name
		nf.Signature = sig
		return 0, e.lookupError(nf)
	}
	e.fields[id] = fieldInfo{name: name, typ: typ, static: static}
	if e.cacheable(cls) {
		e.fieldCache[key] = id
	}
	return id, nil
}

// ResolveMethod finds className and resolves name and sig on it in one step.
func (e *Env) ResolveMethod(className, name, sig string, static bool) (value.Ref, vmbridge.MethodID, error) {
	cls, err := e.FindClass(className)
	if err != nil {
		return value.Null, 0, err
	}
	id, err := e.methodID(cls, name, sig, static)
	if err != nil {
		return value.Null, 0, err
	}
	return cls, id, nil
}

// ResolveField finds className and resolves a field on it in one step.
func (e *Env) ResolveField(className, name, sig string, static bool) (value.Ref, vmbridge.FieldID, error) {
	cls, err := e.FindClass(className)
	if err != nil {
		return value.Null, 0, err
	}
	id, err := e.fieldIDOf(cls, name, sig, static)
	if err != nil {
		return value.Null, 0, err
	}
	return cls, id, nil
}

// MethodSignature returns the parsed descriptor of a method resolved through
// this Env.
func (e *Env) MethodSignature(id vmbridge.MethodID) (value.MethodSignature, bool) {
	info, ok := e.methods[id]
	return info.sig, ok
}
