package env

import (
	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/handle"
	"github.com/wippyai/vmbridge/value"
)

// NewLocalRef creates a local ref to the entity behind r.
func (e *Env) NewLocalRef(r value.Ref) value.Ref {
	e.guard("NewLocalRef", false)
	e.checkRef("NewLocalRef", r)
	return e.native.NewLocalRef(r)
}

// DeleteLocalRef releases a local ref before its frame ends.
func (e *Env) DeleteLocalRef(r value.Ref) {
	e.guard("DeleteLocalRef", true)
	if r.IsNull() {
		return
	}
	if e.native.GetObjectRefType(r) != vmbridge.LocalRefType {
		e.violation("DeleteLocalRef", errors.New(errors.PhaseHandle, errors.KindDoubleRelease).
			Value(uint64(r)).
			Detail("%#x is not a live local ref", uint64(r)).
			Build())
		return
	}
	e.native.DeleteLocalRef(r)
}

// NewGlobalRef promotes r to a ref that outlives the current frame. The
// caller owns the result and must release it exactly once.
func (e *Env) NewGlobalRef(r value.Ref) value.Ref {
	e.guard("NewGlobalRef", false)
	e.checkRef("NewGlobalRef", r)
	return e.native.NewGlobalRef(r)
}

// DeleteGlobalRef releases a global ref. Releasing one that is not live
// reports double_release.
func (e *Env) DeleteGlobalRef(r value.Ref) error {
	e.guard("DeleteGlobalRef", true)
	if r.IsNull() {
		return nil
	}
	var err error
	if rel, ok := e.native.(interface{ ReleaseGlobalRef(value.Ref) error }); ok {
		err = rel.ReleaseGlobalRef(r)
	} else if e.native.GetObjectRefType(r) != vmbridge.GlobalRefType {
		err = errors.New(errors.PhaseHandle, errors.KindDoubleRelease).
			Value(uint64(r)).
			Detail("%#x is not a live global ref", uint64(r)).
			Build()
	} else {
		e.native.DeleteGlobalRef(r)
	}
	if err != nil {
		if be, ok := err.(*errors.Error); ok {
			e.violation("DeleteGlobalRef", be)
		}
		return err
	}
	return nil
}

// NewOwnedGlobal promotes r and wraps the global in an owner whose Release
// runs once. Release must happen on this Env's thread.
func (e *Env) NewOwnedGlobal(r value.Ref) *handle.Owned {
	g := e.NewGlobalRef(r)
	return handle.NewOwned(g, e.DeleteGlobalRef)
}

// IsSameObject compares identity. Two nulls are the same object.
func (e *Env) IsSameObject(a, b value.Ref) bool {
	e.guard("IsSameObject", false)
	e.checkRef("IsSameObject", a)
	e.checkRef("IsSameObject", b)
	return e.native.IsSameObject(a, b)
}

// GetObjectClass returns a local ref to the runtime class of obj.
func (e *Env) GetObjectClass(obj value.Ref) value.Ref {
	e.guard("GetObjectClass", false)
	e.checkRef("GetObjectClass", obj)
	return e.native.GetObjectClass(obj)
}

func (e *Env) IsInstanceOf(obj, cls value.Ref) bool {
	e.guard("IsInstanceOf", false)
	return e.native.IsInstanceOf(obj, cls)
}

func (e *Env) GetSuperclass(cls value.Ref) value.Ref {
	e.guard("GetSuperclass", false)
	return e.native.GetSuperclass(cls)
}

func (e *Env) IsAssignableFrom(sub, sup value.Ref) bool {
	e.guard("IsAssignableFrom", false)
	return e.native.IsAssignableFrom(sub, sup)
}

// GetObjectRefType reports whether r is a live local or global ref.
func (e *Env) GetObjectRefType(r value.Ref) vmbridge.RefType {
	e.guard("GetObjectRefType", true)
	return e.native.GetObjectRefType(r)
}

// PushLocalFrame opens a local frame for at least capacity refs.
func (e *Env) PushLocalFrame(capacity int) error {
	e.guard("PushLocalFrame", true)
	if capacity < 0 || capacity > 1<<31-1 {
		return errors.InvalidInput(errors.PhaseHandle, "local frame capacity out of range")
	}
	return e.native.PushLocalFrame(int32(capacity)).Err(errors.PhaseHandle, "PushLocalFrame")
}

// PopLocalFrame releases the top frame, carrying result into the parent.
func (e *Env) PopLocalFrame(result value.Ref) value.Ref {
	e.guard("PopLocalFrame", true)
	return e.native.PopLocalFrame(result)
}

// WithLocalFrame runs fn inside a local frame and carries its result out.
func (e *Env) WithLocalFrame(capacity int, fn func() value.Ref) (value.Ref, error) {
	if err := e.PushLocalFrame(capacity); err != nil {
		return value.Null, err
	}
	defer func() {
		if r := recover(); r != nil {
			e.PopLocalFrame(value.Null)
			panic(r)
		}
	}()
	return e.PopLocalFrame(fn()), nil
}
