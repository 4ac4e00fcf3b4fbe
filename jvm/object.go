// Package jvm is a name-based layer over env. Methods and fields are looked
// up by name, with the descriptor inferred from the Go arguments and the
// requested result type, and pending exceptions come back as errors.
//
//	s, _, err := obj.CallString(e, "concat", "suffix")
//
// Go arguments map as follows: bool, int8, uint16, int16, int32, int64,
// float32 and float64 to the matching primitive; int to I; string to a new
// java.lang.String; *Object to its declared type; *Class to java.lang.Class;
// value.Typed as given.
package jvm

import (
	"strings"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// Object is a managed object ref together with the type it is passed as.
// Calls on an Object dispatch to instance members.
type Object struct {
	receiver
	typ value.Type
}

// NewObject wraps ref. A zero t is treated as java.lang.Object.
func NewObject(ref value.Ref, t value.Type) *Object {
	if t.Kind == value.Void {
		t = value.TypeObject
	}
	return &Object{receiver: receiver{obj: ref}, typ: t}
}

func (o *Object) Ref() value.Ref   { return o.obj }
func (o *Object) Type() value.Type { return o.typ }
func (o *Object) IsNull() bool     { return o == nil || o.obj.IsNull() }

// Class returns the runtime class of o as a local ref.
func (o *Object) Class(e *env.Env) (*Class, error) {
	if o.IsNull() {
		return nil, errors.InvalidInput(errors.PhaseResolve, "class of null reference")
	}
	name, err := ClassName(e, o.obj)
	if err != nil {
		return nil, err
	}
	return &Class{receiver: receiver{cls: e.GetObjectClass(o.obj), static: true}, name: internalName(name)}, nil
}

// Name returns the dotted runtime class name of o.
func (o *Object) Name(e *env.Env) (string, error) {
	return ClassName(e, o.obj)
}

// Global promotes o to a global ref. The caller releases it.
func (o *Object) Global(e *env.Env) *Object {
	return NewObject(e.NewGlobalRef(o.obj), o.typ)
}

// Release deletes the ref behind o, local or global.
func (o *Object) Release(e *env.Env) error {
	if o.IsNull() {
		return nil
	}
	var err error
	switch e.GetObjectRefType(o.obj) {
	case vmbridge.GlobalRefType:
		err = e.DeleteGlobalRef(o.obj)
	case vmbridge.LocalRefType:
		e.DeleteLocalRef(o.obj)
	default:
		err = errors.DoubleRelease(errors.PhaseHandle, "object")
	}
	o.obj = value.Null
	return err
}

// Class is a managed class. Calls on a Class dispatch to static members.
type Class struct {
	receiver
	name string
}

// FindClass looks up a class by its slash-separated name. The ref is the
// Env's cached global and must not be released.
func FindClass(e *env.Env, name string) (*Class, error) {
	ref, err := e.FindClass(name)
	if err != nil {
		return nil, err
	}
	return &Class{receiver: receiver{cls: ref, static: true}, name: name}, nil
}

func (c *Class) Ref() value.Ref { return c.cls }

// Name returns the slash-separated class name.
func (c *Class) Name() string { return c.name }

// Type returns the reference type of instances of c.
func (c *Class) Type() value.Type {
	if strings.HasPrefix(c.name, "[") {
		if t, err := value.ParseFieldType(c.name); err == nil {
			return t
		}
	}
	return value.ClassType(c.name)
}

// Object views the class as an instance of java.lang.Class.
func (c *Class) Object() *Object {
	return NewObject(c.cls, typeClass)
}

// New constructs an instance, choosing the constructor by the argument types.
// The result is a local ref.
func (c *Class) New(e *env.Env, args ...any) (*Object, error) {
	m, err := marshal(e, args)
	if err != nil {
		return nil, err
	}
	defer m.free(e)
	sig := value.SignatureFor(value.TypeVoid, m.typed...).String()
	ctor, err := e.GetMethodID(c.cls, "<init>", sig)
	if err != nil {
		return nil, err
	}
	ref := e.NewObjectA(c.cls, ctor, m.list.Values())
	if err := e.TakeException(); err != nil {
		return nil, err
	}
	return NewObject(ref, c.Type()), nil
}

// NewInstance finds className and constructs an instance of it. The result
// is a global ref owned by the caller.
func NewInstance(e *env.Env, className string, args ...any) (*Object, error) {
	c, err := FindClass(e, className)
	if err != nil {
		return nil, err
	}
	local, err := c.New(e, args...)
	if err != nil {
		return nil, err
	}
	g := local.Global(e)
	e.DeleteLocalRef(local.obj)
	return g, nil
}

func internalName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}
