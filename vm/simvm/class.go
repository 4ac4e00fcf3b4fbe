package simvm

import (
	"strings"
	"sync"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/value"
)

// MethodImpl is the Go body of a non-native method. It runs inside a fresh
// local frame; this is the receiver (the class for static methods) and args
// holds one union per declared parameter.
type MethodImpl func(t *Thread, this value.Ref, args []value.Value) value.Value

// ClassDef describes a class to define.
type ClassDef struct {
	Name    string
	Super   string // defaults to java/lang/Object
	Fields  []FieldDef
	Methods []MethodDef
}

// MethodDef declares a method. Native methods have no Impl and are bound
// later through RegisterNatives.
type MethodDef struct {
	Impl      MethodImpl
	Name      string
	Signature string
	Static    bool
	Native    bool
}

// FieldDef declares a field. Static fields may be backed by Get and Set
// instead of VM storage.
type FieldDef struct {
	Initial   value.Value
	Get       func() value.Value
	Set       func(value.Value)
	Name      string
	Signature string
	Static    bool
}

// Class is a defined class.
type Class struct {
	Super   *Class
	vm      *VM
	mirror  *Object
	methods map[string]*Method
	fields  map[string]*Field
	elem    *value.Type // non-nil for array classes
	Name    string
	nFields int
}

// DottedName returns the class name with dots, e.g. java.lang.String.
func (c *Class) DottedName() string {
	return strings.ReplaceAll(c.Name, "/", ".")
}

// IsSubclassOf reports whether c is sup or inherits from it.
func (c *Class) IsSubclassOf(sup *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == sup {
			return true
		}
	}
	return false
}

// IsArray reports whether c is an array class.
func (c *Class) IsArray() bool { return c.elem != nil }

// Method returns the method declared on c itself with the given name and
// descriptor.
func (c *Class) Method(name, sig string) *Method {
	return c.methods[name+sig]
}

// findMethod looks up name and sig on c and its superclasses.
func (c *Class) findMethod(name, sig string, static bool) *Method {
	for k := c; k != nil; k = k.Super {
		if m, ok := k.methods[name+sig]; ok && m.Static == static {
			return m
		}
		if name == "<init>" {
			break
		}
	}
	return nil
}

func (c *Class) findField(name, sig string, static bool) *Field {
	for k := c; k != nil; k = k.Super {
		if f, ok := k.fields[name]; ok && f.Signature == sig && f.Static == static {
			return f
		}
	}
	return nil
}

// Methods returns the methods declared on c.
func (c *Class) Methods() []*Method {
	out := make([]*Method, 0, len(c.methods))
	for _, m := range c.methods {
		out = append(out, m)
	}
	return out
}

// Method is a resolved method.
type Method struct {
	Class     *Class
	Impl      MethodImpl
	Name      string
	Signature string
	Sig       value.MethodSignature
	ID        vmbridge.MethodID
	Static    bool
	Native    bool

	mu    sync.RWMutex
	bound vmbridge.NativeFunc
}

func (m *Method) String() string {
	return m.Class.DottedName() + "." + m.Name + m.Signature
}

// Bound returns the native implementation bound to m, if any.
func (m *Method) Bound() vmbridge.NativeFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bound
}

func (m *Method) bind(fn vmbridge.NativeFunc) {
	m.mu.Lock()
	m.bound = fn
	m.mu.Unlock()
}

// Field is a resolved field.
type Field struct {
	Class     *Class
	get       func() value.Value
	set       func(value.Value)
	static    cell
	Name      string
	Signature string
	Type      value.Type
	ID        vmbridge.FieldID
	slot      int
	Static    bool
}

// cell holds one field value: the union for primitives, the entity for refs.
type cell struct {
	obj *Object
	v   value.Value
}
