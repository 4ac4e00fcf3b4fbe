package simvm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/wippyai/vmbridge/value"
)

// throwables lists the built-in throwable classes as name, superclass pairs,
// parents first.
var throwables = [][2]string{
	{"java/lang/Exception", "java/lang/Throwable"},
	{"java/lang/Error", "java/lang/Throwable"},
	{"java/lang/RuntimeException", "java/lang/Exception"},
	{"java/lang/InstantiationException", "java/lang/Exception"},
	{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
	{"java/lang/IllegalStateException", "java/lang/RuntimeException"},
	{"java/lang/NullPointerException", "java/lang/RuntimeException"},
	{"java/lang/ArithmeticException", "java/lang/RuntimeException"},
	{"java/lang/ClassCastException", "java/lang/RuntimeException"},
	{"java/lang/UnsupportedOperationException", "java/lang/RuntimeException"},
	{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
	{"java/lang/ArrayIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
	{"java/lang/NegativeArraySizeException", "java/lang/RuntimeException"},
	{"java/lang/ArrayStoreException", "java/lang/RuntimeException"},
	{"java/lang/LinkageError", "java/lang/Error"},
	{"java/lang/IncompatibleClassChangeError", "java/lang/LinkageError"},
	{"java/lang/NoSuchMethodError", "java/lang/IncompatibleClassChangeError"},
	{"java/lang/NoSuchFieldError", "java/lang/IncompatibleClassChangeError"},
	{"java/lang/NoClassDefFoundError", "java/lang/LinkageError"},
	{"java/lang/UnsatisfiedLinkError", "java/lang/LinkageError"},
	{"java/lang/VirtualMachineError", "java/lang/Error"},
	{"java/lang/StackOverflowError", "java/lang/VirtualMachineError"},
	{"java/lang/OutOfMemoryError", "java/lang/VirtualMachineError"},
}

func (vm *VM) bootstrap() {
	must := func(def ClassDef) {
		if _, err := vm.DefineClass(def); err != nil {
			panic(err)
		}
	}

	must(ClassDef{Name: "java/lang/Object", Methods: objectMethods()})
	must(ClassDef{Name: "java/lang/Class", Methods: classMethods()})
	classClass := vm.classes["java/lang/Class"]
	for _, c := range vm.classes {
		c.mirror.class = classClass
	}
	must(ClassDef{Name: "java/lang/String", Methods: stringMethods()})
	must(ClassDef{Name: "java/lang/System", Methods: systemMethods()})
	must(ClassDef{
		Name: "java/lang/Throwable",
		Fields: []FieldDef{
			{Name: "message", Signature: "Ljava/lang/String;"},
			{Name: "cause", Signature: "Ljava/lang/Throwable;"},
		},
		Methods: append(throwableCtors(), throwableMethods()...),
	})
	for _, tc := range throwables {
		must(ClassDef{Name: tc[0], Super: tc[1], Methods: throwableCtors()})
	}
}

func impl(name, sig string, fn MethodImpl) MethodDef {
	return MethodDef{Name: name, Signature: sig, Impl: fn}
}

func staticImpl(name, sig string, fn MethodImpl) MethodDef {
	return MethodDef{Name: name, Signature: sig, Impl: fn, Static: true}
}

func (t *Thread) stringResult(s string) value.Value {
	return value.ObjValue(t.NewStringUTF(s))
}

func objectMethods() []MethodDef {
	return []MethodDef{
		impl("<init>", "()V", func(*Thread, value.Ref, []value.Value) value.Value {
			return value.Value{}
		}),
		impl("toString", "()Ljava/lang/String;", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			o := t.Resolve(this)
			return t.stringResult(o.class.DottedName() + "@" + strconv.FormatUint(o.id, 16))
		}),
		impl("hashCode", "()I", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return value.IntValue(int32(t.Resolve(this).id))
		}),
		impl("equals", "(Ljava/lang/Object;)Z", func(t *Thread, this value.Ref, args []value.Value) value.Value {
			return value.BoolValue(t.IsSameObject(this, args[0].Object()))
		}),
		impl("getClass", "()Ljava/lang/Class;", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return value.ObjValue(t.GetObjectClass(this))
		}),
	}
}

func classMethods() []MethodDef {
	name := func(t *Thread, this value.Ref) string {
		c := t.Resolve(this).mirror
		if c.IsArray() {
			return strings.ReplaceAll(c.Name, "/", ".")
		}
		return c.DottedName()
	}
	return []MethodDef{
		impl("getName", "()Ljava/lang/String;", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return t.stringResult(name(t, this))
		}),
		impl("toString", "()Ljava/lang/String;", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return t.stringResult("class " + name(t, this))
		}),
	}
}

func javaHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

func stringMethods() []MethodDef {
	self := func(t *Thread, this value.Ref) string { return t.Resolve(this).str }
	return []MethodDef{
		impl("toString", "()Ljava/lang/String;", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return value.ObjValue(this)
		}),
		impl("length", "()I", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return value.IntValue(int32(utf16Len(self(t, this))))
		}),
		impl("isEmpty", "()Z", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return value.BoolValue(self(t, this) == "")
		}),
		impl("hashCode", "()I", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			return value.IntValue(javaHash(self(t, this)))
		}),
		impl("equals", "(Ljava/lang/Object;)Z", func(t *Thread, this value.Ref, args []value.Value) value.Value {
			other := t.Resolve(args[0].Object())
			return value.BoolValue(other != nil && other.class == t.Resolve(this).class && other.str == self(t, this))
		}),
		impl("concat", "(Ljava/lang/String;)Ljava/lang/String;", func(t *Thread, this value.Ref, args []value.Value) value.Value {
			other := t.str(args[0].Object(), "String.concat")
			if other == nil {
				return value.Value{}
			}
			return t.stringResult(self(t, this) + other.str)
		}),
		staticImpl("valueOf", "(I)Ljava/lang/String;", func(t *Thread, _ value.Ref, args []value.Value) value.Value {
			return t.stringResult(strconv.FormatInt(int64(args[0].Int()), 10))
		}),
		staticImpl("valueOf", "(J)Ljava/lang/String;", func(t *Thread, _ value.Ref, args []value.Value) value.Value {
			return t.stringResult(strconv.FormatInt(args[0].Long(), 10))
		}),
		staticImpl("valueOf", "(D)Ljava/lang/String;", func(t *Thread, _ value.Ref, args []value.Value) value.Value {
			return t.stringResult(strconv.FormatFloat(args[0].Double(), 'g', -1, 64))
		}),
		staticImpl("valueOf", "(Z)Ljava/lang/String;", func(t *Thread, _ value.Ref, args []value.Value) value.Value {
			return t.stringResult(strconv.FormatBool(args[0].Bool()))
		}),
	}
}

func systemMethods() []MethodDef {
	return []MethodDef{
		staticImpl("getProperty", "(Ljava/lang/String;)Ljava/lang/String;", func(t *Thread, _ value.Ref, args []value.Value) value.Value {
			key := t.str(args[0].Object(), "System.getProperty")
			if key == nil {
				return value.Value{}
			}
			if v, ok := t.vm.Property(key.str); ok {
				return t.stringResult(v)
			}
			return value.Value{}
		}),
		staticImpl("identityHashCode", "(Ljava/lang/Object;)I", func(t *Thread, _ value.Ref, args []value.Value) value.Value {
			if o := t.Resolve(args[0].Object()); o != nil {
				return value.IntValue(int32(o.id))
			}
			return value.IntValue(0)
		}),
	}
}

func throwableField(t *Thread, this value.Ref, name, sig string) *Field {
	return t.Resolve(this).class.findField(name, sig, false)
}

func setThrowable(t *Thread, this value.Ref, msg, cause value.Ref) {
	o := t.Resolve(this)
	o.setField(throwableField(t, this, "message", "Ljava/lang/String;"), cell{obj: t.Resolve(msg)})
	o.setField(throwableField(t, this, "cause", "Ljava/lang/Throwable;"), cell{obj: t.Resolve(cause)})
}

func throwableCtors() []MethodDef {
	return []MethodDef{
		impl("<init>", "()V", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			setThrowable(t, this, value.Null, value.Null)
			return value.Value{}
		}),
		impl("<init>", "(Ljava/lang/String;)V", func(t *Thread, this value.Ref, args []value.Value) value.Value {
			setThrowable(t, this, args[0].Object(), value.Null)
			return value.Value{}
		}),
		impl("<init>", "(Ljava/lang/String;Ljava/lang/Throwable;)V", func(t *Thread, this value.Ref, args []value.Value) value.Value {
			setThrowable(t, this, args[0].Object(), args[1].Object())
			return value.Value{}
		}),
	}
}

func throwableMethods() []MethodDef {
	get := func(name, sig string) MethodImpl {
		return func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			c := t.Resolve(this).getField(throwableField(t, this, name, sig))
			return value.ObjValue(t.Local(c.obj))
		}
	}
	return []MethodDef{
		impl("getMessage", "()Ljava/lang/String;", get("message", "Ljava/lang/String;")),
		impl("getCause", "()Ljava/lang/Throwable;", get("cause", "Ljava/lang/Throwable;")),
		impl("toString", "()Ljava/lang/String;", func(t *Thread, this value.Ref, _ []value.Value) value.Value {
			o := t.Resolve(this)
			s := o.class.DottedName()
			if msg := o.getField(throwableField(t, this, "message", "Ljava/lang/String;")).obj; msg != nil {
				s = fmt.Sprintf("%s: %s", s, msg.str)
			}
			return t.stringResult(s)
		}),
	}
}
