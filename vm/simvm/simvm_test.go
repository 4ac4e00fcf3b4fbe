package simvm

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/value"
)

func newVM(t *testing.T, opts ...Option) (*VM, *Thread) {
	t.Helper()
	vm, native, st := Create(vmbridge.InitArgs{Version: vmbridge.Version1_8}, opts...)
	require.Equal(t, vmbridge.OK, st)
	t.Cleanup(func() { vm.DestroyVM() })
	return vm, native.(*Thread)
}

func defineCounter(t *testing.T, vm *VM) *Class {
	t.Helper()
	c, err := vm.DefineClass(ClassDef{
		Name: "test/Counter",
		Fields: []FieldDef{
			{Name: "count", Signature: "I"},
			{Name: "label", Signature: "Ljava/lang/String;"},
			{Name: "instances", Signature: "J", Static: true, Initial: value.LongValue(5)},
		},
		Methods: []MethodDef{
			{Name: "<init>", Signature: "(I)V", Impl: func(t *Thread, this value.Ref, args []value.Value) value.Value {
				cls := t.GetObjectClass(this)
				t.SetField(this, t.GetFieldID(cls, "count", "I"), args[0])
				return value.Value{}
			}},
			{Name: "get", Signature: "()I", Impl: func(t *Thread, this value.Ref, _ []value.Value) value.Value {
				cls := t.GetObjectClass(this)
				return t.GetField(this, t.GetFieldID(cls, "count", "I"))
			}},
			{Name: "echo", Signature: "(IZLjava/lang/Object;)I", Static: true, Impl: func(_ *Thread, _ value.Ref, args []value.Value) value.Value {
				return args[0]
			}},
			{Name: "divide", Signature: "(II)I", Static: true, Impl: func(t *Thread, _ value.Ref, args []value.Value) value.Value {
				if args[1].Int() == 0 {
					t.ThrowNew(t.FindClass("java/lang/ArithmeticException"), "/ by zero")
					return value.Value{}
				}
				return value.IntValue(args[0].Int() / args[1].Int())
			}},
			{Name: "twice", Signature: "(F)F", Static: true, Native: true},
			{Name: "greet", Signature: "(Ljava/lang/String;)Ljava/lang/String;", Static: true, Native: true},
		},
	})
	require.NoError(t, err)
	return c
}

func TestCreate_Options(t *testing.T) {
	tests := []struct {
		name   string
		args   vmbridge.InitArgs
		status vmbridge.Status
	}{
		{"plain", vmbridge.InitArgs{Version: vmbridge.Version1_8}, vmbridge.OK},
		{"checked", vmbridge.InitArgs{Version: vmbridge.Version1_6, Options: []string{"-Xcheck:jni", "-verbose:jni"}}, vmbridge.OK},
		{"property", vmbridge.InitArgs{Version: vmbridge.Version1_8, Options: []string{"-Dapp.name=demo"}}, vmbridge.OK},
		{"bad version", vmbridge.InitArgs{Version: 0x00090000}, vmbridge.ErrVersion},
		{"unknown option", vmbridge.InitArgs{Version: vmbridge.Version1_8, Options: []string{"-Xss1m"}}, vmbridge.ErrInvalid},
		{"ignored option", vmbridge.InitArgs{Version: vmbridge.Version1_8, Options: []string{"-Xss1m"}, IgnoreUnrecognized: true}, vmbridge.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, env, st := Create(tt.args)
			require.Equal(t, tt.status, st)
			if st != vmbridge.OK {
				require.Nil(t, vm)
				require.Nil(t, env)
				return
			}
			defer vm.DestroyVM()
			require.Equal(t, tt.args.Version, env.GetVersion())
		})
	}
}

func TestSystemProperty(t *testing.T) {
	vm, _, st := Create(vmbridge.InitArgs{Version: vmbridge.Version1_8, Options: []string{"-Dapp.name=demo", "-Xcheck:jni"}})
	require.Equal(t, vmbridge.OK, st)
	defer vm.DestroyVM()
	require.True(t, vm.CheckJNI())

	th := vm.Main()
	sys := th.FindClass("java/lang/System")
	m := th.GetStaticMethodID(sys, "getProperty", "(Ljava/lang/String;)Ljava/lang/String;")
	res := th.CallStaticMethodA(sys, m, []value.Value{value.ObjValue(th.NewStringUTF("app.name"))})
	require.False(t, th.ExceptionCheck())
	require.Equal(t, "demo", th.GetStringUTFChars(res.Object()))
}

func TestStaticCall_Echo(t *testing.T) {
	vm, th := newVM(t)
	defineCounter(t, vm)

	cls := th.FindClass("test/Counter")
	require.False(t, cls.IsNull())
	m := th.GetStaticMethodID(cls, "echo", "(IZLjava/lang/Object;)I")
	require.NotZero(t, m)

	h := th.NewStringUTF("h")
	res := th.CallStaticMethodA(cls, m, []value.Value{value.IntValue(42), value.BoolValue(true), value.ObjValue(h)})
	require.False(t, th.ExceptionCheck())
	require.Equal(t, int32(42), res.Int())
}

func TestConstructorAndFields(t *testing.T) {
	vm, th := newVM(t)
	defineCounter(t, vm)

	cls := th.FindClass("test/Counter")
	ctor := th.GetMethodID(cls, "<init>", "(I)V")
	obj := th.NewObjectA(cls, ctor, []value.Value{value.IntValue(7)})
	require.False(t, obj.IsNull())

	get := th.GetMethodID(cls, "get", "()I")
	require.Equal(t, int32(7), th.CallMethodA(obj, get, nil).Int())

	label := th.GetFieldID(cls, "label", "Ljava/lang/String;")
	th.SetField(obj, label, value.ObjValue(th.NewStringUTF("ticks")))
	got := th.GetField(obj, label).Object()
	require.Equal(t, "ticks", th.GetStringUTFChars(got))

	instances := th.GetStaticFieldID(cls, "instances", "J")
	require.Equal(t, int64(5), th.GetStaticField(cls, instances).Long())
	th.SetStaticField(cls, instances, value.LongValue(6))
	require.Equal(t, int64(6), th.GetStaticField(cls, instances).Long())

	require.True(t, th.IsInstanceOf(obj, cls))
	require.True(t, th.IsInstanceOf(obj, th.FindClass("java/lang/Object")))
	require.False(t, th.IsInstanceOf(obj, th.FindClass("java/lang/String")))
}

func TestLookupFailuresThrow(t *testing.T) {
	vm, th := newVM(t)
	defineCounter(t, vm)
	cls := th.FindClass("test/Counter")

	tests := []struct {
		name  string
		call  func()
		class string
	}{
		{"class", func() { th.FindClass("test/Missing") }, "java.lang.NoClassDefFoundError"},
		{"method", func() { th.GetMethodID(cls, "nope", "()V") }, "java.lang.NoSuchMethodError"},
		{"static as instance", func() { th.GetMethodID(cls, "echo", "(IZLjava/lang/Object;)I") }, "java.lang.NoSuchMethodError"},
		{"field", func() { th.GetFieldID(cls, "count", "J") }, "java.lang.NoSuchFieldError"},
		{"static field", func() { th.GetStaticFieldID(cls, "count", "I") }, "java.lang.NoSuchFieldError"},
		{"null receiver", func() { th.CallMethodA(value.Null, 1, nil) }, "java.lang.NullPointerException"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.call()
			require.True(t, th.ExceptionCheck())
			require.Equal(t, tt.class, th.Pending().Class().DottedName())
			th.ExceptionClear()
		})
	}
}

func TestExceptionLifecycle(t *testing.T) {
	vm, th := newVM(t)
	defineCounter(t, vm)
	cls := th.FindClass("test/Counter")
	div := th.GetStaticMethodID(cls, "divide", "(II)I")

	_ = th.CallStaticMethodA(cls, div, []value.Value{value.IntValue(1), value.IntValue(0)})
	require.True(t, th.ExceptionCheck())

	exc := th.ExceptionOccurred()
	require.False(t, exc.IsNull())
	require.True(t, th.IsInstanceOf(exc, th.FindClass("java/lang/ArithmeticException")))

	th.ExceptionClear()
	require.False(t, th.ExceptionCheck())
	require.True(t, th.ExceptionOccurred().IsNull())
}

func TestExceptionDescribe(t *testing.T) {
	var diag bytes.Buffer
	_, th := newVM(t, WithDiagnostics(&diag))

	require.Equal(t, vmbridge.OK, th.ThrowNew(th.FindClass("java/lang/IllegalStateException"), "bad state"))
	th.ExceptionDescribe()
	require.Equal(t, "Exception in thread \"main\" java.lang.IllegalStateException: bad state\n", diag.String())
	require.True(t, th.ExceptionCheck(), "describe does not clear")

	th.ExceptionClear()
	th.ExceptionDescribe()
	require.Equal(t, 1, strings.Count(diag.String(), "\n"), "nothing pending, nothing written")
}

func TestThrow_Validation(t *testing.T) {
	_, th := newVM(t)
	require.Equal(t, vmbridge.ErrInvalid, th.ThrowNew(th.FindClass("java/lang/String"), "x"))
	require.Equal(t, vmbridge.ErrInvalid, th.Throw(th.NewStringUTF("x")))
	require.False(t, th.ExceptionCheck())

	exc := th.NewObjectA(th.FindClass("java/lang/RuntimeException"),
		th.GetMethodID(th.FindClass("java/lang/RuntimeException"), "<init>", "(Ljava/lang/String;)V"),
		[]value.Value{value.ObjValue(th.NewStringUTF("built"))})
	require.Equal(t, vmbridge.OK, th.Throw(exc))
	require.True(t, th.IsSameObject(exc, th.ExceptionOccurred()))
}

func TestNatives(t *testing.T) {
	vm, th := newVM(t)
	defineCounter(t, vm)
	cls := th.FindClass("test/Counter")
	twice := th.GetStaticMethodID(cls, "twice", "(F)F")

	_ = th.CallStaticMethodA(cls, twice, []value.Value{value.FloatValue(1)})
	require.True(t, th.ExceptionCheck(), "unbound native")
	require.Equal(t, "java.lang.UnsatisfiedLinkError", th.Pending().Class().DottedName())
	th.ExceptionClear()

	st := th.RegisterNatives(cls, []vmbridge.NativeMethod{
		{Name: "twice", Signature: "(F)F", Fn: func(_ vmbridge.NativeEnv, _ value.Ref, args *value.VaList) value.Value {
			return value.FloatValue(args.Float() * 2)
		}},
		{Name: "greet", Signature: "(Ljava/lang/String;)Ljava/lang/String;", Fn: func(env vmbridge.NativeEnv, _ value.Ref, args *value.VaList) value.Value {
			return value.ObjValue(env.NewStringUTF("hi " + env.GetStringUTFChars(args.Object())))
		}},
	})
	require.Equal(t, vmbridge.OK, st)

	require.Equal(t, float32(7), th.CallStaticMethodA(cls, twice, []value.Value{value.FloatValue(3.5)}).Float())

	before := th.LocalRefs()
	greet := th.GetStaticMethodID(cls, "greet", "(Ljava/lang/String;)Ljava/lang/String;")
	name := th.NewStringUTF("bob")
	res := th.CallStaticMethodA(cls, greet, []value.Value{value.ObjValue(name)})
	require.Equal(t, "hi bob", th.GetStringUTFChars(res.Object()))
	require.Equal(t, before+2, th.LocalRefs(), "only the argument and the carried result remain")

	require.Equal(t, vmbridge.OK, th.UnregisterNatives(cls))
	_ = th.CallStaticMethodA(cls, twice, []value.Value{value.FloatValue(1)})
	require.True(t, th.ExceptionCheck())
	th.ExceptionClear()
}

func TestRegisterNatives_Rejected(t *testing.T) {
	vm, th := newVM(t)
	defineCounter(t, vm)
	cls := th.FindClass("test/Counter")
	fn := func(vmbridge.NativeEnv, value.Ref, *value.VaList) value.Value { return value.Value{} }

	st := th.RegisterNatives(cls, []vmbridge.NativeMethod{{Name: "twice", Signature: "(D)D", Fn: fn}})
	require.NotEqual(t, vmbridge.OK, st, "signature mismatch")
	require.True(t, th.ExceptionCheck())
	th.ExceptionClear()

	st = th.RegisterNatives(cls, []vmbridge.NativeMethod{{Name: "echo", Signature: "(IZLjava/lang/Object;)I", Fn: fn}})
	require.NotEqual(t, vmbridge.OK, st, "not declared native")
	th.ExceptionClear()

	st = th.RegisterNatives(cls, []vmbridge.NativeMethod{{Name: "twice", Signature: "(F)F"}})
	require.Equal(t, vmbridge.ErrInvalid, st)
}

func TestMethodPanicBecomesException(t *testing.T) {
	vm, th := newVM(t)
	_, err := vm.DefineClass(ClassDef{
		Name: "test/Boom",
		Methods: []MethodDef{{Name: "run", Signature: "()V", Static: true,
			Impl: func(*Thread, value.Ref, []value.Value) value.Value { panic("kaboom") }}},
	})
	require.NoError(t, err)

	cls := th.FindClass("test/Boom")
	th.CallStaticMethodA(cls, th.GetStaticMethodID(cls, "run", "()V"), nil)
	require.True(t, th.ExceptionCheck())
	require.Equal(t, "java.lang.RuntimeException", th.Pending().Class().DottedName())
}

func TestVirtualDispatch(t *testing.T) {
	vm, th := newVM(t)
	_, err := vm.DefineClass(ClassDef{
		Name: "test/Named",
		Methods: []MethodDef{
			impl("<init>", "()V", func(*Thread, value.Ref, []value.Value) value.Value { return value.Value{} }),
			impl("toString", "()Ljava/lang/String;", func(t *Thread, _ value.Ref, _ []value.Value) value.Value {
				return t.stringResult("named!")
			}),
		},
	})
	require.NoError(t, err)

	cls := th.FindClass("test/Named")
	obj := th.NewObjectA(cls, th.GetMethodID(cls, "<init>", "()V"), nil)
	objCls := th.FindClass("java/lang/Object")
	toString := th.GetMethodID(objCls, "toString", "()Ljava/lang/String;")

	res := th.CallMethodA(obj, toString, nil)
	require.Equal(t, "named!", th.GetStringUTFChars(res.Object()))

	res = th.CallNonvirtualMethodA(obj, objCls, toString, nil)
	require.True(t, strings.HasPrefix(th.GetStringUTFChars(res.Object()), "test.Named@"))
}

func TestDefineClass_Errors(t *testing.T) {
	vm, _ := newVM(t)
	body := func(*Thread, value.Ref, []value.Value) value.Value { return value.Value{} }
	tests := []struct {
		name string
		def  ClassDef
	}{
		{"empty name", ClassDef{}},
		{"dotted name", ClassDef{Name: "a.b"}},
		{"redefine", ClassDef{Name: "java/lang/String"}},
		{"missing super", ClassDef{Name: "x/A", Super: "x/Missing"}},
		{"bad signature", ClassDef{Name: "x/B", Methods: []MethodDef{{Name: "m", Signature: "(", Impl: body}}}},
		{"no body", ClassDef{Name: "x/C", Methods: []MethodDef{{Name: "m", Signature: "()V"}}}},
		{"native with body", ClassDef{Name: "x/D", Methods: []MethodDef{{Name: "m", Signature: "()V", Native: true, Impl: body}}}},
		{"static ctor", ClassDef{Name: "x/E", Methods: []MethodDef{{Name: "<init>", Signature: "()V", Static: true, Impl: body}}}},
		{"bad field", ClassDef{Name: "x/F", Fields: []FieldDef{{Name: "f", Signature: "V"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vm.DefineClass(tt.def)
			require.Error(t, err)
		})
	}
}

func TestRefs(t *testing.T) {
	vm, th := newVM(t)

	s := th.NewStringUTF("x")
	require.Equal(t, vmbridge.LocalRefType, th.GetObjectRefType(s))

	g := th.NewGlobalRef(s)
	require.Equal(t, vmbridge.GlobalRefType, th.GetObjectRefType(g))
	require.True(t, th.IsSameObject(s, g))
	require.Equal(t, 1, vm.GlobalRefs())

	other := th.NewStringUTF("x")
	require.False(t, th.IsSameObject(s, other), "identity, not equality")
	require.True(t, th.IsSameObject(value.Null, value.Null))
	require.False(t, th.IsSameObject(s, value.Null))

	require.NoError(t, th.ReleaseGlobalRef(g))
	require.Equal(t, vmbridge.InvalidRefType, th.GetObjectRefType(g))
	require.Equal(t, 0, vm.GlobalRefs())

	th.DeleteLocalRef(s)
	require.Equal(t, vmbridge.InvalidRefType, th.GetObjectRefType(s))
	require.False(t, th.IsSameObject(s, value.Null), "a deleted ref is not null")
	require.False(t, th.IsSameObject(value.Null, g), "a released global is not null")
	require.False(t, th.IsSameObject(s, other))
	require.Equal(t, vmbridge.InvalidRefType, th.GetObjectRefType(value.Null))
}

func TestLocalFrames(t *testing.T) {
	_, th := newVM(t)
	base := th.LocalRefs()

	require.Equal(t, vmbridge.OK, th.PushLocalFrame(4))
	th.NewStringUTF("a")
	keep := th.NewStringUTF("b")
	kept := th.PopLocalFrame(keep)

	require.Equal(t, base+1, th.LocalRefs())
	require.Equal(t, "b", th.GetStringUTFChars(kept))
	require.Equal(t, vmbridge.ErrInvalid, th.PushLocalFrame(-1))
	require.True(t, th.PopLocalFrame(value.Null).IsNull(), "no frame to pop")
}

func TestStringsAndArrays(t *testing.T) {
	_, th := newVM(t)

	s := th.NewStringUTF("héllo☺")
	require.Equal(t, int32(6), th.GetStringLength(s))
	require.Equal(t, int32(len("héllo☺")), th.GetStringUTFLength(s))

	arr := th.NewPrimitiveArray(value.Int, 4)
	require.Equal(t, int32(4), th.GetArrayLength(arr))
	th.SetArrayRegion(arr, 1, []value.Value{value.IntValue(10), value.IntValue(20)})
	buf := make([]value.Value, 4)
	th.GetArrayRegion(arr, 0, buf)
	require.Equal(t, []int32{0, 10, 20, 0}, []int32{buf[0].Int(), buf[1].Int(), buf[2].Int(), buf[3].Int()})

	th.GetArrayRegion(arr, 3, make([]value.Value, 2))
	require.True(t, th.ExceptionCheck())
	require.Equal(t, "java.lang.ArrayIndexOutOfBoundsException", th.Pending().Class().DottedName())
	th.ExceptionClear()

	strCls := th.FindClass("java/lang/String")
	objs := th.NewObjectArray(2, strCls, value.Null)
	th.SetObjectArrayElement(objs, 1, s)
	require.True(t, th.IsSameObject(s, th.GetObjectArrayElement(objs, 1)))
	require.True(t, th.GetObjectArrayElement(objs, 0).IsNull())

	th.SetObjectArrayElement(objs, 0, arr)
	require.True(t, th.ExceptionCheck(), "int[] is not a String")
	th.ExceptionClear()

	arrCls := th.GetObjectClass(objs)
	require.True(t, th.IsSameObject(arrCls, th.FindClass("[Ljava/lang/String;")))

	th.NewPrimitiveArray(value.Int, -1)
	require.True(t, th.ExceptionCheck())
	th.ExceptionClear()
}

func TestAttachDetach(t *testing.T) {
	// keep the main thread's id out of reach of the attaching goroutine
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	vm, _ := newVM(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if runtime.GOOS != "linux" {
			return
		}

		_, st := vm.GetEnv(vmbridge.Version1_8)
		if st != vmbridge.ErrDetached {
			t.Errorf("GetEnv before attach = %v", st)
		}
		env, st := vm.AttachCurrentThread()
		if st != vmbridge.OK {
			t.Errorf("attach = %v", st)
			return
		}
		again, _ := vm.AttachCurrentThread()
		if again != env {
			t.Error("attaching twice should return the same env")
		}
		if env.(*Thread).Name() == "main" {
			t.Error("attached thread should not be main")
		}
		if st := vm.DetachCurrentThread(); st != vmbridge.OK {
			t.Errorf("detach = %v", st)
		}
		if st := vm.DetachCurrentThread(); st != vmbridge.ErrDetached {
			t.Errorf("second detach = %v", st)
		}
	}()
	<-done

	_, st := vm.GetEnv(0x1234)
	require.Equal(t, vmbridge.ErrVersion, st)
}

func TestDestroyVM(t *testing.T) {
	vm, native, st := Create(vmbridge.InitArgs{Version: vmbridge.Version1_8})
	require.Equal(t, vmbridge.OK, st)
	native.NewGlobalRef(native.NewStringUTF("g"))
	require.Equal(t, 1, vm.GlobalRefs())

	require.Equal(t, vmbridge.OK, vm.DestroyVM())
	require.Equal(t, 0, vm.GlobalRefs())
	require.Equal(t, vmbridge.ErrGeneric, vm.DestroyVM())
	_, st = vm.AttachCurrentThread()
	require.Equal(t, vmbridge.ErrGeneric, st)
}

func TestFatalError(t *testing.T) {
	var got string
	_, th := newVM(t, WithFatalHandler(func(msg string) { got = msg }))
	th.FatalError("corrupt")
	require.Equal(t, "corrupt", got)

	_, th2 := newVM(t)
	require.Panics(t, func() { th2.FatalError("boom") })
}

func TestBuiltins(t *testing.T) {
	_, th := newVM(t)

	str := th.FindClass("java/lang/String")
	hash := th.GetMethodID(str, "hashCode", "()I")
	require.Equal(t, int32(99162322), th.CallMethodA(th.NewStringUTF("hello"), hash, nil).Int())

	concat := th.GetMethodID(str, "concat", "(Ljava/lang/String;)Ljava/lang/String;")
	res := th.CallMethodA(th.NewStringUTF("foo"), concat, []value.Value{value.ObjValue(th.NewStringUTF("bar"))})
	require.Equal(t, "foobar", th.GetStringUTFChars(res.Object()))

	valueOf := th.GetStaticMethodID(str, "valueOf", "(I)Ljava/lang/String;")
	res = th.CallStaticMethodA(str, valueOf, []value.Value{value.IntValue(-12)})
	require.Equal(t, "-12", th.GetStringUTFChars(res.Object()))

	clsCls := th.FindClass("java/lang/Class")
	getName := th.GetMethodID(clsCls, "getName", "()Ljava/lang/String;")
	res = th.CallMethodA(str, getName, nil)
	require.Equal(t, "java.lang.String", th.GetStringUTFChars(res.Object()))

	sup := th.GetSuperclass(th.FindClass("java/lang/RuntimeException"))
	require.True(t, th.IsSameObject(sup, th.FindClass("java/lang/Exception")))
	require.True(t, th.IsAssignableFrom(th.FindClass("java/lang/NoSuchMethodError"), th.FindClass("java/lang/Error")))
	require.True(t, th.GetSuperclass(th.FindClass("java/lang/Object")).IsNull())
}
