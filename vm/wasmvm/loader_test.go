package wasmvm

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/arglist"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
	"github.com/wippyai/vmbridge/vm/simvm"
)

func calcModule(importModule string) []byte {
	return testModule{
		imports: []testImport{
			{module: importModule, name: "hook", params: []byte{i64}, results: []byte{i64}},
		},
		funcs: []testFunc{
			{export: "add", params: []byte{i32, i32}, results: []byte{i32},
				body: []byte{opLocalGet, 0, opLocalGet, 1, opI32Add}},
			{export: "div", params: []byte{i32, i32}, results: []byte{i32},
				body: []byte{opLocalGet, 0, opLocalGet, 1, opI32DivS}},
			{export: "viaHook", params: []byte{i64}, results: []byte{i64},
				body: []byte{opLocalGet, 0, opCall, 0}},
			{export: "half", params: []byte{f64}, results: []byte{f64},
				body: append(append([]byte{opLocalGet, 0}, f64Const(0.5)...), opF64Mul)},
			{export: "isPos", params: []byte{i32}, results: []byte{i32},
				body: append(append([]byte{opLocalGet, 0}, i32Const(0)...), opI32GtS)},
			{export: "boom", body: []byte{opUnreachable}},
			{export: "bump", results: []byte{i32},
				body: append(append([]byte{opGlobalGet, 0}, i32Const(1)...), opI32Add, opGlobalSet, 0, opGlobalGet, 0)},
			{export: "same", params: []byte{i64}, results: []byte{i64},
				body: []byte{opLocalGet, 0}},
			{export: "sum64", params: []byte{i64, i64}, results: []byte{i64},
				body: []byte{opLocalGet, 0, opLocalGet, 1, opI64Add}},
		},
		globals: []testGlobal{
			{export: "counter", typ: i32, mutable: true, init: i32Const(5)},
			{export: "limit", typ: i64, init: i64Const(100)},
		},
	}.encode()
}

type fixture struct {
	ctx    context.Context
	vm     *simvm.VM
	env    *env.Env
	loader *Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	vm, native, st := simvm.Create(vmbridge.InitArgs{Version: vmbridge.Version1_8}, simvm.WithDiagnostics(io.Discard))
	require.Equal(t, vmbridge.OK, st)
	e := env.New(native, env.WithMuteExceptions(true))
	l := NewLoader(ctx, &Config{MemoryLimitPages: 16})
	t.Cleanup(func() {
		e.Close()
		_ = l.Close(ctx)
		vm.DestroyVM()
	})
	return &fixture{ctx: ctx, vm: vm, env: e, loader: l}
}

func (f *fixture) callStatic(t *testing.T, name, sig string, args ...value.Value) value.Value {
	t.Helper()
	cls, m, err := f.env.ResolveMethod("test/Calc", name, sig, true)
	require.NoError(t, err)
	list, err := arglist.Of(args...)
	require.NoError(t, err)
	defer list.Release()
	return f.env.CallStaticMethodA(cls, m, list)
}

func requireThrown(t *testing.T, e *env.Env, class, contains string) {
	t.Helper()
	err := e.TakeException()
	var exc *env.Exception
	require.True(t, stderrors.As(err, &exc), "expected a pending exception, got %v", err)
	require.Equal(t, class, exc.Class)
	require.Contains(t, exc.Message, contains)
}

func TestLoad_DerivedDescriptors(t *testing.T) {
	f := newFixture(t)
	c, err := f.loader.Load(f.ctx, f.vm, ClassSpec{Name: "test/Calc"}, calcModule("test/Calc"))
	require.NoError(t, err)
	require.Equal(t, "test/Calc", c.Class.Name)

	got := f.callStatic(t, "add", "(II)I", value.IntValue(3), value.IntValue(4))
	require.NoError(t, f.env.TakeException())
	require.Equal(t, int32(7), got.Int())

	got = f.callStatic(t, "add", "(II)I", value.IntValue(-10), value.IntValue(3))
	require.Equal(t, int32(-7), got.Int())

	got = f.callStatic(t, "half", "(D)D", value.DoubleValue(3))
	require.Equal(t, 1.5, got.Double())

	got = f.callStatic(t, "isPos", "(I)I", value.IntValue(9))
	require.Equal(t, int32(1), got.Int())

	got = f.callStatic(t, "sum64", "(JJ)J", value.LongValue(1<<40), value.LongValue(-1))
	require.Equal(t, int64(1<<40-1), got.Long())

	f.callStatic(t, "boom", "()V")
	requireThrown(t, f.env, "java.lang.RuntimeException", "unreachable")
}

func TestLoad_DeclaredDescriptors(t *testing.T) {
	f := newFixture(t)
	spec := ClassSpec{
		Name: "test/Calc",
		Methods: []MethodSpec{
			{Name: "positive", Export: "isPos", Signature: "(I)Z"},
			{Name: "same", Signature: "(Ljava/lang/String;)Ljava/lang/String;"},
		},
	}
	_, err := f.loader.Load(f.ctx, f.vm, spec, calcModule("test/Calc"))
	require.NoError(t, err)

	got := f.callStatic(t, "positive", "(I)Z", value.IntValue(-3))
	require.False(t, got.Bool())
	got = f.callStatic(t, "positive", "(I)Z", value.IntValue(3))
	require.True(t, got.Bool())

	s := f.env.NewStringUTF("through wasm")
	got = f.callStatic(t, "same", "(Ljava/lang/String;)Ljava/lang/String;", value.ObjValue(s))
	require.NoError(t, f.env.TakeException())
	require.True(t, f.env.IsSameObject(s, got.Object()))
	require.Equal(t, "through wasm", f.env.GetStringUTF(got.Object()))

	cls, err := f.env.FindClass("test/Calc")
	require.NoError(t, err)
	_, err = f.env.GetStaticMethodID(cls, "add", "(II)I")
	require.Error(t, err, "only listed exports become methods")
}

func TestTraps(t *testing.T) {
	f := newFixture(t)
	_, err := f.loader.Load(f.ctx, f.vm, ClassSpec{Name: "test/Calc"}, calcModule("test/Calc"))
	require.NoError(t, err)

	got := f.callStatic(t, "div", "(II)I", value.IntValue(1), value.IntValue(0))
	require.True(t, f.env.ExceptionCheck())
	require.True(t, got.IsZero())
	requireThrown(t, f.env, "java.lang.RuntimeException", "integer divide by zero")

	got = f.callStatic(t, "div", "(II)I", value.IntValue(9), value.IntValue(3))
	require.NoError(t, f.env.TakeException())
	require.Equal(t, int32(3), got.Int())
}

func TestNativeImports(t *testing.T) {
	f := newFixture(t)
	spec := ClassSpec{
		Name:    "test/Calc",
		Natives: []NativeSpec{{Name: "log", Signature: "(Ljava/lang/String;)V"}},
	}
	_, err := f.loader.Load(f.ctx, f.vm, spec, calcModule("test/Calc"))
	require.NoError(t, err)

	f.callStatic(t, "viaHook", "(J)J", value.LongValue(1))
	requireThrown(t, f.env, "java.lang.UnsatisfiedLinkError", "hook")

	cls, err := f.env.FindClass("test/Calc")
	require.NoError(t, err)
	err = f.env.RegisterNative(cls, "hook", "(J)J", func(_ vmbridge.NativeEnv, _ value.Ref, args *value.VaList) value.Value {
		return value.LongValue(args.Long() + 1)
	})
	require.NoError(t, err)

	got := f.callStatic(t, "viaHook", "(J)J", value.LongValue(41))
	require.NoError(t, f.env.TakeException())
	require.Equal(t, int64(42), got.Long())

	require.NoError(t, f.env.UnregisterNatives(cls))
	err = f.env.RegisterNative(cls, "hook", "(J)J", func(ne vmbridge.NativeEnv, _ value.Ref, args *value.VaList) value.Value {
		ne.ThrowNew(ne.FindClass("java/lang/IllegalArgumentException"), "negative")
		return value.Value{}
	})
	require.NoError(t, err)
	f.callStatic(t, "viaHook", "(J)J", value.LongValue(-1))
	requireThrown(t, f.env, "java.lang.IllegalArgumentException", "negative")

	_, err = f.env.GetStaticMethodID(cls, "log", "(Ljava/lang/String;)V")
	require.NoError(t, err, "declared natives exist without a wasm import")
}

func TestGlobalsAsStaticFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.loader.Load(f.ctx, f.vm, ClassSpec{Name: "test/Calc"}, calcModule("test/Calc"))
	require.NoError(t, err)
	e := f.env

	cls, counter, err := e.ResolveField("test/Calc", "counter", "I", true)
	require.NoError(t, err)
	require.Equal(t, int32(5), e.GetStaticIntField(cls, counter))

	got := f.callStatic(t, "bump", "()I")
	require.Equal(t, int32(6), got.Int())
	require.Equal(t, int32(6), e.GetStaticIntField(cls, counter))

	e.SetStaticIntField(cls, counter, 10)
	got = f.callStatic(t, "bump", "()I")
	require.Equal(t, int32(11), got.Int())

	limit, err := e.GetStaticFieldID(cls, "limit", "J")
	require.NoError(t, err)
	require.Equal(t, int64(100), e.GetStaticLongField(cls, limit))
	e.SetStaticLongField(cls, limit, 1)
	require.Equal(t, int64(100), e.GetStaticLongField(cls, limit), "immutable globals ignore writes")
}

func TestDeclaredFields(t *testing.T) {
	f := newFixture(t)
	spec := ClassSpec{
		Name:   "test/Calc",
		Fields: []FieldSpec{{Name: "ready", Export: "counter", Signature: "Z"}},
	}
	_, err := f.loader.Load(f.ctx, f.vm, spec, calcModule("test/Calc"))
	require.NoError(t, err)

	cls, ready, err := f.env.ResolveField("test/Calc", "ready", "Z", true)
	require.NoError(t, err)
	require.True(t, f.env.GetStaticBooleanField(cls, ready))
	_, err = f.env.GetStaticFieldID(cls, "limit", "J")
	require.Error(t, err)
}

func TestLoad_Rejected(t *testing.T) {
	loadErr := &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData}

	tests := []struct {
		name string
		spec ClassSpec
		wasm []byte
	}{
		{"no name", ClassSpec{}, calcModule("test/Calc")},
		{"not wasm", ClassSpec{Name: "test/Calc"}, []byte("not wasm")},
		{"param kind", ClassSpec{Name: "test/Calc", Methods: []MethodSpec{{Name: "add", Signature: "(JI)I"}}}, calcModule("test/Calc")},
		{"param count", ClassSpec{Name: "test/Calc", Methods: []MethodSpec{{Name: "add", Signature: "(I)I"}}}, calcModule("test/Calc")},
		{"void return", ClassSpec{Name: "test/Calc", Methods: []MethodSpec{{Name: "add", Signature: "(II)V"}}}, calcModule("test/Calc")},
		{"bad descriptor", ClassSpec{Name: "test/Calc", Methods: []MethodSpec{{Name: "add", Signature: "(II"}}}, calcModule("test/Calc")},
		{"missing export", ClassSpec{Name: "test/Calc", Methods: []MethodSpec{{Name: "mul"}}}, calcModule("test/Calc")},
		{"native kind", ClassSpec{Name: "test/Calc", Natives: []NativeSpec{{Name: "hook", Signature: "(I)I"}}}, calcModule("test/Calc")},
		{"foreign import", ClassSpec{Name: "test/Calc"}, calcModule("env")},
		{"field kind", ClassSpec{Name: "test/Calc", Fields: []FieldSpec{{Name: "limit", Signature: "I"}}}, calcModule("test/Calc")},
		{"missing global", ClassSpec{Name: "test/Calc", Fields: []FieldSpec{{Name: "nope"}}}, calcModule("test/Calc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.loader.Load(f.ctx, f.vm, tt.spec, tt.wasm)
			require.ErrorIs(t, err, loadErr)
			_, defined := f.vm.Class("test/Calc")
			require.False(t, defined)
		})
	}
}

func TestLoad_DuplicateClass(t *testing.T) {
	f := newFixture(t)
	_, err := f.loader.Load(f.ctx, f.vm, ClassSpec{Name: "test/Calc"}, calcModule("test/Calc"))
	require.NoError(t, err)
	_, err = f.loader.Load(f.ctx, f.vm, ClassSpec{Name: "test/Calc"}, calcModule("test/Calc"))
	require.Error(t, err)
}

func TestClassClose(t *testing.T) {
	f := newFixture(t)
	c, err := f.loader.Load(f.ctx, f.vm, ClassSpec{Name: "test/Calc"}, calcModule("test/Calc"))
	require.NoError(t, err)
	require.NoError(t, c.Close(f.ctx))

	f.callStatic(t, "add", "(II)I", value.IntValue(1), value.IntValue(2))
	require.True(t, f.env.ExceptionCheck())
	f.env.ExceptionClear()
}

func TestExportedGlobals(t *testing.T) {
	names, err := exportedGlobals(calcModule("test/Calc"))
	require.NoError(t, err)
	require.Equal(t, []string{"counter", "limit"}, names)

	_, err = exportedGlobals([]byte{1, 2, 3})
	require.Error(t, err)

	names, err = exportedGlobals(testModule{funcs: []testFunc{{export: "f"}}}.encode())
	require.NoError(t, err)
	require.Empty(t, names)
}
