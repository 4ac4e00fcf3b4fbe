package trampoline

import (
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/arglist"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
	"github.com/wippyai/vmbridge/vm/simvm"
)

func newRuntime(t *testing.T) (*simvm.VM, *env.Env) {
	t.Helper()
	vm, native, st := simvm.Create(vmbridge.InitArgs{Version: vmbridge.Version1_8}, simvm.WithDiagnostics(io.Discard))
	require.Equal(t, vmbridge.OK, st)
	_, err := vm.DefineClass(simvm.ClassDef{
		Name: "test/Callbacks",
		Methods: []simvm.MethodDef{
			{Name: "twice", Signature: "(F)F", Static: true, Native: true},
			{Name: "greet", Signature: "(Ljava/lang/String;)Ljava/lang/String;", Static: true, Native: true},
			{Name: "boom", Signature: "()I", Static: true, Native: true},
		},
	})
	require.NoError(t, err)
	e := env.New(native, env.WithMuteExceptions(true))
	t.Cleanup(func() {
		e.Close()
		vm.DestroyVM()
	})
	return vm, e
}

func floats(vals ...float32) *value.VaList {
	out := make([]value.Value, len(vals))
	for i, f := range vals {
		out[i] = value.FloatValue(f)
	}
	return value.NewVaList(out)
}

func TestEntry_SlotTwoDoublesFloat(t *testing.T) {
	_, e := newRuntime(t)
	receiver := e.NewStringUTF("receiver")

	b := NewBank(0)
	require.Equal(t, DefaultSlots, b.Len())

	var seen *Record
	require.NoError(t, b.Bind(2, HandlerFunc(func(rec *Record) (value.Value, error) {
		seen = rec
		return value.FloatValue(rec.Args.Float() * 2), nil
	})))

	out := b.Entry(2)(e.Native(), receiver, floats(3.5))
	require.Equal(t, float32(7.0), out.Float())
	require.False(t, e.ExceptionCheck())

	require.NotNil(t, seen)
	require.Equal(t, 2, seen.Slot)
	require.Equal(t, receiver, seen.Receiver)
	require.Equal(t, e.Native(), seen.Env)
}

func TestEntry_Stable(t *testing.T) {
	b := NewBank(3)
	require.NotNil(t, b.Entry(0))
	require.NotNil(t, b.Entry(2))
	require.Nil(t, b.Entry(3))
	require.Nil(t, b.Entry(-1))
}

func TestBindUnbind(t *testing.T) {
	b := NewBank(2)
	h := HandlerFunc(func(*Record) (value.Value, error) { return value.Value{}, nil })

	err := b.Bind(2, h)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCallback, Kind: errors.KindOutOfBounds})
	require.Error(t, b.Bind(0, nil))

	require.NoError(t, b.Bind(1, h))
	require.True(t, b.Bound(1))
	require.Error(t, b.Bind(1, h), "slot already bound")

	require.NoError(t, b.Unbind(1))
	require.False(t, b.Bound(1))
	err = b.Unbind(1)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCallback, Kind: errors.KindDoubleRelease})
}

func TestAcquire(t *testing.T) {
	b := NewBank(2)
	h := HandlerFunc(func(*Record) (value.Value, error) { return value.Value{}, nil })

	s0, err := b.Acquire(h)
	require.NoError(t, err)
	s1, err := b.Acquire(h)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, []int{s0, s1})

	_, err = b.Acquire(h)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCallback, Kind: errors.KindAllocation})

	require.NoError(t, b.Unbind(0))
	s, err := b.Acquire(h)
	require.NoError(t, err)
	require.Equal(t, 0, s)
}

func TestRegister_DispatchesThroughRuntime(t *testing.T) {
	_, e := newRuntime(t)
	b := NewBank(0)
	cls, err := e.FindClass("test/Callbacks")
	require.NoError(t, err)

	slot, err := b.Register(e, cls, "twice", "(F)F", HandlerFunc(func(rec *Record) (value.Value, error) {
		require.Equal(t, "twice", rec.Name)
		require.Equal(t, "(F)F", rec.Signature.String())
		return value.FloatValue(rec.Args.Float() * 2), nil
	}))
	require.NoError(t, err)
	require.Equal(t, 0, slot)

	_, err = b.Register(e, cls, "greet", "(Ljava/lang/String;)Ljava/lang/String;", HandlerFunc(func(rec *Record) (value.Value, error) {
		name := rec.Env.GetStringUTFChars(rec.Args.Object())
		return value.ObjValue(rec.Env.NewStringUTF("hello, " + name)), nil
	}))
	require.NoError(t, err)

	twice, err := e.GetStaticMethodID(cls, "twice", "(F)F")
	require.NoError(t, err)
	args, _ := arglist.Of(value.FloatValue(1.25))
	defer args.Release()
	require.Equal(t, float32(2.5), e.CallStaticFloatMethodA(cls, twice, args))

	greet, err := e.GetStaticMethodID(cls, "greet", "(Ljava/lang/String;)Ljava/lang/String;")
	require.NoError(t, err)
	sargs, _ := arglist.Of(value.ObjValue(e.NewStringUTF("bridge")))
	defer sargs.Release()
	res := e.CallStaticObjectMethodA(cls, greet, sargs)
	require.NoError(t, e.TakeException())
	require.Equal(t, "hello, bridge", e.GetStringUTF(res))
}

func TestRegister_Rejected(t *testing.T) {
	_, e := newRuntime(t)
	b := NewBank(1)
	cls, err := e.FindClass("test/Callbacks")
	require.NoError(t, err)
	h := HandlerFunc(func(*Record) (value.Value, error) { return value.Value{}, nil })

	_, err = b.Register(e, cls, "missing", "()V", h)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseRegister, Kind: errors.KindRegistration})
	require.False(t, b.Bound(0), "slot is freed after a rejected binding")
	require.False(t, e.ExceptionCheck())

	_, err = b.Register(e, cls, "twice", "(F", h)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseMarshal, Kind: errors.KindSignature})
	require.False(t, b.Bound(0))
}

func TestFailure_ThrowsIntoRuntime(t *testing.T) {
	tests := []struct {
		name      string
		handler   HandlerFunc
		wantClass string
		wantMsg   string
	}{
		{
			name: "plain error",
			handler: func(*Record) (value.Value, error) {
				return value.IntValue(99), stderrors.New("lookup failed")
			},
			wantClass: "java.lang.RuntimeException",
			wantMsg:   "lookup failed",
		},
		{
			name: "throw error selects class",
			handler: func(*Record) (value.Value, error) {
				return value.Value{}, Throw("java/lang/IllegalArgumentException", "bad input %d", 3)
			},
			wantClass: "java.lang.IllegalArgumentException",
			wantMsg:   "bad input 3",
		},
		{
			name: "pending exception preserved",
			handler: func(rec *Record) (value.Value, error) {
				cls := rec.Env.FindClass("java/lang/ArithmeticException")
				rec.Env.ThrowNew(cls, "/ by zero")
				return value.Value{}, stderrors.New("division")
			},
			wantClass: "java.lang.ArithmeticException",
			wantMsg:   "/ by zero",
		},
		{
			name: "panic recovered",
			handler: func(*Record) (value.Value, error) {
				panic("handler bug")
			},
			wantClass: "java.lang.RuntimeException",
			wantMsg:   "handler panicked: handler bug",
		},
		{
			name: "unknown class",
			handler: func(*Record) (value.Value, error) {
				return value.Value{}, Throw("com/example/Nope", "x")
			},
			wantClass: "java.lang.NoClassDefFoundError",
			wantMsg:   "com/example/Nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, e := newRuntime(t)
			b := NewBank(0)
			cls, err := e.FindClass("test/Callbacks")
			require.NoError(t, err)
			_, err = b.Register(e, cls, "boom", "()I", tt.handler)
			require.NoError(t, err)
			m, err := e.GetStaticMethodID(cls, "boom", "()I")
			require.NoError(t, err)

			got := e.CallStaticIntMethodA(cls, m, nil)
			require.Equal(t, int32(0), got, "failure returns the zero value")
			require.True(t, e.ExceptionCheck())

			err = e.TakeException()
			var exc *env.Exception
			require.True(t, stderrors.As(err, &exc))
			require.Equal(t, tt.wantClass, exc.Class)
			require.True(t, strings.Contains(exc.Message, tt.wantMsg), exc.Message)
		})
	}
}

func TestUnboundSlotFails(t *testing.T) {
	_, e := newRuntime(t)
	b := NewBank(0)

	out := b.Entry(5)(e.Native(), value.Null, floats())
	require.True(t, out.IsZero())
	err := e.TakeException()
	require.Error(t, err)
	require.Contains(t, err.Error(), "trampoline slot 5 has no handler")
}

func TestContractViolationPropagates(t *testing.T) {
	_, e := newRuntime(t)
	b := NewBank(0)
	violation := errors.PendingException("CallStaticIntMethodA")
	require.NoError(t, b.Bind(0, HandlerFunc(func(*Record) (value.Value, error) {
		panic(violation)
	})))

	require.PanicsWithValue(t, violation, func() {
		b.Entry(0)(e.Native(), value.Null, floats())
	})
	require.False(t, e.ExceptionCheck())
}
