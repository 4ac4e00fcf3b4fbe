package vmbridge

import "github.com/wippyai/vmbridge/value"

// NativeFunc implements a native method. args holds the declared parameters
// in order; the returned union is read per the declared return type.
type NativeFunc func(env NativeEnv, receiver value.Ref, args *value.VaList) value.Value

// NativeMethod pairs a member name and descriptor with its implementation.
type NativeMethod struct {
	Fn        NativeFunc
	Name      string
	Signature string
}

// Machine is the runtime lifecycle collaborator.
type Machine interface {
	// AttachCurrentThread returns the calling thread's env, attaching it if needed.
	AttachCurrentThread() (NativeEnv, Status)

	// DetachCurrentThread detaches the calling thread. Detaching a thread
	// that was never attached returns ErrDetached.
	DetachCurrentThread() Status

	// GetEnv returns the env of an attached thread, or ErrDetached.
	GetEnv(version int32) (NativeEnv, Status)

	// DestroyVM shuts the runtime down.
	DestroyVM() Status
}

// NativeEnv is the per-thread function table of a managed runtime. Calls
// report failure only by leaving a pending exception; return values are then
// meaningless. A NativeEnv must only be used on the thread it was issued for.
type NativeEnv interface {
	GetVersion() int32
	GetMachine() (Machine, Status)

	FindClass(name string) value.Ref
	GetSuperclass(cls value.Ref) value.Ref
	IsAssignableFrom(sub, sup value.Ref) bool
	GetObjectClass(obj value.Ref) value.Ref
	IsInstanceOf(obj, cls value.Ref) bool

	GetMethodID(cls value.Ref, name, sig string) MethodID
	GetStaticMethodID(cls value.Ref, name, sig string) MethodID
	GetFieldID(cls value.Ref, name, sig string) FieldID
	GetStaticFieldID(cls value.Ref, name, sig string) FieldID

	NewLocalRef(ref value.Ref) value.Ref
	DeleteLocalRef(ref value.Ref)
	NewGlobalRef(ref value.Ref) value.Ref
	DeleteGlobalRef(ref value.Ref)
	IsSameObject(a, b value.Ref) bool
	GetObjectRefType(ref value.Ref) RefType
	EnsureLocalCapacity(capacity int32) Status
	PushLocalFrame(capacity int32) Status
	PopLocalFrame(result value.Ref) value.Ref

	// Invocation takes a contiguous block holding one union per declared
	// parameter.
	AllocObject(cls value.Ref) value.Ref
	NewObjectA(cls value.Ref, ctor MethodID, args []value.Value) value.Ref
	CallMethodA(obj value.Ref, m MethodID, args []value.Value) value.Value
	CallNonvirtualMethodA(obj, cls value.Ref, m MethodID, args []value.Value) value.Value
	CallStaticMethodA(cls value.Ref, m MethodID, args []value.Value) value.Value

	GetField(obj value.Ref, f FieldID) value.Value
	SetField(obj value.Ref, f FieldID, v value.Value)
	GetStaticField(cls value.Ref, f FieldID) value.Value
	SetStaticField(cls value.Ref, f FieldID, v value.Value)

	Throw(obj value.Ref) Status
	ThrowNew(cls value.Ref, msg string) Status
	ExceptionOccurred() value.Ref
	ExceptionDescribe()
	ExceptionClear()
	ExceptionCheck() bool
	FatalError(msg string)

	RegisterNatives(cls value.Ref, methods []NativeMethod) Status
	UnregisterNatives(cls value.Ref) Status

	NewStringUTF(s string) value.Ref
	GetStringUTFChars(str value.Ref) string
	GetStringLength(str value.Ref) int32
	GetStringUTFLength(str value.Ref) int32

	GetArrayLength(arr value.Ref) int32
	NewPrimitiveArray(elem value.Kind, length int32) value.Ref
	NewObjectArray(length int32, elemCls, init value.Ref) value.Ref
	GetObjectArrayElement(arr value.Ref, index int32) value.Ref
	SetObjectArrayElement(arr value.Ref, index int32, v value.Ref)
	GetArrayRegion(arr value.Ref, start int32, buf []value.Value)
	SetArrayRegion(arr value.Ref, start int32, buf []value.Value)
}
