// Package env is the per-thread bridge context over a vmbridge.NativeEnv.
//
// An Env bundles the three core services a native caller needs:
//
//   - Handle management: local and global refs, identity comparison,
//     local frames, and owned globals that release exactly once.
//   - Dispatch: Call<Kind>MethodA and CallStatic<Kind>MethodA for every
//     return kind, taking an *arglist.List, plus NewObjectA over a
//     contiguous block and typed field access.
//   - The exception channel: after each dispatch, ExceptionCheck or
//     TakeException must be consulted before the next call.
//
// Typical use resolves members once and reuses the ids:
//
//	e := env.New(native)
//	cls, m, err := e.ResolveMethod("demo/Echo", "echo", "(I)I", true)
//	if err != nil {
//	    return err
//	}
//	args, err := arglist.Of(value.IntValue(42))
//	if err != nil {
//	    return err
//	}
//	defer args.Release()
//
//	n := e.CallStaticIntMethodA(cls, m, args)
//	if err := e.TakeException(); err != nil {
//	    return err // *env.Exception
//	}
//
// # Checked mode
//
// With WithChecks(true), or when the runtime was started with -Xcheck:jni,
// contract violations panic with an *errors.Error: use from a thread other
// than the creating one, calls issued while an exception is pending, dead
// refs, argument lists shorter than the method's parameter list, and typed
// calls whose kind disagrees with the resolved descriptor. Without checks the
// same conditions are logged at warn level and the call proceeds.
package env
