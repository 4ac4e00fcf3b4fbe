// Package simvm is a managed runtime written in Go that implements the
// vmbridge boundary interfaces.
//
// Classes are defined from Go: methods carry a Go body (MethodImpl) or are
// declared native and bound later through RegisterNatives. Objects, strings,
// arrays and throwables live in the VM and are reached only through refs.
//
//	vm, native, st := simvm.Create(vmbridge.InitArgs{Version: vmbridge.Version1_8})
//	if st != vmbridge.OK {
//	    return st.Err(errors.PhaseLifecycle, "Create")
//	}
//	_, err := vm.DefineClass(simvm.ClassDef{
//	    Name: "demo/Echo",
//	    Methods: []simvm.MethodDef{{
//	        Name: "echo", Signature: "(I)I", Static: true,
//	        Impl: func(t *simvm.Thread, _ value.Ref, args []value.Value) value.Value {
//	            return args[0]
//	        },
//	    }},
//	})
//
// Every invocation runs in a fresh local frame that is popped on return, so
// locals created by a method body never leak into the caller; an object
// result is carried across into the caller's frame.
//
// Failures never surface as Go errors on the NativeEnv surface. They leave a
// pending throwable on the thread, inspected with ExceptionCheck and
// ExceptionOccurred.
//
// Options understood by Create:
//
//	-Xcheck:jni     enable contract checks in bridge layers (see CheckJNI)
//	-verbose:jni    log native registration
//	-Dkey=value     system property, readable via java/lang/System.getProperty
package simvm
