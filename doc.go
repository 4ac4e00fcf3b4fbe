// Package vmbridge connects native Go code to a managed virtual-machine
// runtime shaped like the JVM: classes, objects, method and field
// identifiers, throwables, and local or global references.
//
// The runtime is reached through two narrow boundary interfaces defined here.
// NativeEnv is the per-thread function table and Machine is the lifecycle
// collaborator. Everything above them is generic bridge logic:
//
//	vmbridge/            Boundary contracts: NativeEnv, Machine, status codes
//	├── value/           Value union, kinds, descriptors, variadic blocks
//	├── arglist/         Owned argument lists for dispatch
//	├── handle/          Generational reference tables and local frames
//	├── env/             Per-thread context: handles, dispatch, exceptions
//	├── trampoline/      Numbered callback entries routed to Go handlers
//	├── jvm/             Name-based object layer over env
//	├── vm/simvm/        Pure-Go managed runtime backend
//	├── vm/wasmvm/       Classes whose methods run as WebAssembly via wazero
//	├── config/          CUE startup configuration
//	├── errors/          Structured error types
//	└── cmd/vmbridge/    CLI and TUI over a configured bridge
//
// # Quick Start
//
// Create a runtime, wrap its function table and call a static method:
//
//	vm, native, st := simvm.Create(vmbridge.InitArgs{Version: vmbridge.Version1_8})
//	if st != vmbridge.OK {
//	    log.Fatal(st)
//	}
//	defer vm.DestroyVM()
//
//	e := env.New(native)
//	cls, err := e.FindClass("demo/Echo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m, err := e.GetStaticMethodID(cls, "echo", "(I)I")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	args, _ := arglist.Of(value.IntValue(42))
//	defer args.Release()
//	n := e.CallStaticIntMethodA(cls, m, args)
//	if err := e.TakeException(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Callbacks
//
// Calls flowing from the runtime back into Go go through a trampoline bank,
// a fixed set of numbered entries that dispatch on their slot:
//
//	bank := trampoline.NewBank(trampoline.DefaultSlots)
//	_, err := bank.Register(e, cls, "onEvent", "(F)F",
//	    trampoline.HandlerFunc(func(r *trampoline.Record) (value.Value, error) {
//	        return value.FloatValue(r.Args.Float() * 2), nil
//	    }))
//
// # Thread Safety
//
// A NativeEnv and the env.Env wrapping it belong to one OS thread. Other
// threads attach through Machine.AttachCurrentThread and get their own.
// Global references are the only handles meant to cross threads.
package vmbridge
