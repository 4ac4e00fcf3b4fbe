// Package wasmvm defines simvm classes whose static methods are WebAssembly
// functions executed by wazero.
//
// A class is described by a ClassSpec. Every listed export becomes a static
// method, every exported global a static field. Functions the module imports
// from a module named after the class become native methods of that class:
// the wasm code calls them through the VM's native table, so they are bound
// with RegisterNatives like any other native.
//
//	(import "demo/Calc" "log" (func $log (param i64)))
//
// Wasm has no exceptions. A trap raises java/lang/RuntimeException in the
// calling thread; an exception raised by a native called from wasm aborts the
// wasm call and stays pending unchanged.
package wasmvm

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
	"github.com/wippyai/vmbridge/vm/simvm"
)

// ClassSpec describes a class backed by a wasm module.
type ClassSpec struct {
	Name    string
	Super   string
	Methods []MethodSpec // empty: every exported function with derived descriptors
	Natives []NativeSpec
	Fields  []FieldSpec // empty: every exported global with derived types
}

// MethodSpec maps an exported function to a static method.
type MethodSpec struct {
	Name      string
	Export    string // defaults to Name
	Signature string // derived from the wasm type when empty
}

// NativeSpec declares a native method. If the module imports a function of
// that name from the class's module, the import is wired to it.
type NativeSpec struct {
	Name      string
	Signature string
}

// FieldSpec maps an exported global to a static field. Immutable globals
// ignore writes.
type FieldSpec struct {
	Name      string
	Export    string
	Signature string
}

// Config holds loader configuration.
type Config struct {
	// MemoryLimitPages caps linear memory per module in 64KiB pages.
	// 0 keeps the wazero default.
	MemoryLimitPages uint32
}

// Loader compiles and instantiates wasm classes in one wazero runtime.
// Host module names are the class names, so each class name can be loaded
// once per Loader.
type Loader struct {
	runtime wazero.Runtime
	mu      sync.Mutex
	classes []*Class
}

// NewLoader creates a loader with its own wazero runtime.
func NewLoader(ctx context.Context, cfg *Config) *Loader {
	rc := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Loader{runtime: wazero.NewRuntimeWithConfig(ctx, rc)}
}

// Close closes every loaded module and the runtime.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	l.classes = nil
	l.mu.Unlock()
	return l.runtime.Close(ctx)
}

// Class is a loaded wasm class.
type Class struct {
	Class    *simvm.Class
	ctx      context.Context
	module   api.Module
	host     api.Module
	compiled wazero.CompiledModule
	natives  []*nativeImport
	Name     string
}

// Close releases the wasm instances. The class stays defined in its VM;
// its methods throw once closed.
func (c *Class) Close(ctx context.Context) error {
	err := c.module.Close(ctx)
	if c.host != nil {
		if herr := c.host.Close(ctx); err == nil {
			err = herr
		}
	}
	if cerr := c.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

type threadKey struct{}

// errPending aborts a wasm call after a native left an exception pending.
var errPending = stderrors.New("exception pending")

// nativeImport is a wasm import served by a native method of the class.
type nativeImport struct {
	method *simvm.Method
	class  string
	name   string
	sig    value.MethodSignature
}

// call runs on the wasm stack. The thread comes from the calling method's
// context.
func (n *nativeImport) call(ctx context.Context, _ api.Module, stack []uint64) {
	t, _ := ctx.Value(threadKey{}).(*simvm.Thread)
	if t == nil || n.method == nil {
		panic(errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Member(n.class + "." + n.name).
			Detail("native called outside a managed method").
			Build())
	}
	args := make([]value.Value, len(n.sig.Params))
	for i, p := range n.sig.Params {
		args[i] = toValue(p, stack[i])
	}
	cls := t.FindClass(n.class)
	res := t.CallStaticMethodA(cls, n.method.ID, args)
	t.DeleteLocalRef(cls)
	if t.ExceptionCheck() {
		panic(errPending)
	}
	if n.sig.Return.Kind != value.Void {
		stack[0] = toStack(n.sig.Return, res)
	}
}

// Load compiles wasm, instantiates it against the class's natives and
// defines spec.Name in vm.
func (l *Loader) Load(ctx context.Context, vm *simvm.VM, spec ClassSpec, wasm []byte) (*Class, error) {
	if spec.Name == "" {
		return nil, errors.Load("class name is required", nil)
	}
	compiled, err := l.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile "+spec.Name, err)
	}
	c := &Class{Name: spec.Name, ctx: ctx, compiled: compiled}
	fail := func(err error) (*Class, error) {
		if c.module != nil {
			_ = c.module.Close(ctx)
		}
		if c.host != nil {
			_ = c.host.Close(ctx)
		}
		_ = compiled.Close(ctx)
		return nil, err
	}

	def := simvm.ClassDef{Name: spec.Name, Super: spec.Super}

	natives, err := l.bindImports(ctx, c, spec, compiled)
	if err != nil {
		return fail(err)
	}
	def.Methods = append(def.Methods, natives...)

	mod, err := l.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return fail(errors.Load("instantiate "+spec.Name, err))
	}
	c.module = mod

	methods, err := c.methods(spec, compiled)
	if err != nil {
		return fail(err)
	}
	def.Methods = append(def.Methods, methods...)

	fields, err := c.fields(spec, wasm)
	if err != nil {
		return fail(err)
	}
	def.Fields = fields

	cls, err := vm.DefineClass(def)
	if err != nil {
		return fail(err)
	}
	c.Class = cls
	for _, n := range c.natives {
		n.method = cls.Method(n.name, n.sig.String())
	}

	l.mu.Lock()
	l.classes = append(l.classes, c)
	l.mu.Unlock()
	Logger().Debug("loaded wasm class",
		zap.String("class", spec.Name),
		zap.Int("methods", len(methods)),
		zap.Int("natives", len(natives)),
		zap.Int("fields", len(fields)))
	return c, nil
}

// bindImports declares the class's natives and builds the host module that
// serves the module's imports from them.
func (l *Loader) bindImports(ctx context.Context, c *Class, spec ClassSpec, compiled wazero.CompiledModule) ([]simvm.MethodDef, error) {
	declared := make(map[string]NativeSpec, len(spec.Natives))
	for _, n := range spec.Natives {
		declared[n.Name] = n
	}

	var builder wazero.HostModuleBuilder
	var defs []simvm.MethodDef
	seen := make(map[string]bool)
	for _, fn := range compiled.ImportedFunctions() {
		modName, name, _ := fn.Import()
		if modName != spec.Name {
			return nil, errors.Load("unresolved import "+modName+"."+name, nil)
		}
		sig, err := resolveSignature(declared[name].Signature, fn.ParamTypes(), fn.ResultTypes())
		if err != nil {
			return nil, errors.Load("native "+spec.Name+"."+name, err)
		}
		n := &nativeImport{class: spec.Name, name: name, sig: sig}
		c.natives = append(c.natives, n)
		if builder == nil {
			builder = l.runtime.NewHostModuleBuilder(spec.Name)
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(n.call), fn.ParamTypes(), fn.ResultTypes()).
			Export(name)
		defs = append(defs, simvm.MethodDef{Name: name, Signature: sig.String(), Static: true, Native: true})
		seen[name] = true
	}
	for _, n := range spec.Natives {
		if seen[n.Name] {
			continue
		}
		if _, err := value.ParseMethodSignature(n.Signature); err != nil {
			return nil, errors.Load("native "+spec.Name+"."+n.Name, err)
		}
		defs = append(defs, simvm.MethodDef{Name: n.Name, Signature: n.Signature, Static: true, Native: true})
	}

	if builder != nil {
		host, err := builder.Instantiate(ctx)
		if err != nil {
			return nil, errors.Load("host module "+spec.Name, err)
		}
		c.host = host
	}
	return defs, nil
}

func (c *Class) methods(spec ClassSpec, compiled wazero.CompiledModule) ([]simvm.MethodDef, error) {
	exports := compiled.ExportedFunctions()
	list := spec.Methods
	if len(list) == 0 {
		names := make([]string, 0, len(exports))
		for name := range exports {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			list = append(list, MethodSpec{Name: name})
		}
	}

	defs := make([]simvm.MethodDef, 0, len(list))
	for _, ms := range list {
		export := ms.Export
		if export == "" {
			export = ms.Name
		}
		fd, ok := exports[export]
		if !ok {
			return nil, errors.Load("no exported function "+export+" in "+spec.Name, nil)
		}
		sig, err := resolveSignature(ms.Signature, fd.ParamTypes(), fd.ResultTypes())
		if err != nil {
			return nil, errors.Load("method "+spec.Name+"."+ms.Name, err)
		}
		defs = append(defs, simvm.MethodDef{
			Name:      ms.Name,
			Signature: sig.String(),
			Static:    true,
			Impl:      c.impl(export, sig),
		})
	}
	return defs, nil
}

// impl adapts an exported function to a method body.
func (c *Class) impl(export string, sig value.MethodSignature) simvm.MethodImpl {
	return func(t *simvm.Thread, _ value.Ref, args []value.Value) value.Value {
		fn := c.module.ExportedFunction(export)
		if fn == nil {
			t.ThrowNew(t.FindClass("java/lang/IllegalStateException"), c.Name+" is closed")
			return value.Value{}
		}
		ctx := context.WithValue(c.ctx, threadKey{}, t)
		res, err := fn.Call(ctx, encodeParams(sig, args)...)
		if err != nil {
			var be *errors.Error
			if stderrors.As(err, &be) {
				panic(be)
			}
			if !t.ExceptionCheck() {
				msg := trapMessage(err)
				Logger().Debug("wasm trap",
					zap.String("class", c.Name),
					zap.String("export", export),
					zap.String("trap", msg))
				t.ThrowNew(t.FindClass("java/lang/RuntimeException"), msg)
			}
			return value.Value{}
		}
		if sig.Return.Kind == value.Void || len(res) == 0 {
			return value.Value{}
		}
		return toValue(sig.Return, res[0])
	}
}

// trapMessage drops the wasm stack trace wazero appends to trap errors.
func trapMessage(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

func (c *Class) fields(spec ClassSpec, wasm []byte) ([]simvm.FieldDef, error) {
	list := spec.Fields
	if len(list) == 0 {
		names, err := exportedGlobals(wasm)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			list = append(list, FieldSpec{Name: name})
		}
	}

	defs := make([]simvm.FieldDef, 0, len(list))
	for _, fs := range list {
		export := fs.Export
		if export == "" {
			export = fs.Name
		}
		g := c.module.ExportedGlobal(export)
		if g == nil {
			return nil, errors.Load("no exported global "+export+" in "+spec.Name, nil)
		}
		typ, err := resolveFieldType(fs.Signature, g.Type())
		if err != nil {
			return nil, errors.Load("field "+spec.Name+"."+fs.Name, err)
		}
		fd := simvm.FieldDef{
			Name:      fs.Name,
			Signature: typ.Descriptor(),
			Static:    true,
			Get:       func() value.Value { return toValue(typ, g.Get()) },
			Set:       func(value.Value) {},
		}
		if mg, ok := g.(api.MutableGlobal); ok {
			fd.Set = func(v value.Value) { mg.Set(toStack(typ, v)) }
		}
		defs = append(defs, fd)
	}
	return defs, nil
}
