package simvm

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/handle"
	"github.com/wippyai/vmbridge/internal/osthread"
	"github.com/wippyai/vmbridge/value"
)

// Option configures a VM.
type Option func(*VM)

// WithDiagnostics sets the stream ExceptionDescribe writes to. Defaults to
// os.Stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(vm *VM) { vm.diag = w }
}

// WithFatalHandler replaces the default FatalError behavior, which panics.
func WithFatalHandler(fn func(msg string)) Option {
	return func(vm *VM) { vm.fatal = fn }
}

// VM is a pure-Go managed runtime. It implements vmbridge.Machine.
type VM struct {
	diag     io.Writer
	fatal    func(msg string)
	globals  *handle.Table[*Object]
	classes  map[string]*Class
	threads  map[int]*Thread
	props    map[string]string
	main     *Thread
	methods  []*Method
	fields   []*Field
	version  int32
	nextID   atomic.Uint64
	nthreads int
	mu       sync.RWMutex
	diagMu   sync.Mutex

	checkJNI  bool
	verbose   bool
	destroyed bool
}

var _ vmbridge.Machine = (*VM)(nil)

// Create starts a VM and returns it with the env of the calling thread,
// which becomes the "main" thread.
func Create(args vmbridge.InitArgs, opts ...Option) (*VM, vmbridge.NativeEnv, vmbridge.Status) {
	if !supportedVersion(args.Version) {
		return nil, nil, vmbridge.ErrVersion
	}
	vm := &VM{
		diag:    os.Stderr,
		globals: handle.NewTable[*Object](handle.ScopeGlobal),
		classes: make(map[string]*Class),
		threads: make(map[int]*Thread),
		props:   make(map[string]string),
		version: args.Version,
	}
	vm.fatal = func(msg string) {
		panic(errors.New(errors.PhaseLifecycle, errors.KindInvalidData).
			Detail("fatal error: %s", msg).
			Build())
	}
	for _, o := range opts {
		o(vm)
	}

	for _, opt := range args.Options {
		switch {
		case opt == "-Xcheck:jni":
			vm.checkJNI = true
		case opt == "-verbose:jni":
			vm.verbose = true
		case strings.HasPrefix(opt, "-D"):
			k, v, _ := strings.Cut(opt[2:], "=")
			vm.props[k] = v
		default:
			if !args.IgnoreUnrecognized {
				Logger().Warn("unrecognized VM option", zap.String("option", opt))
				return nil, nil, vmbridge.ErrInvalid
			}
			Logger().Debug("ignoring VM option", zap.String("option", opt))
		}
	}

	vm.bootstrap()
	vm.main = vm.newThread("main", osthread.ID())
	return vm, vm.main, vmbridge.OK
}

func supportedVersion(v int32) bool {
	switch v {
	case vmbridge.Version1_1, vmbridge.Version1_2, vmbridge.Version1_4,
		vmbridge.Version1_6, vmbridge.Version1_8:
		return true
	}
	return false
}

// CheckJNI reports whether -Xcheck:jni was given.
func (vm *VM) CheckJNI() bool { return vm.checkJNI }

// Property returns a -D system property.
func (vm *VM) Property(key string) (string, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	v, ok := vm.props[key]
	return v, ok
}

// Main returns the thread that created the VM.
func (vm *VM) Main() *Thread { return vm.main }

// GlobalRefs returns the number of live global refs.
func (vm *VM) GlobalRefs() int { return vm.globals.Len() }

// Globals exposes the global ref table, e.g. to subscribe observers.
func (vm *VM) Globals() *handle.Table[*Object] { return vm.globals }

func (vm *VM) newThread(name string, tid int) *Thread {
	t := &Thread{
		vm:     vm,
		name:   name,
		tid:    tid,
		locals: handle.NewFrames[*Object](),
	}
	vm.mu.Lock()
	vm.threads[tid] = t
	vm.nthreads++
	vm.mu.Unlock()
	return t
}

// AttachCurrentThread returns the calling thread's env, attaching it first
// if the thread is new to the VM.
func (vm *VM) AttachCurrentThread() (vmbridge.NativeEnv, vmbridge.Status) {
	if vm.isDestroyed() {
		return nil, vmbridge.ErrGeneric
	}
	tid := osthread.ID()
	vm.mu.RLock()
	t, ok := vm.threads[tid]
	n := vm.nthreads
	vm.mu.RUnlock()
	if ok {
		return t, vmbridge.OK
	}
	t = vm.newThread("Thread-"+strconv.Itoa(n), tid)
	Logger().Debug("attached thread", zap.String("thread", t.name), zap.Int("tid", tid))
	return t, vmbridge.OK
}

// DetachCurrentThread releases the calling thread's locals and forgets it.
func (vm *VM) DetachCurrentThread() vmbridge.Status {
	tid := osthread.ID()
	vm.mu.Lock()
	t, ok := vm.threads[tid]
	if ok {
		delete(vm.threads, tid)
	}
	vm.mu.Unlock()
	if !ok {
		return vmbridge.ErrDetached
	}
	t.detach()
	return vmbridge.OK
}

// GetEnv returns the calling thread's env if it is attached.
func (vm *VM) GetEnv(version int32) (vmbridge.NativeEnv, vmbridge.Status) {
	if !supportedVersion(version) {
		return nil, vmbridge.ErrVersion
	}
	vm.mu.RLock()
	t, ok := vm.threads[osthread.ID()]
	vm.mu.RUnlock()
	if !ok {
		return nil, vmbridge.ErrDetached
	}
	return t, vmbridge.OK
}

// DestroyVM releases every global and detaches all threads.
func (vm *VM) DestroyVM() vmbridge.Status {
	vm.mu.Lock()
	if vm.destroyed {
		vm.mu.Unlock()
		return vmbridge.ErrGeneric
	}
	vm.destroyed = true
	threads := vm.threads
	vm.threads = make(map[int]*Thread)
	vm.mu.Unlock()

	for _, t := range threads {
		t.detach()
	}
	vm.globals.Clear()
	return vmbridge.OK
}

func (vm *VM) isDestroyed() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.destroyed
}

// Class returns a defined class by slash-separated name.
func (vm *VM) Class(name string) (*Class, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	c, ok := vm.classes[name]
	return c, ok
}

// Classes returns the names of all defined non-array classes.
func (vm *VM) Classes() []string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]string, 0, len(vm.classes))
	for name, c := range vm.classes {
		if c.elem == nil {
			out = append(out, name)
		}
	}
	return out
}

// DefineClass validates def and adds the class to the VM.
func (vm *VM) DefineClass(def ClassDef) (*Class, error) {
	if def.Name == "" || strings.ContainsAny(def.Name, ".;[") {
		return nil, errors.Load("invalid class name "+strconv.Quote(def.Name), nil)
	}
	superName := def.Super
	if superName == "" && def.Name != "java/lang/Object" {
		superName = "java/lang/Object"
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if _, exists := vm.classes[def.Name]; exists {
		return nil, errors.Load("class "+def.Name+" already defined", nil)
	}
	var super *Class
	if superName != "" {
		var ok bool
		if super, ok = vm.classes[superName]; !ok {
			return nil, errors.Load("superclass "+superName+" of "+def.Name+" not defined", nil)
		}
	}

	c := &Class{
		vm:      vm,
		Name:    def.Name,
		Super:   super,
		methods: make(map[string]*Method, len(def.Methods)),
		fields:  make(map[string]*Field, len(def.Fields)),
	}
	if super != nil {
		c.nFields = super.nFields
	}

	var methods []*Method
	for _, md := range def.Methods {
		sig, err := value.ParseMethodSignature(md.Signature)
		if err != nil {
			return nil, errors.Load("method "+def.Name+"."+md.Name, err)
		}
		if md.Native == (md.Impl != nil) {
			return nil, errors.Load("method "+def.Name+"."+md.Name+md.Signature+" must be native or have a body", nil)
		}
		if md.Name == "<init>" && (md.Static || sig.Return.Kind != value.Void) {
			return nil, errors.Load("constructor of "+def.Name+" must be an instance method returning void", nil)
		}
		key := md.Name + md.Signature
		if _, dup := c.methods[key]; dup {
			return nil, errors.Load("duplicate method "+def.Name+"."+key, nil)
		}
		m := &Method{
			Class:     c,
			Impl:      md.Impl,
			Name:      md.Name,
			Signature: md.Signature,
			Sig:       sig,
			Static:    md.Static,
			Native:    md.Native,
		}
		c.methods[key] = m
		methods = append(methods, m)
	}

	var fields []*Field
	for _, fd := range def.Fields {
		typ, err := value.ParseFieldType(fd.Signature)
		if err != nil {
			return nil, errors.Load("field "+def.Name+"."+fd.Name, err)
		}
		if _, dup := c.fields[fd.Name]; dup {
			return nil, errors.Load("duplicate field "+def.Name+"."+fd.Name, nil)
		}
		f := &Field{
			Class:     c,
			Name:      fd.Name,
			Signature: fd.Signature,
			Type:      typ,
			Static:    fd.Static,
			get:       fd.Get,
			set:       fd.Set,
		}
		if fd.Static {
			f.static.v = fd.Initial
		} else {
			f.slot = c.nFields
			c.nFields++
		}
		c.fields[fd.Name] = f
		fields = append(fields, f)
	}

	for _, m := range methods {
		vm.methods = append(vm.methods, m)
		m.ID = vmbridge.MethodID(len(vm.methods))
	}
	for _, f := range fields {
		vm.fields = append(vm.fields, f)
		f.ID = vmbridge.FieldID(len(vm.fields))
	}
	c.mirror = vm.mirrorLocked(c)
	vm.classes[c.Name] = c
	return c, nil
}

// mirrorLocked builds the java/lang/Class object for c. Classes defined
// before java/lang/Class get their mirror class patched in by bootstrap.
func (vm *VM) mirrorLocked(c *Class) *Object {
	return &Object{class: vm.classes["java/lang/Class"], mirror: c, id: vm.nextID.Add(1)}
}

// arrayClass returns the class of arrays of elem, creating it on first use.
func (vm *VM) arrayClass(elem value.Type) *Class {
	name := value.ArrayOf(elem).Descriptor()
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if c, ok := vm.classes[name]; ok {
		return c
	}
	e := elem
	c := &Class{
		vm:      vm,
		Name:    name,
		Super:   vm.classes["java/lang/Object"],
		methods: map[string]*Method{},
		fields:  map[string]*Field{},
		elem:    &e,
	}
	c.mirror = vm.mirrorLocked(c)
	vm.classes[name] = c
	return c
}

func (vm *VM) method(id vmbridge.MethodID) *Method {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if id == 0 || int(id) > len(vm.methods) {
		return nil
	}
	return vm.methods[id-1]
}

func (vm *VM) field(id vmbridge.FieldID) *Field {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if id == 0 || int(id) > len(vm.fields) {
		return nil
	}
	return vm.fields[id-1]
}

func (vm *VM) newObject(c *Class) *Object {
	return &Object{class: c, fields: make([]cell, c.nFields), id: vm.nextID.Add(1)}
}

func (vm *VM) newString(s string) *Object {
	o := vm.newObject(vm.mustClass("java/lang/String"))
	o.str = s
	return o
}

func (vm *VM) mustClass(name string) *Class {
	c, ok := vm.Class(name)
	if !ok {
		panic("simvm: bootstrap class " + name + " missing")
	}
	return c
}

// lookupClass accepts slash names and array descriptors.
func (vm *VM) lookupClass(name string) *Class {
	if c, ok := vm.Class(name); ok {
		return c
	}
	if strings.HasPrefix(name, "[") {
		t, err := value.ParseFieldType(name)
		if err != nil {
			return nil
		}
		elem := t.Elem()
		if elem.Dims == 0 && elem.Kind == value.Object {
			if _, ok := vm.Class(elem.Class); !ok {
				return nil
			}
		}
		return vm.arrayClass(elem)
	}
	return nil
}
