// Package host assembles a runnable bridge from configuration: a runtime,
// its wasm-backed classes and their scripted natives, all driven from one
// locked OS thread.
package host

import (
	"context"
	"os"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/config"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/internal/script"
	"github.com/wippyai/vmbridge/trampoline"
	"github.com/wippyai/vmbridge/value"
	"github.com/wippyai/vmbridge/vm/simvm"
	"github.com/wippyai/vmbridge/vm/wasmvm"
)

// Host owns a runtime and the thread it is attached to. Every operation is
// forwarded to that thread, so a Host may be used from any goroutine.
type Host struct {
	cfg     *config.Config
	log     *zap.Logger
	vm      *simvm.VM
	env     *env.Env
	loader  *wasmvm.Loader
	bank    *trampoline.Bank
	wasm    []*wasmvm.Class
	calls   chan func()
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
}

// Method describes a static method callable through Call.
type Method struct {
	Class     string
	Name      string
	Signature value.MethodSignature
	Native    bool
}

// Descriptor returns the method's descriptor string.
func (m Method) Descriptor() string { return m.Signature.String() }

// Option configures Open.
type Option func(*Host)

// WithLogger sets the host logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.log = l }
}

// Open starts a runtime configured by cfg and defines every configured
// class in it.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Host, error) {
	h := &Host{
		cfg:   cfg,
		log:   zap.NewNop(),
		calls: make(chan func()),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	go h.loop()

	var err error
	h.send(func() { err = h.start(ctx) })
	if err != nil {
		_ = h.Close(ctx)
		return nil, err
	}
	return h, nil
}

func (h *Host) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for fn := range h.calls {
		fn()
	}
	close(h.done)
}

// do runs fn on the host thread. It fails once Close has begun.
func (h *Host) do(fn func()) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return errors.New(errors.PhaseLifecycle, errors.KindDetached).
			Detail("host is closed").
			Build()
	}
	h.send(fn)
	return nil
}

func (h *Host) send(fn func()) {
	finished := make(chan struct{})
	h.calls <- func() {
		defer close(finished)
		fn()
	}
	<-finished
}

func (h *Host) start(ctx context.Context) error {
	vm, native, st := simvm.Create(h.cfg.InitArgs())
	if err := st.Err(errors.PhaseLifecycle, "CreateJavaVM"); err != nil {
		return err
	}
	h.vm = vm
	h.env = env.New(native, env.WithLogger(h.log), env.WithMuteExceptions(h.cfg.VM.MuteExceptions))
	h.loader = wasmvm.NewLoader(ctx, &wasmvm.Config{MemoryLimitPages: h.cfg.VM.MemoryLimitPages})
	h.bank = trampoline.NewBank(h.cfg.VM.TrampolineSlots)

	for _, cl := range h.cfg.Classes {
		if err := h.define(ctx, cl); err != nil {
			return err
		}
	}
	for _, cl := range h.cfg.Classes {
		if err := h.bindNatives(cl); err != nil {
			return err
		}
	}
	h.log.Info("bridge ready",
		zap.Int("classes", len(h.cfg.Classes)),
		zap.Int("wasm", len(h.wasm)),
		zap.Bool("checked", h.env.Checked()))
	return nil
}

func (h *Host) define(ctx context.Context, cl config.Class) error {
	if cl.Wasm == "" {
		def := simvm.ClassDef{Name: cl.Name, Super: cl.Super}
		for _, n := range cl.Natives {
			def.Methods = append(def.Methods, simvm.MethodDef{Name: n.Name, Signature: n.Signature, Static: true, Native: true})
		}
		for _, f := range cl.Fields {
			if f.Signature == "" {
				return errors.New(errors.PhaseConfig, errors.KindSignature).
					Member(cl.Name + "." + f.Name).
					Detail("fields of classes without a module need a signature").
					Build()
			}
			def.Fields = append(def.Fields, simvm.FieldDef{Name: f.Name, Signature: f.Signature, Static: true})
		}
		if len(cl.Methods) > 0 {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Member(cl.Name).
				Detail("methods need a wasm module to implement them").
				Build()
		}
		_, err := h.vm.DefineClass(def)
		return err
	}

	bin, err := os.ReadFile(h.cfg.Path(cl.Wasm))
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "read "+cl.Wasm)
	}
	spec := wasmvm.ClassSpec{Name: cl.Name, Super: cl.Super}
	for _, m := range cl.Methods {
		spec.Methods = append(spec.Methods, wasmvm.MethodSpec{Name: m.Name, Export: m.Export, Signature: m.Signature})
	}
	for _, n := range cl.Natives {
		spec.Natives = append(spec.Natives, wasmvm.NativeSpec{Name: n.Name, Signature: n.Signature})
	}
	for _, f := range cl.Fields {
		spec.Fields = append(spec.Fields, wasmvm.FieldSpec{Name: f.Name, Export: f.Export, Signature: f.Signature})
	}
	c, err := h.loader.Load(ctx, h.vm, spec, bin)
	if err != nil {
		return err
	}
	h.wasm = append(h.wasm, c)
	return nil
}

func (h *Host) bindNatives(cl config.Class) error {
	var cls value.Ref
	for _, n := range cl.Natives {
		src := n.Script
		name := cl.Name + ".star"
		if n.ScriptFile != "" {
			b, err := os.ReadFile(h.cfg.Path(n.ScriptFile))
			if err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "read "+n.ScriptFile)
			}
			src, name = string(b), n.ScriptFile
		}
		if src == "" {
			h.log.Debug("native left unbound", zap.String("class", cl.Name), zap.String("method", n.Name))
			continue
		}
		sig, err := value.ParseMethodSignature(n.Signature)
		if err != nil {
			return err
		}
		s, err := script.Compile(name, n.Name, src, sig)
		if err != nil {
			return err
		}
		if cls.IsNull() {
			if cls, err = h.env.FindClass(cl.Name); err != nil {
				return err
			}
		}
		slot, err := h.bank.Register(h.env, cls, n.Name, n.Signature, s)
		if err != nil {
			return err
		}
		h.log.Debug("native bound", zap.String("class", cl.Name), zap.String("method", n.Name), zap.Int("slot", slot))
	}
	return nil
}

// Methods lists the static methods of the configured classes, sorted by
// class and name.
func (h *Host) Methods() []Method {
	out, _ := h.methods()
	return out
}

func (h *Host) methods() ([]Method, error) {
	var out []Method
	err := h.do(func() {
		for _, cl := range h.cfg.Classes {
			c, ok := h.vm.Class(cl.Name)
			if !ok {
				continue
			}
			for _, m := range c.Methods() {
				if !m.Static || m.Name == "<clinit>" {
					continue
				}
				out = append(out, Method{Class: cl.Name, Name: m.Name, Signature: m.Sig, Native: m.Native})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Descriptor() < out[j].Descriptor()
	})
	return out, err
}

// Lookup finds a static method by class and name. desc may be empty when
// the name is not overloaded.
func (h *Host) Lookup(class, name, desc string) (Method, error) {
	all, err := h.methods()
	if err != nil {
		return Method{}, err
	}
	var found []Method
	for _, m := range all {
		if m.Class == class && m.Name == name && (desc == "" || m.Descriptor() == desc) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return Method{}, errors.NotFound(errors.PhaseResolve, "static method", class+"."+name+desc)
	case 1:
		return found[0], nil
	}
	return Method{}, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
		Member(class + "." + name).
		Detail("overloaded; give a descriptor").
		Build()
}

// Call invokes m with arguments parsed from text and renders the result.
// A managed exception is returned as an *env.Exception.
func (h *Host) Call(m Method, args []string) (string, error) {
	var (
		out     string
		callErr error
	)
	if err := h.do(func() { out, callErr = h.call(m, args) }); err != nil {
		return "", err
	}
	return out, callErr
}

// Env runs fn on the host thread with its Env. fn must not retain e.
func (h *Host) Env(fn func(e *env.Env)) error {
	return h.do(func() { fn(h.env) })
}

// VM returns the underlying runtime.
func (h *Host) VM() vmbridge.Machine { return h.vm }

// Close unloads the wasm classes and destroys the runtime. Calls made after
// Close fail with a lifecycle error; closing twice is a no-op.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	var err error
	h.send(func() { err = h.shutdown(ctx) })
	close(h.calls)
	<-h.done
	return err
}

func (h *Host) shutdown(ctx context.Context) error {
	if h.env != nil {
		h.env.Close()
	}
	var err error
	if h.loader != nil {
		err = h.loader.Close(ctx)
	}
	if h.vm != nil {
		if st := h.vm.DestroyVM(); st != vmbridge.OK && err == nil {
			err = st.Err(errors.PhaseLifecycle, "DestroyJavaVM")
		}
	}
	return err
}
