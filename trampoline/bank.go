// Package trampoline lets a managed runtime call back into Go. A Bank holds
// a fixed number of numbered entry points. Each entry is a NativeFunc that
// packs its inputs into a Record and forwards it to the Handler bound to the
// slot. A failed handler leaves a pending exception in the runtime and the
// entry returns the zero Value.
package trampoline

import (
	stderrors "errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// DefaultSlots is the bank size used when none is given.
const DefaultSlots = 8

const defaultThrowable = "java/lang/RuntimeException"

type binding struct {
	handler Handler
	name    string
	sig     value.MethodSignature
}

// Bank is a fixed table of trampoline slots. It is safe for concurrent use;
// entries may be invoked from any attached thread.
type Bank struct {
	mu      sync.RWMutex
	slots   []binding
	entries []vmbridge.NativeFunc
	log     *zap.Logger
}

// NewBank creates a bank with n slots, or DefaultSlots when n <= 0.
func NewBank(n int) *Bank {
	if n <= 0 {
		n = DefaultSlots
	}
	b := &Bank{
		slots:   make([]binding, n),
		entries: make([]vmbridge.NativeFunc, n),
		log:     Logger(),
	}
	for i := range b.entries {
		slot := i
		b.entries[i] = func(e vmbridge.NativeEnv, receiver value.Ref, args *value.VaList) value.Value {
			return b.dispatch(slot, e, receiver, args)
		}
	}
	return b
}

// Len returns the number of slots.
func (b *Bank) Len() int { return len(b.slots) }

// Entry returns the native entry point for slot, or nil if slot is out of
// range. The same function is returned on every call.
func (b *Bank) Entry(slot int) vmbridge.NativeFunc {
	if slot < 0 || slot >= len(b.entries) {
		return nil
	}
	return b.entries[slot]
}

// Bound reports whether slot has a handler.
func (b *Bank) Bound(slot int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slot >= 0 && slot < len(b.slots) && b.slots[slot].handler != nil
}

// Bind attaches h to slot. The slot must be free.
func (b *Bank) Bind(slot int, h Handler) error {
	return b.bind(slot, h, "", value.MethodSignature{})
}

func (b *Bank) bind(slot int, h Handler, name string, sig value.MethodSignature) error {
	if h == nil {
		return errors.InvalidInput(errors.PhaseCallback, "nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if slot < 0 || slot >= len(b.slots) {
		return errors.OutOfBounds(errors.PhaseCallback, slot, len(b.slots))
	}
	if b.slots[slot].handler != nil {
		return errors.New(errors.PhaseCallback, errors.KindInvalidInput).
			Member(b.slots[slot].name).
			Detail("slot %d is already bound", slot).
			Build()
	}
	b.slots[slot] = binding{handler: h, name: name, sig: sig}
	return nil
}

// Unbind frees slot. Invoking the entry of a free slot fails.
func (b *Bank) Unbind(slot int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if slot < 0 || slot >= len(b.slots) {
		return errors.OutOfBounds(errors.PhaseCallback, slot, len(b.slots))
	}
	if b.slots[slot].handler == nil {
		return errors.DoubleRelease(errors.PhaseCallback, fmt.Sprintf("trampoline slot %d", slot))
	}
	b.slots[slot] = binding{}
	return nil
}

// Acquire binds h to the lowest free slot and returns it.
func (b *Bank) Acquire(h Handler) (int, error) {
	return b.acquire(h, "", value.MethodSignature{})
}

func (b *Bank) acquire(h Handler, name string, sig value.MethodSignature) (int, error) {
	if h == nil {
		return -1, errors.InvalidInput(errors.PhaseCallback, "nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.slots {
		if b.slots[i].handler == nil {
			b.slots[i] = binding{handler: h, name: name, sig: sig}
			return i, nil
		}
	}
	return -1, errors.AllocationFailed(errors.PhaseCallback, "trampoline slot", len(b.slots))
}

// Register acquires a slot for h and binds its entry as the native method
// name with descriptor sig on cls. The slot is freed again if the runtime
// rejects the binding.
func (b *Bank) Register(e *env.Env, cls value.Ref, name, sig string, h Handler) (int, error) {
	ms, err := value.ParseMethodSignature(sig)
	if err != nil {
		return -1, err
	}
	slot, err := b.acquire(h, name, ms)
	if err != nil {
		return -1, err
	}
	if err := e.RegisterNative(cls, name, sig, b.entries[slot]); err != nil {
		_ = b.Unbind(slot)
		return -1, err
	}
	b.log.Debug("bound trampoline",
		zap.Int("slot", slot),
		zap.String("member", name),
		zap.String("signature", sig))
	return slot, nil
}

func (b *Bank) dispatch(slot int, e vmbridge.NativeEnv, receiver value.Ref, args *value.VaList) value.Value {
	b.mu.RLock()
	bnd := b.slots[slot]
	b.mu.RUnlock()

	if bnd.handler == nil {
		b.fail(e, slot, bnd, errors.New(errors.PhaseCallback, errors.KindNotFound).
			Detail("trampoline slot %d has no handler", slot).
			Build())
		return value.Value{}
	}

	rec := &Record{
		Env:       e,
		Receiver:  receiver,
		Slot:      slot,
		Args:      args,
		Name:      bnd.name,
		Signature: bnd.sig,
	}
	v, err := b.invoke(bnd.handler, rec)
	if err != nil {
		b.fail(e, slot, bnd, err)
		return value.Value{}
	}
	return v
}

// invoke runs the handler, turning panics into errors. Contract violations
// raised by a checked Env keep propagating.
func (b *Bank) invoke(h Handler, rec *Record) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if be, ok := r.(*errors.Error); ok {
				panic(be)
			}
			b.log.Error("trampoline handler panicked",
				zap.Int("slot", rec.Slot),
				zap.String("member", rec.Name),
				zap.Any("panic", r))
			v = value.Value{}
			err = errors.New(errors.PhaseCallback, errors.KindCallbackFailed).
				Member(rec.Name).
				Detail("handler panicked: %v", r).
				Build()
		}
	}()
	return h.Handle(rec)
}

// fail reports a handler failure to the runtime as a pending exception. An
// exception the handler already raised is left in place.
func (b *Bank) fail(e vmbridge.NativeEnv, slot int, bnd binding, err error) {
	b.log.Warn("trampoline dispatch failed",
		zap.Int("slot", slot),
		zap.String("member", bnd.name),
		zap.Stringer("signature", bnd.sig),
		zap.Error(err))
	if e.ExceptionCheck() {
		return
	}
	class, msg := defaultThrowable, err.Error()
	var te *ThrowError
	if stderrors.As(err, &te) {
		class, msg = te.Class, te.Message
	}
	cls := e.FindClass(class)
	if cls.IsNull() {
		// NoClassDefFoundError is pending instead.
		return
	}
	e.ThrowNew(cls, msg)
	e.DeleteLocalRef(cls)
}
