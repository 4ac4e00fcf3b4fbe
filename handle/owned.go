package handle

import (
	"sync/atomic"

	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// Owned is the single owner of a global ref. Its release function runs at
// most once no matter how many holders call Release.
type Owned struct {
	release  func(value.Ref) error
	ref      value.Ref
	released atomic.Bool
}

// NewOwned wraps ref; release is invoked by the first Release call.
func NewOwned(ref value.Ref, release func(value.Ref) error) *Owned {
	return &Owned{ref: ref, release: release}
}

// Ref returns the wrapped ref, or Null once released.
func (o *Owned) Ref() value.Ref {
	if o.released.Load() {
		return value.Null
	}
	return o.ref
}

// Released reports whether Release has run.
func (o *Owned) Released() bool { return o.released.Load() }

// Release frees the ref. Every call after the first returns double_release
// without touching the ref.
func (o *Owned) Release() error {
	if !o.released.CompareAndSwap(false, true) {
		return errors.DoubleRelease(errors.PhaseHandle, "owned global ref")
	}
	return o.release(o.ref)
}
