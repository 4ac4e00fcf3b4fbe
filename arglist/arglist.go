// Package arglist assembles the operands of a managed call.
//
// A List owns a fixed-length block of value unions. Entries start zeroed and
// are filled by index before the list is handed to a dispatcher:
//
//	args, err := arglist.New(3)
//	if err != nil {
//		return err
//	}
//	defer args.Release()
//	args.Set(0, value.IntValue(42))
//	args.Set(1, value.BoolValue(true))
//	args.Set(2, value.ObjValue(obj))
//
// Reads outside [0, Len) return the zero Value instead of failing. Release
// frees the list and its buffer together and must be called exactly once.
package arglist

import (
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// MaxArgs is the most parameters a managed method can declare.
const MaxArgs = 255

// List is a length-tagged block of value unions. A List is not safe for
// concurrent use and must not be shared across threads.
type List struct {
	buf      *[]value.Value
	released bool
}

// New allocates a list of capacity zeroed entries. On failure nothing is
// retained and the returned list is nil.
func New(capacity int) (*List, error) {
	if capacity < 0 || capacity > MaxArgs {
		return nil, errors.AllocationFailed(errors.PhaseMarshal, "argument list", capacity)
	}
	return &List{buf: getBuf(capacity)}, nil
}

// Of builds a list holding vals in order.
func Of(vals ...value.Value) (*List, error) {
	l, err := New(len(vals))
	if err != nil {
		return nil, err
	}
	copy(*l.buf, vals)
	return l, nil
}

// FromTyped builds a list from tagged values, dropping the tags.
func FromTyped(typed ...value.Typed) (*List, error) {
	l, err := New(len(typed))
	if err != nil {
		return nil, err
	}
	for i, t := range typed {
		(*l.buf)[i] = t.Value
	}
	return l, nil
}

// Len returns the number of entries, or 0 once released.
func (l *List) Len() int {
	if l == nil || l.released {
		return 0
	}
	return len(*l.buf)
}

// Get returns the entry at i, or the zero Value when i is outside [0, Len).
func (l *List) Get(i int) value.Value {
	if i < 0 || i >= l.Len() {
		return value.Value{}
	}
	return (*l.buf)[i]
}

// Set stores v at i and reports whether i was in range.
func (l *List) Set(i int, v value.Value) bool {
	if i < 0 || i >= l.Len() {
		return false
	}
	(*l.buf)[i] = v
	return true
}

// InBounds reports whether i addresses an entry.
func (l *List) InBounds(i int) bool {
	return i >= 0 && i < l.Len()
}

// Values returns the contiguous entry block. The slice aliases the list and
// is invalid after Release.
func (l *List) Values() []value.Value {
	if l == nil || l.released {
		return nil
	}
	return *l.buf
}

// Released reports whether Release has run.
func (l *List) Released() bool {
	return l != nil && l.released
}

// Release returns the buffer to the pool and invalidates the list.
func (l *List) Release() error {
	if l == nil {
		return errors.InvalidInput(errors.PhaseMarshal, "release of nil argument list")
	}
	if l.released {
		return errors.DoubleRelease(errors.PhaseMarshal, "argument list")
	}
	l.released = true
	putBuf(l.buf)
	l.buf = nil
	return nil
}
