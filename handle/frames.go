package handle

import (
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

// Frames is a stack of local frames over a local-scope table. The base frame
// is always present. Frames belongs to one thread and is not safe for
// concurrent use.
type Frames[T any] struct {
	table  *Table[T]
	frames [][]value.Ref
}

// NewFrames creates a frame stack holding only the base frame.
func NewFrames[T any]() *Frames[T] {
	return &Frames[T]{
		table:  NewTable[T](ScopeLocal),
		frames: [][]value.Ref{make([]value.Ref, 0, 16)},
	}
}

// Table exposes the underlying local table, e.g. to subscribe observers.
func (f *Frames[T]) Table() *Table[T] { return f.table }

// Depth returns the number of frames including the base frame.
func (f *Frames[T]) Depth() int { return len(f.frames) }

// Len returns the number of live local refs across all frames.
func (f *Frames[T]) Len() int { return f.table.Len() }

// Push opens a new frame sized for capacity refs.
func (f *Frames[T]) Push(capacity int) error {
	if capacity < 0 {
		return errors.InvalidInput(errors.PhaseHandle, "negative local frame capacity")
	}
	f.frames = append(f.frames, make([]value.Ref, 0, capacity))
	return nil
}

// Add creates a local ref for v in the top frame.
func (f *Frames[T]) Add(v T) value.Ref {
	r := f.table.Add(v)
	top := len(f.frames) - 1
	f.frames[top] = append(f.frames[top], r)
	return r
}

// Get resolves a local ref.
func (f *Frames[T]) Get(r value.Ref) (T, bool) {
	return f.table.Get(r)
}

// Delete releases a local ref before its frame ends and drops it from the
// frame that created it.
func (f *Frames[T]) Delete(r value.Ref) error {
	if _, err := f.table.Release(r); err != nil {
		return err
	}
	for i := len(f.frames) - 1; i >= 0; i-- {
		refs := f.frames[i]
		for j := len(refs) - 1; j >= 0; j-- {
			if refs[j] == r {
				last := len(refs) - 1
				refs[j] = refs[last]
				f.frames[i] = refs[:last]
				return nil
			}
		}
	}
	return nil
}

// FrameLen returns the number of refs tracked by the top frame.
func (f *Frames[T]) FrameLen() int { return len(f.frames[len(f.frames)-1]) }

// Pop releases every ref created in the top frame. If keep resolves to a live
// local, a new ref to the same entry is created in the parent frame and
// returned.
func (f *Frames[T]) Pop(keep value.Ref) (value.Ref, error) {
	if len(f.frames) == 1 {
		return value.Null, errors.InvalidInput(errors.PhaseHandle, "no local frame to pop")
	}
	kept, hasKeep := f.table.Get(keep)
	return f.pop(kept, hasKeep), nil
}

// PopWith is Pop for an entry resolved outside this table, such as a global.
func (f *Frames[T]) PopWith(v T) (value.Ref, error) {
	if len(f.frames) == 1 {
		return value.Null, errors.InvalidInput(errors.PhaseHandle, "no local frame to pop")
	}
	return f.pop(v, true), nil
}

func (f *Frames[T]) pop(kept T, hasKeep bool) value.Ref {
	top := len(f.frames) - 1
	for _, r := range f.frames[top] {
		_, _ = f.table.Release(r) // refs deleted early are already gone
	}
	f.frames[top] = nil
	f.frames = f.frames[:top]

	if !hasKeep {
		return value.Null
	}
	r := f.Add(kept)
	f.table.notify(Event{Type: EventPromoted, Ref: r, Scope: ScopeLocal, Value: kept})
	return r
}

// Reset pops every frame and clears the base frame.
func (f *Frames[T]) Reset() {
	for len(f.frames) > 1 {
		f.pop(*new(T), false)
	}
	for _, r := range f.frames[0] {
		_, _ = f.table.Release(r)
	}
	f.frames[0] = f.frames[0][:0]
}
