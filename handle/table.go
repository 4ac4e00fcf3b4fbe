package handle

import (
	"sync"

	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Table is a generational slot table issuing refs of a single scope.
// It is safe for concurrent use.
type Table[T any] struct {
	slots     []slot[T]
	free      []uint32
	observers []Observer
	scope     Scope
	mu        sync.RWMutex
	obsMu     sync.RWMutex
}

// NewTable creates an empty table issuing refs of the given scope.
func NewTable[T any](scope Scope) *Table[T] {
	return &Table[T]{
		scope: scope,
		slots: make([]slot[T], 0, 64),
		free:  make([]uint32, 0, 16),
	}
}

// Scope returns the scope of refs issued by t.
func (t *Table[T]) Scope() Scope { return t.scope }

// Add stores v and returns a fresh ref for it.
func (t *Table[T]) Add(v T) value.Ref {
	t.mu.Lock()
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot[T]{})
		idx = uint32(len(t.slots) - 1)
	}
	s := &t.slots[idx]
	s.value = v
	s.live = true
	ref := pack(t.scope, s.gen, idx)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Ref: ref, Scope: t.scope, Value: v})
	return ref
}

// Get resolves r. Stale, released, foreign-scope and null refs report false.
func (t *Table[T]) Get(r value.Ref) (T, bool) {
	var zero T
	scope, gen, idx := unpack(r)
	if r.IsNull() || scope != t.scope {
		return zero, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(idx) >= len(t.slots) {
		return zero, false
	}
	s := t.slots[idx]
	if !s.live || s.gen != gen {
		return zero, false
	}
	return s.value, true
}

// Contains reports whether r resolves to a live entry.
func (t *Table[T]) Contains(r value.Ref) bool {
	_, ok := t.Get(r)
	return ok
}

// Release removes r and returns its entry. Releasing a ref that was already
// released reports double_release; refs this table never issued report
// invalid_handle. Exactly one of several concurrent releases succeeds.
func (t *Table[T]) Release(r value.Ref) (T, error) {
	var zero T
	scope, gen, idx := unpack(r)
	if r.IsNull() || scope != t.scope {
		return zero, errors.InvalidHandle(errors.PhaseHandle, uint64(r))
	}

	t.mu.Lock()
	if int(idx) >= len(t.slots) {
		t.mu.Unlock()
		return zero, errors.InvalidHandle(errors.PhaseHandle, uint64(r))
	}
	s := &t.slots[idx]
	if !s.live || s.gen != gen {
		t.mu.Unlock()
		return zero, errors.New(errors.PhaseHandle, errors.KindDoubleRelease).
			Value(uint64(r)).
			Detail("%s ref %#x already released", t.scope, uint64(r)).
			Build()
	}
	v := s.value
	s.value = zero
	s.live = false
	s.gen = (s.gen + 1) & genMask
	t.free = append(t.free, idx)
	t.mu.Unlock()

	t.notify(Event{Type: EventReleased, Ref: r, Scope: t.scope, Value: v})
	return v, nil
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots) - len(t.free)
}

// Each calls fn for every live entry until fn returns false.
func (t *Table[T]) Each(fn func(value.Ref, T) bool) {
	t.mu.RLock()
	type pair struct {
		ref value.Ref
		v   T
	}
	live := make([]pair, 0, len(t.slots)-len(t.free))
	for i, s := range t.slots {
		if s.live {
			live = append(live, pair{pack(t.scope, s.gen, uint32(i)), s.value})
		}
	}
	t.mu.RUnlock()

	for _, p := range live {
		if !fn(p.ref, p.v) {
			return
		}
	}
}

// Clear releases every live entry.
func (t *Table[T]) Clear() {
	var refs []value.Ref
	t.Each(func(r value.Ref, _ T) bool {
		refs = append(refs, r)
		return true
	})
	for _, r := range refs {
		_, _ = t.Release(r)
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	kept := make([]Observer, 0, len(t.observers))
	for _, obs := range t.observers {
		if obs != o {
			kept = append(kept, obs)
		}
	}
	t.observers = kept
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	obs := t.observers
	t.obsMu.RUnlock()
	for _, o := range obs {
		o.OnRefEvent(e)
	}
}
