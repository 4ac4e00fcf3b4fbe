package handle

import "github.com/wippyai/vmbridge/value"

// Scope is the lifetime category of a ref.
type Scope uint8

const (
	ScopeInvalid Scope = iota
	ScopeLocal
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeGlobal:
		return "global"
	}
	return "invalid"
}

const (
	scopeShift = 62
	genShift   = 32
	genMask    = 1<<30 - 1
	indexMask  = 1<<32 - 1
)

func pack(scope Scope, gen, index uint32) value.Ref {
	return value.Ref(uint64(scope)<<scopeShift | uint64(gen&genMask)<<genShift | uint64(index))
}

func unpack(r value.Ref) (scope Scope, gen, index uint32) {
	u := uint64(r)
	return Scope(u >> scopeShift), uint32(u>>genShift) & genMask, uint32(u & indexMask)
}

// ScopeOf returns the scope encoded in r; the null ref has ScopeInvalid.
func ScopeOf(r value.Ref) Scope {
	s, _, _ := unpack(r)
	if s != ScopeLocal && s != ScopeGlobal {
		return ScopeInvalid
	}
	return s
}

// EventType identifies a ref lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
	EventPromoted
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventReleased:
		return "released"
	case EventPromoted:
		return "promoted"
	}
	return "unknown"
}

// Event describes one ref lifecycle change.
type Event struct {
	Value any
	Ref   value.Ref
	Scope Scope
	Type  EventType
}

// Observer receives ref lifecycle events. Observers run with no table lock
// held and may call back into the table.
type Observer interface {
	OnRefEvent(Event)
}
