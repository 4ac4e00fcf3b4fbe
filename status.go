package vmbridge

import (
	"strconv"

	"github.com/wippyai/vmbridge/errors"
)

// Status is the integer result code returned across the runtime boundary.
type Status int32

const (
	OK          Status = 0
	ErrGeneric  Status = -1
	ErrDetached Status = -2
	ErrVersion  Status = -3
	ErrNoMemory Status = -4
	ErrExists   Status = -5
	ErrInvalid  Status = -6
)

var statusNames = map[Status]string{
	OK:          "ok",
	ErrGeneric:  "unknown error",
	ErrDetached: "thread detached",
	ErrVersion:  "version error",
	ErrNoMemory: "out of memory",
	ErrExists:   "already exists",
	ErrInvalid:  "invalid arguments",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "status " + strconv.Itoa(int(s))
}

// Err converts a non-OK status into a status error for op; OK yields nil.
func (s Status) Err(phase errors.Phase, op string) error {
	if s == OK {
		return nil
	}
	return errors.Status(phase, op, int32(s))
}

// Interface versions.
const (
	Version1_1 int32 = 0x00010001
	Version1_2 int32 = 0x00010002
	Version1_4 int32 = 0x00010004
	Version1_6 int32 = 0x00010006
	Version1_8 int32 = 0x00010008
)

// RefType reports how a reference was issued.
type RefType int32

const (
	InvalidRefType RefType = iota
	LocalRefType
	GlobalRefType
)

func (t RefType) String() string {
	switch t {
	case LocalRefType:
		return "local"
	case GlobalRefType:
		return "global"
	}
	return "invalid"
}

// MethodID identifies a resolved method. Zero means unresolved.
type MethodID uint64

// FieldID identifies a resolved field. Zero means unresolved.
type FieldID uint64

// InitArgs are the startup arguments for creating a runtime.
type InitArgs struct {
	Options            []string
	Version            int32
	IgnoreUnrecognized bool
}
