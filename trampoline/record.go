package trampoline

import (
	"fmt"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/value"
)

// Record is the call record handed to a Handler. It is built for a single
// invocation and must not be retained after the handler returns.
type Record struct {
	Env       vmbridge.NativeEnv
	Args      *value.VaList
	Name      string
	Signature value.MethodSignature
	Receiver  value.Ref
	Slot      int
}

// Handler is the dispatch logic behind a slot. A nil error is success and
// the returned Value becomes the native's result.
type Handler interface {
	Handle(rec *Record) (value.Value, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(rec *Record) (value.Value, error)

func (f HandlerFunc) Handle(rec *Record) (value.Value, error) { return f(rec) }

// ThrowError selects the managed exception class thrown when a handler
// fails. Any other error raises java/lang/RuntimeException.
type ThrowError struct {
	Class   string // internal name, e.g. java/lang/IllegalArgumentException
	Message string
}

func (e *ThrowError) Error() string {
	return e.Class + ": " + e.Message
}

// Throw returns a *ThrowError for class with a formatted message.
func Throw(class, format string, args ...any) error {
	return &ThrowError{Class: class, Message: fmt.Sprintf(format, args...)}
}
