package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseMarshal   Phase = "marshal"   // Go values to value unions
	PhaseResolve   Phase = "resolve"   // class and member lookup
	PhaseInvoke    Phase = "invoke"    // dispatcher calls
	PhaseHandle    Phase = "handle"    // reference management
	PhaseException Phase = "exception" // pending exception channel
	PhaseCallback  Phase = "callback"  // trampoline dispatch
	PhaseRegister  Phase = "register"  // native method binding
	PhaseLifecycle Phase = "lifecycle" // VM create, attach, detach
	PhaseConfig    Phase = "config"    // configuration loading
	PhaseLoad      Phase = "load"      // class loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch     Kind = "type_mismatch"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindAllocation       Kind = "allocation"
	KindNotFound         Kind = "not_found"
	KindInvalidHandle    Kind = "invalid_handle"
	KindDoubleRelease    Kind = "double_release"
	KindWrongThread      Kind = "wrong_thread"
	KindPendingException Kind = "pending_exception"
	KindSignature        Kind = "signature"
	KindRegistration     Kind = "registration"
	KindThrown           Kind = "thrown"
	KindDetached         Kind = "detached"
	KindInvalidInput     Kind = "invalid_input"
	KindUnsupported      Kind = "unsupported"
	KindCallbackFailed   Kind = "callback_failed"
	KindStatus           Kind = "status"
	KindInvalidData      Kind = "invalid_data"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	GoType    string
	Member    string
	Signature string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Member != "" {
		b.WriteString(" at ")
		b.WriteString(e.Member)
		if e.Signature != "" {
			b.WriteString(e.Signature)
		}
	} else if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || (e.Signature != "" && e.Member == "") {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.Signature != "" && e.Member == "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", signature ")
			b.WriteString(e.Signature)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("signature ")
			b.WriteString(e.Signature)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || (e.Signature != "" && e.Member == "") {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the path of nested elements (argument index, field chain)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Member sets the managed member, e.g. "demo/Calc.add"
func (b *Builder) Member(m string) *Builder {
	b.err.Member = m
	return b
}

// Signature sets the type descriptor
func (b *Builder) Signature(sig string) *Builder {
	b.err.Signature = sig
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, signature string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindTypeMismatch,
		GoType:    goType,
		Signature: signature,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, what string, size int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %s of size %d", what, size),
		Value:  size,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidHandle creates an invalid handle error for stale, released or null refs
func InvalidHandle(phase Phase, ref uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("invalid reference %#x", ref),
		Value:  ref,
	}
}

// DoubleRelease creates an error for a second release of the same owner
func DoubleRelease(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDoubleRelease,
		Detail: fmt.Sprintf("%s already released", what),
	}
}

// WrongThread creates a thread affinity violation error
func WrongThread(owner, current int) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindWrongThread,
		Detail: fmt.Sprintf("context owned by thread %d used from thread %d", owner, current),
		Value:  current,
	}
}

// PendingException creates an error for a call issued while an exception is pending
func PendingException(op string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindPendingException,
		Detail: fmt.Sprintf("%s called with a pending exception", op),
	}
}

// BadSignature creates a signature parse error
func BadSignature(sig string, pos int, detail string) *Error {
	return &Error{
		Phase:     PhaseMarshal,
		Kind:      KindSignature,
		Signature: sig,
		Detail:    fmt.Sprintf("offset %d: %s", pos, detail),
		Value:     pos,
	}
}

// Status creates an error from a non-zero runtime status code
func Status(phase Phase, op string, code int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStatus,
		Detail: fmt.Sprintf("%s returned status %d", op, code),
		Value:  code,
	}
}

// Unsupported creates an unsupported feature error
func Unsupported(phase Phase, feature string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: fmt.Sprintf("%s is not supported", feature),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a native registration error
func Registration(class, name, signature string, cause error) *Error {
	return &Error{
		Phase:     PhaseRegister,
		Kind:      KindRegistration,
		Member:    class + "." + name,
		Signature: signature,
		Cause:     cause,
	}
}

// Load creates a class loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
