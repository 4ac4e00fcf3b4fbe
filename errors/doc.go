// Package errors provides structured error types for the vmbridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the managed member involved, its type signature, the
// offending value, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindNotFound).
//		Member("demo/Calc.add").
//		Signature("(II)I").
//		Detail("no such method").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseMarshal, "int", "J")
//	err := errors.OutOfBounds(errors.PhaseMarshal, 10, 5)
//	err := errors.Status(errors.PhaseRegister, "RegisterNatives", -1)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
