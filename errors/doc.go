// Package errors provides structured error types for the filehandle library.
//
// Errors are categorized by Phase (which handle operation failed) and Kind
// (error category). The Error type carries the platform error code when one
// is known, which is what the foreign boundary reports through its
// errno-style side channel.
//
// Use the convenience constructors for common patterns:
//
//	err := errors.OpenFailed("/tmp/out.txt", cause)
//	err := errors.InvalidInput(errors.PhaseBuild, "alignment must be a power of two")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
