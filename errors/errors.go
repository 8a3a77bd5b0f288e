package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"
)

// Phase indicates which handle operation the error occurred in
type Phase string

const (
	PhaseBuild    Phase = "build"    // builder allocation and validation
	PhaseOpen     Phase = "open"     // constructing a path-backed handle
	PhaseWrite    Phase = "write"    // write dispatch
	PhaseFlush    Phase = "flush"    // flush dispatch
	PhaseDestroy  Phase = "destroy"  // destroy dispatch
	PhaseDispatch Phase = "dispatch" // invoking a foreign callback
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation   Kind = "allocation"
	KindInvalidInput Kind = "invalid_input"
	KindOpenFailed   Kind = "open_failed"
	KindWriteFailed  Kind = "write_failed"
	KindFlushFailed  Kind = "flush_failed"
	KindCloseFailed  Kind = "close_failed"
	KindClosed       Kind = "closed"
	KindNotFound     Kind = "not_found"
	KindTrap         Kind = "trap"
)

// Error is the structured error type used throughout the library.
// Errno carries the platform error code when one is known, so callers
// on the far side of the boundary can surface it errno-style.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Errno  int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Errno != 0 {
		b.WriteString(" (errno ")
		b.WriteString(strconv.Itoa(e.Errno))
		b.WriteByte(')')
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

// OSCode extracts the platform error code from an error chain.
// Returns the Errno of a structured Error, the value of a wrapped
// syscall.Errno, or 0 when no platform code is available.
func OSCode(err error) int {
	var se *Error
	if stderrors.As(err, &se) && se.Errno != 0 {
		return se.Errno
	}
	var errno syscall.Errno
	if stderrors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

// Convenience constructors for common error patterns

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Allocation creates an allocation failure error
func Allocation(size, align uintptr) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OpenFailed creates a path open error carrying the OS code from cause
func OpenFailed(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseOpen,
		Kind:   KindOpenFailed,
		Detail: fmt.Sprintf("open %q for writing", path),
		Errno:  OSCode(cause),
		Cause:  cause,
	}
}

// WriteFailed wraps a failed write
func WriteFailed(cause error) *Error {
	return &Error{
		Phase: PhaseWrite,
		Kind:  KindWriteFailed,
		Errno: OSCode(cause),
		Cause: cause,
	}
}

// FlushFailed wraps a failed flush
func FlushFailed(cause error) *Error {
	return &Error{
		Phase: PhaseFlush,
		Kind:  KindFlushFailed,
		Errno: OSCode(cause),
		Cause: cause,
	}
}

// Closed creates a use-after-destroy error
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "handle already destroyed",
	}
}

// NotFound creates a not-found error
func NotFound(what string, name string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Trap wraps a foreign callback that failed to return
func Trap(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTrap,
		Detail: "foreign callback trapped",
		Cause:  cause,
	}
}

// FromErrno creates an error from a bare platform code
func FromErrno(phase Phase, kind Kind, code int) *Error {
	return &Error{
		Phase: phase,
		Kind:  kind,
		Errno: code,
		Cause: syscall.Errno(code),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Errno:  OSCode(cause),
		Cause:  cause,
	}
}
