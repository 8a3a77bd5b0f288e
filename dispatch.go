package filehandle

import "unsafe"

// DispatchTable is the fixed triple of operations bound to a handle variant
// at construction time. Built-in variants share one static table per variant;
// builder-produced handles own a private copy populated from caller-supplied
// functions. A table is never mutated after construction.
type DispatchTable struct {
	// Write delivers p to the payload's destination and returns the number
	// of bytes accepted, 0 <= n <= len(p). A short count is success for n
	// bytes, not an error.
	Write func(payload unsafe.Pointer, p []byte) (int, error)

	// Flush drains any state the payload accumulates. Variants without
	// buffering return nil unconditionally.
	Flush func(payload unsafe.Pointer) error

	// Destroy releases every resource the payload owns. Called exactly once,
	// by FileHandle.Close.
	Destroy func(payload unsafe.Pointer) error
}

func (t *DispatchTable) complete() bool {
	return t.Write != nil && t.Flush != nil && t.Destroy != nil
}
