package filehandle

import (
	"io"
	"unsafe"
)

// Sink is the contract a Go value satisfies to back a handle. Write follows
// io.Writer semantics except that a short count with a nil error is allowed;
// Flush drains accumulated state; Close releases everything the sink owns
// and is called exactly once.
type Sink interface {
	io.Writer
	Flush() error
	Close() error
}

type sinkRepr struct {
	s Sink
}

// One static table serves every sink-backed handle; the payload pointer
// selects the concrete sink.
var sinkTable = DispatchTable{
	Write: func(payload unsafe.Pointer, p []byte) (int, error) {
		return (*sinkRepr)(payload).s.Write(p)
	},
	Flush: func(payload unsafe.Pointer) error {
		return (*sinkRepr)(payload).s.Flush()
	},
	Destroy: func(payload unsafe.Pointer) error {
		return (*sinkRepr)(payload).s.Close()
	},
}

// ForSink wraps any Sink in a handle. Ownership of s transfers to the
// handle: Close calls s.Close and s must not be used independently after
// that.
func ForSink(s Sink) *FileHandle {
	return &FileHandle{
		payload: unsafe.Pointer(&sinkRepr{s: s}),
		table:   &sinkTable,
	}
}

// As recovers the concrete sink behind a ForSink-produced handle. It
// reports false for builder-produced and destroyed handles, and when the
// sink is not an S.
func As[S Sink](h *FileHandle) (S, bool) {
	var zero S
	if h == nil || h.table != &sinkTable || h.payload == nil {
		return zero, false
	}
	s, ok := (*sinkRepr)(h.payload).s.(S)
	if !ok {
		return zero, false
	}
	return s, true
}
