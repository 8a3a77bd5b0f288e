package filehandle

import (
	"unsafe"

	"github.com/wippyai/filehandle/errors"
)

// FileHandle is an opaque, exclusively-owned writable destination. All
// operations route through the dispatch table bound at construction; no
// variant-specific information is observable through the handle itself.
//
// A FileHandle is an io.WriteCloser. It provides no internal
// synchronization: a single logical owner must call Write, Flush and Close
// in strict sequence.
type FileHandle struct {
	payload unsafe.Pointer
	table   *DispatchTable
	block   []byte // placement storage for builder handles, nil otherwise
}

// Write forwards p to the variant's write operation and returns the number
// of bytes accepted. A return of n < len(p) with a nil error means the
// destination accepted n bytes; the caller retries with the remainder.
func (h *FileHandle) Write(p []byte) (int, error) {
	if h.table == nil {
		return 0, errors.Closed(errors.PhaseWrite)
	}
	return h.table.Write(h.payload, p)
}

// Flush forwards to the variant's flush operation, draining any state the
// payload accumulates.
func (h *FileHandle) Flush() error {
	if h.table == nil {
		return errors.Closed(errors.PhaseFlush)
	}
	return h.table.Flush(h.payload)
}

// Close runs the variant's destroy operation and releases the payload. It
// is the terminal operation: any call after the first returns an
// errors.KindClosed error. Close does not flush; callers that need bytes
// durable call Flush first.
func (h *FileHandle) Close() error {
	if h.table == nil {
		return errors.Closed(errors.PhaseDestroy)
	}

	err := h.table.Destroy(h.payload)

	h.payload = nil
	h.table = nil
	h.block = nil

	if err != nil {
		return errors.Wrap(errors.PhaseDestroy, errors.KindCloseFailed, err, "destroy payload")
	}
	return nil
}
