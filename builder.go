package filehandle

import (
	"unsafe"

	"github.com/wippyai/filehandle/errors"
)

// Builder is the result of the two-phase construction protocol. Place points
// to size bytes of uninitialized, correctly aligned storage; Handle is
// already bound to the caller's dispatch table but its payload is garbage
// until the caller initializes the memory at Place. No write or flush may
// happen before that initialization.
type Builder struct {
	Place  unsafe.Pointer
	Handle *FileHandle
}

// NewBuilder allocates a block of exactly size bytes aligned to align and
// returns it together with a handle dispatching through a private copy of
// table. The payload's concrete layout stays entirely with the caller: the
// library sees only size and alignment.
//
// size must be positive, align a power of two, and all three table
// operations non-nil. Construction is atomic: on error neither Place nor
// Handle is valid.
//
// The block is ordinary byte storage and is not scanned by the garbage
// collector, so the payload placed in it must not contain Go pointers.
func NewBuilder(size, align uintptr, table DispatchTable) (Builder, error) {
	if size == 0 {
		return Builder{}, errors.InvalidInput(errors.PhaseBuild, "payload size must be positive")
	}
	if align == 0 || align&(align-1) != 0 {
		return Builder{}, errors.InvalidInput(errors.PhaseBuild, "alignment must be a power of two")
	}
	if !table.complete() {
		return Builder{}, errors.InvalidInput(errors.PhaseBuild, "dispatch table has nil operations")
	}

	// Over-allocate and offset so any power-of-two alignment is satisfied
	// regardless of where the runtime places the block.
	block := make([]byte, size+align-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(block)))
	off := (align - base%align) % align
	place := unsafe.Pointer(&block[off])

	// Private table: the handle must keep dispatching as built even if the
	// caller reuses their DispatchTable value.
	tbl := table

	h := &FileHandle{
		payload: place,
		table:   &tbl,
		block:   block, // keeps the placement storage live for the handle's lifetime
	}

	return Builder{Place: place, Handle: h}, nil
}
