package main

import (
	"fmt"
	"unsafe"

	"github.com/wippyai/filehandle"
)

// accumulator is the payload for the builder-constructed custom sink: a
// running byte total plus a bounded replay buffer drained on flush.
// Pointer-free so it can live in placement memory.
type accumulator struct {
	total int64
	n     int32
	buf   [4096]byte
}

// newAccumulator builds the custom handle the two-phase way: allocate by
// size and alignment, then initialize the payload in place.
func newAccumulator() (*filehandle.FileHandle, error) {
	b, err := filehandle.NewBuilder(
		unsafe.Sizeof(accumulator{}),
		unsafe.Alignof(accumulator{}),
		filehandle.DispatchTable{
			Write:   accumulatorWrite,
			Flush:   accumulatorFlush,
			Destroy: accumulatorDestroy,
		},
	)
	if err != nil {
		return nil, err
	}

	acc := (*accumulator)(b.Place)
	acc.total = 0
	acc.n = 0

	return b.Handle, nil
}

// accumulatorWrite echoes data prefixed with the running total and keeps a
// bounded copy for the next flush. Bytes past the buffer's capacity are
// counted but not retained.
func accumulatorWrite(payload unsafe.Pointer, p []byte) (int, error) {
	acc := (*accumulator)(payload)
	acc.total += int64(len(p))
	fmt.Printf("[%d] %s", acc.total, p)

	kept := copy(acc.buf[acc.n:], p)
	acc.n += int32(kept)
	return len(p), nil
}

func accumulatorFlush(payload unsafe.Pointer) error {
	acc := (*accumulator)(payload)
	fmt.Printf("[BEGIN FLUSH]%s[END FLUSH]\n", acc.buf[:acc.n])
	acc.n = 0
	acc.total = 0
	return nil
}

func accumulatorDestroy(unsafe.Pointer) error { return nil }
