package ffi

import (
	stderrors "errors"
	"sync"

	"github.com/wippyai/filehandle"
)

// Handle is a guest-visible reference to a host file handle.
// Handle 0 is reserved and always invalid.
type Handle uint32

type entry struct {
	fh    *filehandle.FileHandle
	valid bool
}

// HandleTable maps guest handles to host file handles, reusing freed slots.
// Individual file handles are single-owner and unsynchronized; the table is
// locked because boundary bookkeeping is shared across all of them.
type HandleTable struct {
	entries  []entry
	freeList []Handle
	mu       sync.Mutex
	closed   bool
}

// NewHandleTable creates an empty table.
func NewHandleTable() *HandleTable {
	return &HandleTable{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 8),
	}
}

// Insert stores fh and returns its handle, or 0 if the table is closed.
func (t *HandleTable) Insert(fh *filehandle.FileHandle) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || fh == nil {
		return 0
	}

	e := entry{fh: fh, valid: true}

	if len(t.freeList) > 0 {
		h := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[h-1] = e
		return h
	}

	t.entries = append(t.entries, e)
	return Handle(len(t.entries))
}

// Get retrieves the file handle for h.
func (t *HandleTable) Get(h Handle) (*filehandle.FileHandle, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := h - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	return t.entries[idx].fh, true
}

// Remove invalidates h and returns its file handle. The slot becomes
// reusable; the caller runs the handle's destroy.
func (t *HandleTable) Remove(h Handle) (*filehandle.FileHandle, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := h - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}

	fh := t.entries[idx].fh
	t.entries[idx] = entry{}
	t.freeList = append(t.freeList, h)
	return fh, true
}

// Len returns the number of live handles.
func (t *HandleTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Close destroys every remaining handle and stops accepting inserts.
func (t *HandleTable) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var live []*filehandle.FileHandle
	for i := range t.entries {
		if t.entries[i].valid {
			live = append(live, t.entries[i].fh)
			t.entries[i] = entry{}
		}
	}
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()

	var errs []error
	for _, fh := range live {
		if err := fh.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
