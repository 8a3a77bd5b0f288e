// Package ffi exposes the file-handle operations to WASM guests.
//
// The host module "wippy:io/file-handles" gives a guest the same uniform
// surface Go callers get from the root package: construct a handle, write
// and flush through it, destroy it exactly once. Handles cross the boundary
// as 32-bit integers; handle 0 is reserved and always invalid.
//
// # Imports seen by the guest
//
//	new-stdout-file-handle() -> i32
//	new-file-handle-from-path(ptr: i32, len: i32) -> i32     ;; 0 on failure
//	new-file-handle-builder(size, align, destroy, write, flush, retptr: i32)
//	file-handle-write(h: i32, ptr: i32, len: i32) -> i32     ;; bytes accepted, or -errno
//	file-handle-flush(h: i32) -> i32                         ;; 0, or -errno
//	file-handle-destroy(h: i32)
//	last-error() -> i32                                      ;; errno of the most recent failure
//
// # Guest-defined handles
//
// new-file-handle-builder allocates a payload block of the requested size
// and alignment in guest linear memory through the guest-exported
// cabi_realloc, and writes {handle: u32, place: u32} to retptr (both zero
// on failure). The guest initializes the payload at place before the first
// write. destroy/write/flush are indices into the guest's function table;
// because the host cannot call through that table directly, the guest
// exports three dynCall-style trampolines the host resolves once at
// builder time:
//
//	__fh_dispatch_write(fidx: i32, payload: i32, ptr: i32, len: i32) -> i32
//	__fh_dispatch_flush(fidx: i32, payload: i32) -> i32
//	__fh_dispatch_destroy(fidx: i32, payload: i32)
//
// Each trampoline is a single call_indirect. From C:
//
//	int __fh_dispatch_write(int f, void *p, const void *d, int n) {
//	    return ((int (*)(void *, const void *, int))f)(p, d, n);
//	}
//
// # Errors
//
// Recoverable failures surface as sentinel values (0 handle, negative
// return) with the platform code retrievable through last-error, mirroring
// errno. The host upgrades misuse to checked failures: operations on
// handle 0, a stale handle, or a destroyed handle return -EBADF instead of
// misbehaving.
//
// # Ownership
//
// The returned handle is an ownership transfer to the guest, which must
// eventually call file-handle-destroy. Destroying releases the host-side
// resources and recycles the slot; payload blocks live in guest memory and
// remain the guest allocator's to reclaim.
package ffi
