// Package filehandle implements polymorphic, dynamically-dispatched writable
// handles that survive a foreign-function boundary.
//
// A FileHandle abstracts a writable, flushable destination behind a fixed
// dispatch table bound at construction time. Once constructed, all variants
// are interchangeable: callers write against Write/Flush/Close and never
// learn which constructor produced the handle.
//
// # Built-in variants
//
//	h := filehandle.NewStdout()          // process stdout, never fails
//	h, err := filehandle.NewPath("out")  // create-or-truncate file
//	h := filehandle.NewDiscard()         // accepts and drops all bytes
//	h := filehandle.ForSink(mySink)      // any Sink implementation
//
// # Custom variants
//
// The two-phase Builder protocol lets a caller define a payload whose layout
// the library never sees. The builder allocates a correctly sized and aligned
// block, the caller initializes it in place through Builder.Place, and the
// returned handle dispatches through the caller's own table:
//
//	b, err := filehandle.NewBuilder(size, align, table)
//	p := (*myPayload)(b.Place)
//	p.count = 0 // caller-side initialization
//	h := b.Handle
//
// Payloads placed in builder memory must not contain Go pointers; the block
// is not scanned by the garbage collector. This is the same rule foreign
// payloads live under.
//
// # Ownership
//
// A handle exclusively owns its payload. Close runs the variant's destroy
// operation exactly once; operations after Close return a structured
// errors.KindClosed error instead of misbehaving. Handles are not
// synchronized: one logical owner, strictly serial calls.
//
// The ffi subpackage exposes the same six operations to WASM guests, and the
// plugin subpackage turns a guest module into a Sink.
package filehandle
