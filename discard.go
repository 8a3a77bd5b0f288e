package filehandle

import "io"

type discardSink struct{}

func (discardSink) Write(p []byte) (int, error) { return io.Discard.Write(p) }
func (discardSink) Flush() error                { return nil }
func (discardSink) Close() error                { return nil }

// NewDiscard returns a handle that accepts and throws away all data written
// to it.
func NewDiscard() *FileHandle {
	return ForSink(discardSink{})
}
