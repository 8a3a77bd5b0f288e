package filehandle

import "os"

// stdoutSink forwards to the process stdout stream. The stream is not owned
// by the handle: Close must not close it, and flush is a no-op because
// os.Stdout is unbuffered.
type stdoutSink struct{}

func (stdoutSink) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdoutSink) Flush() error                { return nil }
func (stdoutSink) Close() error                { return nil }

// NewStdout returns a handle that writes directly to the process stdout.
// It never fails.
func NewStdout() *FileHandle {
	return ForSink(stdoutSink{})
}
