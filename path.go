package filehandle

import (
	"os"

	"github.com/wippyai/filehandle/errors"
)

// fileSink owns an open descriptor. Flush forwards to Sync; Close closes
// the descriptor exactly once and does not flush first.
type fileSink struct {
	f *os.File
}

func (s *fileSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *fileSink) Flush() error                { return s.f.Sync() }
func (s *fileSink) Close() error                { return s.f.Close() }

// NewPath returns a handle that writes to the file at path, creating it if
// missing and truncating it if present. The returned error carries the OS
// error code (errors.OSCode) when the open fails.
func NewPath(path string) (*FileHandle, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.OpenFailed(path, err)
	}
	return ForSink(&fileSink{f: f}), nil
}
