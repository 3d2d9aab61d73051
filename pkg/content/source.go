package content

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Source supplies configuration content for import.
type Source interface {
	// Name returns the file name, without directories.
	Name() string
	// Open returns a reader over the content. The caller closes it.
	Open() (io.ReadCloser, error)
}

// PathSource reads content from a local path reachable by the server, such
// as a watched import folder or a mounted engineering share.
type PathSource struct {
	Path string
}

// Name returns the base name of the path.
func (s PathSource) Name() string { return filepath.Base(s.Path) }

// Open opens the file at the path.
func (s PathSource) Open() (io.ReadCloser, error) { return os.Open(s.Path) }

// BytesSource serves in-memory content. The git source and tests use it.
type BytesSource struct {
	FileName string
	Data     []byte
}

// Name returns the configured file name.
func (s BytesSource) Name() string { return s.FileName }

// Open returns a reader over the in-memory data.
func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}
